/*
snapshot.go - Case snapshot codec

PURPOSE:
  The surrounding system persists cases as JSON blobs and re-hydrates
  them before each recomputation. Snapshots carry the full audit state:
  accepted events, the arbitrated timeline with superseded-day lineage,
  flattened economic results, and the issued line chains.

  Round-trip guarantee: unmarshal(marshal(case)) compares equal value by
  value - the serialization tests hold the engine to that.
*/
package claims

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/warp/sickpay-engine/engine"
)

// snapshotVersion guards the blob format. Bump on incompatible changes
// and migrate in the store layer.
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int       `json:"version"`
	Case    *CaseFile `json:"case"`
}

// MarshalSnapshot encodes a case file into its persistence form.
func MarshalSnapshot(cf *CaseFile) ([]byte, error) {
	return json.Marshal(snapshotEnvelope{Version: snapshotVersion, Case: cf})
}

// UnmarshalSnapshot decodes a persisted case file.
func UnmarshalSnapshot(data []byte) (*CaseFile, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode case snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if env.Case != nil && env.Case.Issued == nil {
		env.Case.Issued = make(map[string][]engine.PaymentLine)
	}
	return env.Case, nil
}
