package advdata

import (
	"encoding/json"

	"blesniff/internal/remoteid"
)

type recordEnvelope struct {
	Kind     string `json:"kind"`
	TypeName string `json:"type_name,omitempty"`
	Record   Record `json:"record"`
}

// MarshalRecords renders records as a JSON array of {kind, type_name, record}.
func MarshalRecords(records []Record) ([]byte, error) {
	out := make([]recordEnvelope, 0, len(records))
	for _, r := range records {
		out = append(out, recordEnvelope{Kind: r.Kind(), TypeName: TypeName(r.TypeCode()), Record: r})
	}
	return json.Marshal(out)
}

func (r RemoteID) MarshalJSON() ([]byte, error) {
	msg, err := remoteid.MarshalMessage(r.Message)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Header
		Counter *uint8          `json:"counter,omitempty"`
		Message json.RawMessage `json:"message"`
	}{r.Header, r.Counter, msg})
}
