package remoteid

import "encoding/json"

type envelope struct {
	Name        string  `json:"name"`
	MessageType int     `json:"message_type"`
	Fields      Message `json:"fields,omitempty"`
}

// MarshalMessage renders m with its name and type next to its fields.
func MarshalMessage(m Message) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(envelope{Name: m.Name(), MessageType: m.MessageType(), Fields: m})
}

// MarshalJSON renders the pack header followed by each message envelope.
func (p Pack) MarshalJSON() ([]byte, error) {
	msgs := make([]json.RawMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		b, err := MarshalMessage(m)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, b)
	}
	type header Pack
	return json.Marshal(struct {
		header
		Messages []json.RawMessage `json:"messages"`
	}{header(p), msgs})
}
