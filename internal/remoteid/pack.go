package remoteid

import "fmt"

const packHeaderLen = 4

// Pack is a bundle of fixed-size messages sent in one advertisement.
type Pack struct {
	Counter     uint8     `json:"message_counter"`
	MessageSize uint8     `json:"message_size"`
	Quantity    uint8     `json:"message_quantity"`
	Messages    []Message `json:"-"`
}

// DecodeMessagePack decodes a payload that starts with a pack header:
// b0 message counter, b2 message size, b3 message quantity, messages from
// offset 4. Iteration stops at the first message that would run past the
// end of data.
func DecodeMessagePack(data []byte) (Pack, error) {
	if len(data) < packHeaderLen {
		return Pack{}, fmt.Errorf("%w: have %d bytes", ErrShortPack, len(data))
	}
	p := Pack{
		Counter:     data[0],
		MessageSize: data[2],
		Quantity:    data[3],
	}
	size := int(p.MessageSize)
	if size == 0 {
		return p, nil
	}
	p.Messages = make([]Message, 0, p.Quantity)
	off := packHeaderLen
	for i := 0; i < int(p.Quantity); i++ {
		if off+size > len(data) {
			break
		}
		p.Messages = append(p.Messages, DecodeMessage(data[off:off+size]))
		off += size
	}
	return p, nil
}

// Truncated reports whether fewer messages were decoded than announced.
func (p Pack) Truncated() bool {
	return p.MessageSize != 0 && len(p.Messages) < int(p.Quantity)
}
