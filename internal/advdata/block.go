package advdata

import "iter"

// Block is one (length, type, payload) AD structure.
// Payload aliases the buffer it was read from.
type Block struct {
	Length  byte
	Type    byte
	Payload []byte
}

// Tokenize splits buf into AD blocks. It stops at the first zero length or
// at a block whose declared length runs past the end of buf; the blocks read
// so far are returned and the truncated tail is dropped.
func Tokenize(buf []byte) []Block {
	var out []Block
	for b := range Blocks(buf) {
		out = append(out, b)
	}
	return out
}

// Blocks yields the same blocks as Tokenize without collecting them.
func Blocks(buf []byte) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for i := 0; i < len(buf); {
			l := int(buf[i])
			if l == 0 || i+1+l > len(buf) {
				return
			}
			blk := Block{
				Length:  buf[i],
				Type:    buf[i+1],
				Payload: buf[i+2 : i+1+l : i+1+l],
			}
			if !yield(blk) {
				return
			}
			i += 1 + l
		}
	}
}
