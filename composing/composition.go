package composing

import "sort"

// Composition is the composed content replacing the span
// [StartOffset, EndOffset) of the document it was included in
type Composition struct {
	StartOffset int
	EndOffset   int
	Body        []byte
}

// Splice returns a new document where every composition replaced its
// span of document. spans must not overlap, they are applied from the
// last to the first so all offsets stay valid against document
func Splice(document []byte, compositions []Composition) []byte {
	if len(compositions) == 0 {
		out := make([]byte, len(document))
		copy(out, document)
		return out
	}

	ordered := make([]Composition, len(compositions))
	copy(ordered, compositions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartOffset < ordered[j].StartOffset
	})

	size := len(document)
	for _, c := range ordered {
		size += len(c.Body) - (c.EndOffset - c.StartOffset)
	}

	out := make([]byte, size)
	tail := len(document)
	pos := size
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]

		pos -= tail - c.EndOffset
		copy(out[pos:], document[c.EndOffset:tail])

		pos -= len(c.Body)
		copy(out[pos:], c.Body)

		tail = c.StartOffset
	}
	copy(out[:pos], document[:tail])

	return out
}
