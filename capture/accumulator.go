package capture

// accumulator collects recorded chunks for exactly one session, in arrival
// order. It has a single owner (the session that created it) and is drained
// and discarded on every exit from recording, never shared or reused.
type accumulator struct {
	chunks [][]byte
	size   int
}

func newAccumulator() *accumulator {
	return &accumulator{chunks: [][]byte{}}
}

// append stores a copy of the chunk so the caller may reuse its buffer.
func (a *accumulator) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	a.chunks = append(a.chunks, buf)
	a.size += len(buf)
}

// bytes returns the total number of buffered bytes.
func (a *accumulator) bytes() int {
	return a.size
}

// drain joins all chunks into a single blob and empties the accumulator.
func (a *accumulator) drain() []byte {
	blob := make([]byte, 0, a.size)
	for _, c := range a.chunks {
		blob = append(blob, c...)
	}
	a.chunks = nil
	a.size = 0
	return blob
}
