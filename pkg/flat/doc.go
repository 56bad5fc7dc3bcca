// Package flat implements a zero-copy binary table format and the builder and
// accessors that produce and read it.
//
// # Layout
//
// A finished buffer is written back to front and read front to back:
//
//	[root UOffsetT][file identifier?] ... vtables, tables, vectors, strings ...
//
// A table starts with an SOffsetT pointing at its vtable (table position
// minus vtable position), followed by inline scalars and UOffsetT references
// to out-of-line data. A vtable is
//
//	[VOffsetT vtable size][VOffsetT table size][VOffsetT field offset]*N
//
// where a field offset of 0 means the field is absent and readers return the
// schema default. Vectors are a uint32 element count followed by the
// elements; strings are byte vectors with a trailing NUL that the count does
// not include. All values are little-endian.
//
// # Building
//
// Children are finished before their parents:
//
//	b := flat.NewBuilder(0)
//	msg, _ := b.CreateString("not found")
//	_ = b.StartTable(3)
//	b.AddInt16(0, 404, 0)
//	b.AddOffset(1, msg)
//	root, _ := b.EndTable()
//	_ = b.Finish(root)
//	buf, _ := b.FinishedBytes()
//
// Tables with the same vtable content share a single vtable in the output.
//
// # Reading
//
//	t, err := flat.GetRoot(buf)
//	code, err := t.GetInt16Slot(0, 0)
//
// Readers never copy unless asked to (StringSlot); every offset dereference
// is bounds-checked so corrupt input fails with ErrMalformedBuffer at the
// accessor that touches it, never at open time.
//
// A Builder is owned by a single goroutine. Finished buffers are immutable
// and may be read concurrently.
package flat
