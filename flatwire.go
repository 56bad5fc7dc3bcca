// Package flatwire encodes Go structs into zero-copy flat buffers and decodes
// them back. The wire format and its builder and accessors live in pkg/flat;
// this package is the struct-level entry point.
package flatwire

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/object"
)

var (
	ErrNotStruct    = object.ErrNotStruct
	ErrNotStructPtr = object.ErrNotStructPtr
	ErrUnsupported  = object.ErrUnsupported
	ErrCycle        = object.ErrCycle
	ErrIdentifier   = errors.New("flatwire: file identifier mismatch")
)

type Options struct {
	InitialSize    int    // initial builder capacity in bytes
	FileIdentifier string // 4 bytes written after the root pointer
	SizePrefixed   bool   // prepend a uint32 length
	ForceDefaults  bool   // write fields equal to their default
}

// Flatwire is safe for concurrent use. Each call borrows its own Builder
// from a pool.
type Flatwire struct {
	Opts Options
	pool sync.Pool
}

func New(opts Options) *Flatwire {
	if opts.InitialSize <= 0 {
		opts.InitialSize = 256
	}
	f := &Flatwire{Opts: opts}
	f.pool.New = func() any {
		b := flat.NewBuilder(f.Opts.InitialSize)
		b.ForceDefaults(f.Opts.ForceDefaults)
		return b
	}
	return f
}

func (f *Flatwire) getBuilder() *flat.Builder {
	return f.pool.Get().(*flat.Builder)
}

func (f *Flatwire) putBuilder(b *flat.Builder) {
	b.Reset()
	f.pool.Put(b)
}

// Encode serializes v and returns an owned copy of the finished buffer.
func (f *Flatwire) Encode(v any) ([]byte, error) {
	return f.AppendEncode(nil, v)
}

// AppendEncode appends the encoding of v to dst.
func (f *Flatwire) AppendEncode(dst []byte, v any) ([]byte, error) {
	b := f.getBuilder()
	defer f.putBuilder(b)
	if err := f.build(b, v); err != nil {
		return dst, err
	}
	buf, err := b.FinishedBytes()
	if err != nil {
		return dst, err
	}
	return append(dst, buf...), nil
}

// Build runs fn against a pooled builder and returns a copy of the buffer it
// finishes. It lets callers drive the Builder by hand and still use the
// configured finishing options: fn returns the root offset.
func (f *Flatwire) Build(fn func(b *flat.Builder) (flat.UOffsetT, error)) ([]byte, error) {
	b := f.getBuilder()
	defer f.putBuilder(b)
	root, err := fn(b)
	if err != nil {
		return nil, err
	}
	if err := f.finish(b, root); err != nil {
		return nil, err
	}
	buf, err := b.FinishedBytes()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf), nil
}

func (f *Flatwire) build(b *flat.Builder, v any) error {
	root, err := object.Pack(b, v)
	if err != nil {
		return err
	}
	return f.finish(b, root)
}

func (f *Flatwire) finish(b *flat.Builder, root flat.UOffsetT) error {
	switch fid := f.Opts.FileIdentifier; {
	case f.Opts.SizePrefixed && fid != "":
		return b.FinishSizePrefixedWithFileIdentifier(root, fid)
	case f.Opts.SizePrefixed:
		return b.FinishSizePrefixed(root)
	case fid != "":
		return b.FinishWithFileIdentifier(root, fid)
	default:
		return b.Finish(root)
	}
}

// Root resolves the root table of data according to the options, checking
// the file identifier when one is configured.
func (f *Flatwire) Root(data []byte) (flat.Table, error) {
	fid := f.Opts.FileIdentifier
	if f.Opts.SizePrefixed {
		if fid != "" && !flat.SizePrefixedBufferHasIdentifier(data, fid) {
			return flat.Table{}, fmt.Errorf("%w: want %q", ErrIdentifier, fid)
		}
		return flat.GetSizePrefixedRoot(data)
	}
	if fid != "" && !flat.BufferHasIdentifier(data, fid) {
		return flat.Table{}, fmt.Errorf("%w: want %q", ErrIdentifier, fid)
	}
	return flat.GetRoot(data)
}

// Decode deep-copies data into the struct out points to.
func (f *Flatwire) Decode(data []byte, out any) error {
	t, err := f.Root(data)
	if err != nil {
		return err
	}
	return object.Unpack(t, out)
}

var std = New(Options{})

// Marshal encodes v with default options.
func Marshal(v any) ([]byte, error) {
	return std.Encode(v)
}

// Unmarshal decodes data produced by Marshal into out.
func Unmarshal(data []byte, out any) error {
	return std.Decode(data, out)
}
