// Package codec plugs flatwire into connect so RPC messages travel as flat
// buffers instead of protobuf.
package codec

import (
	"connectrpc.com/connect"

	"github.com/rawbytedev/flatwire"
)

const Name = "flatwire"

// Codec implements connect.Codec. Messages are pointers to plain structs.
type Codec struct {
	fw *flatwire.Flatwire
}

var _ connect.Codec = (*Codec)(nil)

func New(opts flatwire.Options) *Codec {
	return &Codec{fw: flatwire.New(opts)}
}

func (c *Codec) Name() string { return Name }

func (c *Codec) Marshal(msg any) ([]byte, error) {
	return c.fw.Encode(msg)
}

// MarshalStable is Marshal: struct fields are always written in the same
// order, so equal messages encode to equal bytes.
func (c *Codec) MarshalStable(msg any) ([]byte, error) {
	return c.fw.Encode(msg)
}

func (c *Codec) IsBinary() bool { return true }

func (c *Codec) Unmarshal(data []byte, msg any) error {
	return c.fw.Decode(data, msg)
}

// WithCodec registers a flatwire codec on a connect client or handler.
func WithCodec(opts flatwire.Options) connect.Option {
	return connect.WithCodec(New(opts))
}
