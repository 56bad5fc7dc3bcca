// Package store keeps finished flat buffers in a pebble database, keyed by
// ksuid so that scans return them in creation order.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

var ErrNotFound = errors.New("store: not found")

type Options struct {
	Dir      string
	InMemory bool // ignore Dir and keep everything in memory
	Sync     bool // fsync every write
	// SizePrefixed buffers carry a u32 length before the root offset.
	SizePrefixed bool
	Logger       *slog.Logger
}

// Store is safe for concurrent use.
type Store struct {
	db           *pebble.DB
	wo           *pebble.WriteOptions
	sizePrefixed bool
	log          *slog.Logger
}

func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	po := &pebble.Options{Logger: pebbleLogger{log}}
	dir := opts.Dir
	if opts.InMemory {
		po.FS = vfs.NewMem()
		dir = ""
	} else if dir == "" {
		return nil, errors.New("store: no directory given")
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dir, err)
	}
	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}
	log.Debug("store opened", "dir", dir, "in_memory", opts.InMemory, "size_prefixed", opts.SizePrefixed)
	return &Store{db: db, wo: wo, sizePrefixed: opts.SizePrefixed, log: log}, nil
}

// Put stores a copy of buf under a new id. buf must be a finished buffer
// whose root table resolves.
func (s *Store) Put(buf []byte) (ksuid.KSUID, error) {
	root, err := s.root(buf)
	if err != nil {
		return ksuid.Nil, err
	}
	if _, err := root.Vtable(); err != nil {
		return ksuid.Nil, err
	}
	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), buf, s.wo); err != nil {
		return ksuid.Nil, err
	}
	s.log.Debug("buffer stored", "id", id, "bytes", len(buf))
	return id, nil
}

// Get returns an owned copy of the buffer stored under id.
func (s *Store) Get(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(data), nil
}

// Root loads the buffer under id and resolves its root table.
func (s *Store) Root(id ksuid.KSUID) (flat.Table, error) {
	buf, err := s.Get(id)
	if err != nil {
		return flat.Table{}, err
	}
	return s.root(buf)
}

func (s *Store) root(buf []byte) (flat.Table, error) {
	if s.sizePrefixed {
		return flat.GetSizePrefixedRoot(buf)
	}
	return flat.GetRoot(buf)
}

func (s *Store) Delete(id ksuid.KSUID) error {
	_, closer, err := s.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	closer.Close()
	if err := s.db.Delete(id.Bytes(), s.wo); err != nil {
		return err
	}
	s.log.Debug("buffer deleted", "id", id)
	return nil
}

// Scan calls fn for every stored buffer in id order until fn returns an
// error. buf is only valid during the call.
func (s *Store) Scan(fn func(id ksuid.KSUID, buf []byte) error) error {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		id, err := ksuid.FromBytes(it.Key())
		if err != nil {
			it.Close()
			return fmt.Errorf("store: bad key %x: %w", it.Key(), err)
		}
		val, err := it.ValueAndErr()
		if err != nil {
			it.Close()
			return err
		}
		if err := fn(id, val); err != nil {
			it.Close()
			return err
		}
	}
	if err := it.Error(); err != nil {
		it.Close()
		return err
	}
	return it.Close()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// pebbleLogger routes pebble's internal logging to slog.
type pebbleLogger struct {
	log *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), "component", "pebble")
}

func (l pebbleLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.log.Error(msg, "component", "pebble")
	panic(msg)
}
