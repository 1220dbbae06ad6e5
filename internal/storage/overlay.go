package storage

import (
	"sort"
	"strings"
)

// Overlay buffers writes on top of a root DB. Reads see the buffered
// writes first and fall through to the root. Nothing reaches the root
// until Commit; Discard drops the buffer.
//
// An Overlay is not safe for concurrent use. The ledger holds its lock
// for the lifetime of each overlay.
type Overlay struct {
	root    DB
	pending map[string][]byte
	deleted map[string]struct{}
}

// NewOverlay creates an empty overlay on root.
func NewOverlay(root DB) *Overlay {
	return &Overlay{
		root:    root,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Get returns the buffered value for key, or the root's value.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := o.pending[k]; ok {
		return append([]byte{}, v...), nil
	}
	if _, ok := o.deleted[k]; ok {
		return nil, ErrNotFound
	}
	return o.root.Get(key)
}

// Put buffers a write.
func (o *Overlay) Put(key, value []byte) error {
	k := string(key)
	delete(o.deleted, k)
	o.pending[k] = append([]byte{}, value...)
	return nil
}

// Delete buffers a deletion.
func (o *Overlay) Delete(key []byte) error {
	k := string(key)
	delete(o.pending, k)
	o.deleted[k] = struct{}{}
	return nil
}

// Has reports whether key exists in the overlay view.
func (o *Overlay) Has(key []byte) (bool, error) {
	k := string(key)
	if _, ok := o.pending[k]; ok {
		return true, nil
	}
	if _, ok := o.deleted[k]; ok {
		return false, nil
	}
	return o.root.Has(key)
}

// ForEach iterates the merged view of root and buffer in key order.
func (o *Overlay) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	err := o.root.ForEach(prefix, func(key, value []byte) error {
		k := string(key)
		if _, ok := o.deleted[k]; ok {
			return nil
		}
		merged[k] = append([]byte{}, value...)
		return nil
	})
	if err != nil {
		return err
	}
	p := string(prefix)
	for k, v := range o.pending {
		if strings.HasPrefix(k, p) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), append([]byte{}, merged[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Dirty reports whether the overlay holds any buffered change.
func (o *Overlay) Dirty() bool {
	return len(o.pending) > 0 || len(o.deleted) > 0
}

// Commit writes the buffer to the root and empties it. When the root is a
// Batcher the whole buffer lands in one atomic batch.
func (o *Overlay) Commit() error {
	if !o.Dirty() {
		return nil
	}
	var b Batch
	if batcher, ok := o.root.(Batcher); ok {
		b = batcher.NewBatch()
	} else {
		b = &directBatch{db: o.root}
	}
	for k := range o.deleted {
		if err := b.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for k, v := range o.pending {
		if err := b.Put([]byte(k), v); err != nil {
			return err
		}
	}
	if err := b.Commit(); err != nil {
		return err
	}
	o.Discard()
	return nil
}

// Discard drops every buffered change.
func (o *Overlay) Discard() {
	o.pending = make(map[string][]byte)
	o.deleted = make(map[string]struct{})
}

// Close discards the buffer. The root stays open.
func (o *Overlay) Close() error {
	o.Discard()
	return nil
}

// directBatch applies writes one by one on roots without batch support.
type directBatch struct {
	db  DB
	ops []memoryOp
}

func (d *directBatch) Put(key, value []byte) error {
	d.ops = append(d.ops, memoryOp{key: string(key), value: value})
	return nil
}

func (d *directBatch) Delete(key []byte) error {
	d.ops = append(d.ops, memoryOp{key: string(key), del: true})
	return nil
}

func (d *directBatch) Commit() error {
	for _, op := range d.ops {
		var err error
		if op.del {
			err = d.db.Delete([]byte(op.key))
		} else {
			err = d.db.Put([]byte(op.key), op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
