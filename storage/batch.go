package storage

import "bytes"

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch is an ordered list of writes applied together by Database.Write.
type Batch struct {
	ops []batchOp
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put queues value under key. Both slices are copied.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), value: bytes.Clone(value)})
}

// Delete queues the removal of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), delete: true})
}

// Len reports the number of queued operations.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
}

// replay feeds the queued operations to put and del in insertion order.
func (b *Batch) replay(put func(key, value []byte), del func(key []byte)) {
	for _, op := range b.ops {
		if op.delete {
			del(op.key)
		} else {
			put(op.key, op.value)
		}
	}
}
