package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"stakebank/storage"
)

var errNilManager = errors.New("state: manager unavailable")

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Manager stages RLP encoded records over a key-value database. Writes are
// buffered until Commit so a failed invocation can be discarded as a whole.
type Manager struct {
	db      storage.Database
	pending map[string]pendingWrite
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string]pendingWrite)}
}

// ErrEmptyKey is returned when a KV helper is called without a key.
var ErrEmptyKey = errors.New("state: empty key")

func hashKey(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return ethcrypto.Keccak256(key), nil
}

func (m *Manager) usable() error {
	if m == nil || m.db == nil {
		return errNilManager
	}
	return nil
}

// load returns the staged or persisted bytes for a hashed key. Missing and
// deleted entries both yield nil.
func (m *Manager) load(hashed []byte) ([]byte, error) {
	if err := m.usable(); err != nil {
		return nil, err
	}
	if staged, ok := m.pending[string(hashed)]; ok {
		if staged.deleted {
			return nil, nil
		}
		return staged.value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) stage(hashed []byte, w pendingWrite) error {
	if err := m.usable(); err != nil {
		return err
	}
	m.pending[string(hashed)] = w
	return nil
}

func (m *Manager) loadKey(key []byte) ([]byte, []byte, error) {
	hashed, err := hashKey(key)
	if err != nil {
		return nil, nil, err
	}
	data, err := m.load(hashed)
	return hashed, data, err
}

// KVPut stages the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	hashed, err := hashKey(key)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.stage(hashed, pendingWrite{value: encoded})
}

// KVGet decodes the record under key into out and reports whether it
// existed. A nil out only checks presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	_, data, err := m.loadKey(key)
	if err != nil || len(data) == 0 {
		return false, err
	}
	if out != nil {
		if err := rlp.DecodeBytes(data, out); err != nil {
			return false, fmt.Errorf("state: decode %q: %w", key, err)
		}
	}
	return true, nil
}

// KVDelete stages the removal of key.
func (m *Manager) KVDelete(key []byte) error {
	hashed, err := hashKey(key)
	if err != nil {
		return err
	}
	return m.stage(hashed, pendingWrite{deleted: true})
}

// KVAppend adds value to the byte-slice set stored under key. Values already
// present are skipped so insertion order stays stable.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	hashed, data, err := m.loadKey(key)
	if err != nil {
		return err
	}
	var members [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &members); err != nil {
			return fmt.Errorf("state: decode %q: %w", key, err)
		}
	}
	if slices.ContainsFunc(members, func(existing []byte) bool { return bytes.Equal(existing, value) }) {
		return nil
	}
	encoded, err := rlp.EncodeToBytes(append(members, bytes.Clone(value)))
	if err != nil {
		return err
	}
	return m.stage(hashed, pendingWrite{value: encoded})
}

// KVGetList decodes the list under key into out, which must point to a
// slice. An absent key leaves out as an empty, non-nil slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	_, data, err := m.loadKey(key)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		return rlp.DecodeBytes(data, out)
	}
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Ptr || target.IsNil() || target.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("state: list destination must be a slice pointer, got %T", out)
	}
	target.Elem().Set(reflect.MakeSlice(target.Elem().Type(), 0, 0))
	return nil
}

// Dirty reports the number of staged writes.
func (m *Manager) Dirty() int {
	if m == nil {
		return 0
	}
	return len(m.pending)
}

// Commit flushes staged writes to the database in a single batch. Keys are
// written in sorted order.
func (m *Manager) Commit() error {
	if err := m.usable(); err != nil {
		return err
	}
	if len(m.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.pending))
	for key := range m.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, key := range keys {
		write := m.pending[key]
		if write.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), write.value)
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.pending = make(map[string]pendingWrite)
	return nil
}

// Discard drops every staged write.
func (m *Manager) Discard() {
	if m == nil {
		return
	}
	m.pending = make(map[string]pendingWrite)
}
