package state

var lastBlockKey = []byte("host/last-block")

type storedBlock struct {
	Height uint64
	Time   uint64
}

// LastBlock returns the height and time of the latest block the host began.
func (m *Manager) LastBlock() (height, time uint64, ok bool, err error) {
	var stored storedBlock
	ok, err = m.KVGet(lastBlockKey, &stored)
	if err != nil || !ok {
		return 0, 0, ok, err
	}
	return stored.Height, stored.Time, true, nil
}

// PutLastBlock records the latest block the host began.
func (m *Manager) PutLastBlock(height, time uint64) error {
	return m.KVPut(lastBlockKey, &storedBlock{Height: height, Time: time})
}
