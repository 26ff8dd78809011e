package server

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"stakebank/core"
)

// BlockClock hands out block contexts for incoming invocations. Heights
// advance by one per execute; time follows the injected clock and never
// moves backwards.
type BlockClock struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	height uint64
	last   uint64
}

// NewBlockClock resumes after last: heights continue from last.Height and
// times never fall below last.Time.
func NewBlockClock(clock clockwork.Clock, last core.Block) *BlockClock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BlockClock{clock: clock, height: last.Height, last: last.Time}
}

// Next advances the height and returns the new block.
func (b *BlockClock) Next() core.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.height++
	return core.Block{Height: b.height, Time: b.now()}
}

// Current returns the latest block without advancing it.
func (b *BlockClock) Current() core.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.Block{Height: b.height, Time: b.now()}
}

func (b *BlockClock) now() uint64 {
	ts := b.clock.Now().Unix()
	if ts < 0 {
		ts = 0
	}
	if uint64(ts) > b.last {
		b.last = uint64(ts)
	}
	return b.last
}
