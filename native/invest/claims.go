package invest

import (
	"math/big"
)

type claimsStore interface {
	InvestClaims(owner [20]byte) ([]ClaimEntry, error)
	PutInvestClaims(owner [20]byte, entries []ClaimEntry) error
}

// ClaimsQueue keeps per-owner payout entries in creation order.
type ClaimsQueue struct {
	store claimsStore
}

// NewClaimsQueue binds a queue to its store.
func NewClaimsQueue(store claimsStore) *ClaimsQueue {
	return &ClaimsQueue{store: store}
}

// Create appends a claim for owner.
func (q *ClaimsQueue) Create(owner [20]byte, amount *big.Int, release uint64) error {
	if q == nil || q.store == nil {
		return errNilState
	}
	entries, err := q.store.InvestClaims(owner)
	if err != nil {
		return err
	}
	entries = append(entries, ClaimEntry{Amount: new(big.Int).Set(amount), ReleaseTime: release})
	return q.store.PutInvestClaims(owner, entries)
}

// Drain pays out matured entries oldest first until limit is reached. The
// last entry touched may be consumed partially; it keeps its position. A nil
// limit drains every matured entry. The store is only written when something
// was paid.
func (q *ClaimsQueue) Drain(owner [20]byte, now uint64, limit *big.Int) (*big.Int, error) {
	if q == nil || q.store == nil {
		return nil, errNilState
	}
	entries, err := q.store.InvestClaims(owner)
	if err != nil {
		return nil, err
	}
	paid := big.NewInt(0)
	remaining := make([]ClaimEntry, 0, len(entries))
	for i, entry := range entries {
		if limit != nil && paid.Cmp(limit) >= 0 {
			remaining = append(remaining, entries[i:]...)
			break
		}
		if !entry.Matured(now) {
			remaining = append(remaining, entry)
			continue
		}
		take := new(big.Int).Set(entry.Amount)
		if limit != nil {
			available := new(big.Int).Sub(limit, paid)
			if take.Cmp(available) > 0 {
				take = available
			}
		}
		paid.Add(paid, take)
		if left := new(big.Int).Sub(entry.Amount, take); left.Sign() > 0 {
			remaining = append(remaining, ClaimEntry{Amount: left, ReleaseTime: entry.ReleaseTime})
		}
	}
	if paid.Sign() == 0 {
		return paid, nil
	}
	if err := q.store.PutInvestClaims(owner, remaining); err != nil {
		return nil, err
	}
	return paid, nil
}

// List returns every entry of owner annotated with its maturity at now.
func (q *ClaimsQueue) List(owner [20]byte, now uint64) ([]ClaimView, error) {
	if q == nil || q.store == nil {
		return nil, errNilState
	}
	entries, err := q.store.InvestClaims(owner)
	if err != nil {
		return nil, err
	}
	out := make([]ClaimView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ClaimView{
			Amount:      new(big.Int).Set(entry.Amount),
			ReleaseTime: entry.ReleaseTime,
			Matured:     entry.Matured(now),
		})
	}
	return out, nil
}

// Matured sums the entries of owner that can be paid at now.
func (q *ClaimsQueue) Matured(owner [20]byte, now uint64) (*big.Int, error) {
	views, err := q.List(owner, now)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, v := range views {
		if v.Matured {
			total.Add(total, v.Amount)
		}
	}
	return total, nil
}
