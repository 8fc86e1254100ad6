package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/chain-oracles/internal/asset"
)

var bps = decimal.NewFromInt(10_000)

// Row is the price of one pair in a snapshot. Price is zero when Err is set.
type Row struct {
	Pair      Pair
	Price     asset.Price
	Cached    bool
	ChangeBps decimal.Decimal // vs the previous successful refresh
	Err       error
}

// Direction returns the move since the previous refresh.
func (r Row) Direction() Direction {
	return DirectionOf(r.ChangeBps)
}

// Snapshot is one refresh of every watched pair.
type Snapshot struct {
	BlockNumber uint64 // 0 for timer-driven refreshes
	Timestamp   time.Time
	Duration    time.Duration
	Rows        []Row
}

// Failed counts rows without a price.
func (s Snapshot) Failed() int {
	n := 0
	for _, r := range s.Rows {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Cached counts rows answered from the price cache.
func (s Snapshot) Cached() int {
	n := 0
	for _, r := range s.Rows {
		if r.Cached {
			n++
		}
	}
	return n
}

// ChangeBps returns (cur-prev)/prev in basis points, 0 when prev is 0.
func ChangeBps(prev, cur decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev).Mul(bps)
}
