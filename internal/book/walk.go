// Package book simulates volume-weighted execution against a static L2
// snapshot. Walks are pure: no network, no mutation of the snapshot.
package book

type Level struct {
	Price  float64
	Volume float64
}

// Snapshot holds both sides of an order book: asks ascending by price,
// bids descending.
type Snapshot struct {
	Asks []Level
	Bids []Level
}

// Usable reports whether the snapshot can support a walk. An empty side
// means no meaningful fill price exists.
func (s Snapshot) Usable() bool {
	return len(s.Asks) > 0 && len(s.Bids) > 0
}

// BestAsk returns the top ask price, 0 if none.
func (s Snapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// BestBid returns the top bid price, 0 if none.
func (s Snapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// Mid is the unperturbed midpoint of the top of book, 0 when a side is
// missing.
func (s Snapshot) Mid() float64 {
	if len(s.Asks) == 0 || len(s.Bids) == 0 {
		return 0
	}
	return 0.5 * (s.Asks[0].Price + s.Bids[0].Price)
}

type BuyResult struct {
	BaseAcquired float64
	QuoteSpent   float64
	FullyFilled  bool
}

// WalkBuy spends up to budget (quote units) against ask levels, cheapest
// first. A level whose full cost fits is consumed whole; the last level is
// consumed fractionally. Running out of levels is a shortfall, not an error:
// the caller sees QuoteSpent < budget and FullyFilled == false.
func WalkBuy(budget float64, asks []Level) BuyResult {
	var r BuyResult
	if budget <= 0 {
		return r
	}
	remaining := budget
	for _, lvl := range asks {
		if lvl.Price <= 0 || lvl.Volume <= 0 {
			continue
		}
		cost := lvl.Price * lvl.Volume
		if cost <= remaining {
			r.BaseAcquired += lvl.Volume
			r.QuoteSpent += cost
			remaining -= cost
			if remaining == 0 {
				break
			}
			continue
		}
		r.BaseAcquired += remaining / lvl.Price
		r.QuoteSpent += remaining
		remaining = 0
		break
	}
	r.FullyFilled = remaining == 0
	return r
}

type SellResult struct {
	QuoteReceived float64
	BaseUsed      float64
	FullyFilled   bool
}

// WalkSell disposes of up to base (base units) against bid levels, best
// first, accumulating quote proceeds. Symmetric to WalkBuy, including the
// shortfall convention (BaseUsed < base).
func WalkSell(base float64, bids []Level) SellResult {
	var r SellResult
	if base <= 0 {
		return r
	}
	remaining := base
	for _, lvl := range bids {
		if lvl.Price <= 0 || lvl.Volume <= 0 {
			continue
		}
		take := lvl.Volume
		if take > remaining {
			take = remaining
		}
		r.BaseUsed += take
		r.QuoteReceived += take * lvl.Price
		remaining -= take
		if remaining == 0 {
			break
		}
	}
	r.FullyFilled = remaining == 0
	return r
}

// PathResult is a two-leg walk: buy the intermediate asset with the source
// budget, then sell it for the target currency.
type PathResult struct {
	Buy         BuyResult
	Sell        SellResult
	Proceeds    float64
	Underfilled bool
}

// WalkPath composes the two legs sequentially; leg 2 consumes exactly what
// leg 1 acquired, so it must not start before leg 1 is done.
func WalkPath(budget float64, leg1, leg2 Snapshot) PathResult {
	buy := WalkBuy(budget, leg1.Asks)
	sell := WalkSell(buy.BaseAcquired, leg2.Bids)
	return PathResult{
		Buy:         buy,
		Sell:        sell,
		Proceeds:    sell.QuoteReceived,
		Underfilled: !buy.FullyFilled || !sell.FullyFilled,
	}
}
