// Package ladder derives per-currency request sizes from a universal
// reference-currency anchor ladder, so that "10k EUR worth" means the same
// economic size whether the local unit is GBP, JPY or IDR.
package ladder

import (
	"math"
	"sort"
	"sync"
)

// Fallback is used when no reference rate is known for a currency. The
// currency still gets tested, just without size-normalization guarantees.
var Fallback = []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}

// NiceStep picks the rounding granularity for a raw amount by magnitude
// bracket: 1 below 100, then one decade coarser per bracket.
func NiceStep(v float64) float64 {
	switch {
	case v < 100:
		return 1
	case v < 1_000:
		return 10
	case v < 10_000:
		return 100
	case v < 100_000:
		return 1_000
	case v < 1_000_000:
		return 10_000
	case v < 10_000_000:
		return 100_000
	default:
		return 1_000_000
	}
}

// RoundUp ceils v to its nice step. Always upward so small brackets never
// round to zero.
func RoundUp(v float64) float64 {
	step := NiceStep(v)
	return math.Ceil(v/step) * step
}

// Generate converts anchor values (reference currency) into local amounts
// using refRate, the reference-currency value of one local unit. The result
// is deduplicated and sorted ascending; adjacent anchors that round to the
// same amount collapse into one entry. refRate <= 0 yields the Fallback
// ladder.
func Generate(anchors []float64, refRate float64) []float64 {
	if refRate <= 0 {
		out := make([]float64, len(Fallback))
		copy(out, Fallback)
		return out
	}
	seen := make(map[float64]struct{}, len(anchors))
	out := make([]float64, 0, len(anchors))
	for _, u := range anchors {
		if u <= 0 {
			continue
		}
		amt := RoundUp(u / refRate)
		if _, ok := seen[amt]; ok {
			continue
		}
		seen[amt] = struct{}{}
		out = append(out, amt)
	}
	sort.Float64s(out)
	return out
}

// RateTable holds the reference-currency value of one unit of each currency.
// It is populated once at run start and read-only afterwards; ladders are
// cached per currency on first use.
type RateTable struct {
	Reference string

	mu      sync.RWMutex
	rates   map[string]float64
	ladders map[string][]float64
}

func NewRateTable(reference string) *RateTable {
	return &RateTable{
		Reference: reference,
		rates:     make(map[string]float64, 16),
		ladders:   make(map[string][]float64, 16),
	}
}

// Set records the reference value of one unit of ccy. Intended for the
// bootstrap phase only.
func (t *RateTable) Set(ccy string, refRate float64) {
	t.mu.Lock()
	t.rates[ccy] = refRate
	delete(t.ladders, ccy)
	t.mu.Unlock()
}

func (t *RateTable) Lookup(ccy string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if ccy == t.Reference {
		return 1, true
	}
	r, ok := t.rates[ccy]
	return r, ok && r > 0
}

// LadderFor returns the amount ladder for ccy, generating and caching it on
// first use. Unknown currencies get the Fallback ladder.
func (t *RateTable) LadderFor(ccy string, anchors []float64) []float64 {
	t.mu.RLock()
	if l, ok := t.ladders[ccy]; ok {
		t.mu.RUnlock()
		return l
	}
	t.mu.RUnlock()

	rate, ok := t.Lookup(ccy)
	if !ok {
		rate = 0
	}
	l := Generate(anchors, rate)

	t.mu.Lock()
	t.ladders[ccy] = l
	t.mu.Unlock()
	return l
}
