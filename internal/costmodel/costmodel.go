// Package costmodel turns raw quote and book-walk output into comparable
// basis-point figures. Every metric is a *float64: a division whose
// denominator is zero, or whose input is missing, yields nil for that one
// metric and never suppresses the rest of the record.
package costmodel

// QuoteInputs is the priced-quote side: the provider's reference rate, the
// requested source amount, and whatever the chosen option carried.
type QuoteInputs struct {
	Rate         float64
	SourceAmount float64
	FeeTotal     *float64 // source units; nil when the provider omitted it
	TargetAmount *float64 // actual proceeds after provider-side rounding
}

type QuoteMetrics struct {
	FeeBps      *float64
	FeeBpsVsMid *float64
	RoundingBps *float64
}

// NormalizeQuote derives the priced-quote metrics. Fees are treated as
// deducted from the source side before conversion: effective target is
// (source - fee) * rate, compared against the unperturbed mid target
// rate * source.
func NormalizeQuote(in QuoteInputs) QuoteMetrics {
	var m QuoteMetrics
	if in.SourceAmount <= 0 || in.FeeTotal == nil {
		return m
	}
	fee := *in.FeeTotal

	feeBps := fee / in.SourceAmount * 10_000
	m.FeeBps = &feeBps

	midTarget := in.Rate * in.SourceAmount
	if midTarget <= 0 {
		return m
	}
	effTarget := (in.SourceAmount - fee) * in.Rate

	vsMid := (1 - effTarget/midTarget) * 10_000
	m.FeeBpsVsMid = &vsMid

	if in.TargetAmount != nil {
		rounding := (*in.TargetAmount - effTarget) / midTarget * 10_000
		m.RoundingBps = &rounding
	}
	return m
}

// BookInputs is the order-book side: walked proceeds for a two-leg path plus
// the per-leg mid prices (intermediate asset priced in source and target
// currency respectively) and optional per-leg taker fee fractions.
type BookInputs struct {
	SourceAmount float64
	Leg1Mid      float64 // source units per intermediate unit
	Leg2Mid      float64 // target units per intermediate unit
	Proceeds     float64 // target units actually received by the walk
	TakerFee1    *float64
	TakerFee2    *float64
}

type BookMetrics struct {
	ComposedMid    *float64
	BookBps        *float64
	FeeAdjProceeds *float64
	FeeAdjBps      *float64
}

// NormalizeBook derives the order-book metrics. The composed mid is
// leg2Mid/leg1Mid, i.e. target units per source unit ignoring depth and
// fees. When taker fees are supplied they apply multiplicatively to the
// proceeds for a second, fee-inclusive figure; the book-only figure is
// always retained alongside it.
func NormalizeBook(in BookInputs) BookMetrics {
	var m BookMetrics
	if in.Leg1Mid <= 0 || in.Leg2Mid <= 0 {
		return m
	}
	mid := in.Leg2Mid / in.Leg1Mid
	m.ComposedMid = &mid

	midProceeds := in.SourceAmount * mid
	if midProceeds <= 0 {
		return m
	}
	bookBps := (1 - in.Proceeds/midProceeds) * 10_000
	m.BookBps = &bookBps

	if in.TakerFee1 == nil || in.TakerFee2 == nil {
		return m
	}
	adj := in.Proceeds * (1 - *in.TakerFee1) * (1 - *in.TakerFee2)
	m.FeeAdjProceeds = &adj
	adjBps := (1 - adj/midProceeds) * 10_000
	m.FeeAdjBps = &adjBps
	return m
}
