package costmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestNormalizeQuote_AllMetrics(t *testing.T) {
	m := NormalizeQuote(QuoteInputs{
		Rate:         1.2,
		SourceAmount: 1000,
		FeeTotal:     f(5),
		TargetAmount: f(1193.9),
	})

	require.NotNil(t, m.FeeBps)
	assert.InDelta(t, 50.0, *m.FeeBps, 1e-9) // 5/1000 * 10000

	// mid = 1200, effective = 995*1.2 = 1194
	require.NotNil(t, m.FeeBpsVsMid)
	assert.InDelta(t, 50.0, *m.FeeBpsVsMid, 1e-9)

	// (1193.9 - 1194) / 1200 * 10000
	require.NotNil(t, m.RoundingBps)
	assert.InDelta(t, -0.8333333, *m.RoundingBps, 1e-6)
}

func TestNormalizeQuote_MissingFeeYieldsNoMetrics(t *testing.T) {
	m := NormalizeQuote(QuoteInputs{Rate: 1.2, SourceAmount: 1000})

	assert.Nil(t, m.FeeBps)
	assert.Nil(t, m.FeeBpsVsMid)
	assert.Nil(t, m.RoundingBps)
}

func TestNormalizeQuote_ZeroRateKeepsFeeBps(t *testing.T) {
	// One bad metric must not suppress the others: fee_bps only needs the
	// source amount, the vs-mid diagnostics need a positive mid target.
	m := NormalizeQuote(QuoteInputs{Rate: 0, SourceAmount: 1000, FeeTotal: f(5)})

	require.NotNil(t, m.FeeBps)
	assert.InDelta(t, 50.0, *m.FeeBps, 1e-9)
	assert.Nil(t, m.FeeBpsVsMid)
	assert.Nil(t, m.RoundingBps)
}

func TestNormalizeQuote_NoTargetAmountNoRoundingBps(t *testing.T) {
	m := NormalizeQuote(QuoteInputs{Rate: 1.2, SourceAmount: 1000, FeeTotal: f(5)})

	assert.NotNil(t, m.FeeBpsVsMid)
	assert.Nil(t, m.RoundingBps)
}

func TestNormalizeQuote_NonPositiveSourceAmount(t *testing.T) {
	m := NormalizeQuote(QuoteInputs{Rate: 1.2, SourceAmount: 0, FeeTotal: f(5)})
	assert.Nil(t, m.FeeBps)
}

func TestNormalizeQuote_FeeBpsNeverNegativeForNonNegativeFee(t *testing.T) {
	for _, fee := range []float64{0, 0.01, 5, 500} {
		m := NormalizeQuote(QuoteInputs{Rate: 1, SourceAmount: 1000, FeeTotal: f(fee)})
		require.NotNil(t, m.FeeBps)
		assert.GreaterOrEqual(t, *m.FeeBps, 0.0)
	}
}

func TestNormalizeBook_ComposedMidAndBps(t *testing.T) {
	m := NormalizeBook(BookInputs{
		SourceAmount: 1000,
		Leg1Mid:      1.00, // intermediate priced in source
		Leg2Mid:      1.20, // intermediate priced in target
		Proceeds:     1188, // 1% shy of the 1200 mid proceeds
	})

	require.NotNil(t, m.ComposedMid)
	assert.InDelta(t, 1.2, *m.ComposedMid, 1e-9)
	require.NotNil(t, m.BookBps)
	assert.InDelta(t, 100.0, *m.BookBps, 1e-9)
	assert.Nil(t, m.FeeAdjProceeds)
	assert.Nil(t, m.FeeAdjBps)
}

func TestNormalizeBook_TakerFeesApplyMultiplicatively(t *testing.T) {
	m := NormalizeBook(BookInputs{
		SourceAmount: 1000,
		Leg1Mid:      1.00,
		Leg2Mid:      1.20,
		Proceeds:     1200,
		TakerFee1:    f(0.0026),
		TakerFee2:    f(0.0026),
	})

	// Book-only figure is retained alongside the fee-adjusted one.
	require.NotNil(t, m.BookBps)
	assert.InDelta(t, 0.0, *m.BookBps, 1e-9)

	require.NotNil(t, m.FeeAdjProceeds)
	assert.InDelta(t, 1200*0.9974*0.9974, *m.FeeAdjProceeds, 1e-9)
	require.NotNil(t, m.FeeAdjBps)
	assert.InDelta(t, (1-0.9974*0.9974)*10000, *m.FeeAdjBps, 1e-6)
}

func TestNormalizeBook_OneMissingFeeSkipsAdjustment(t *testing.T) {
	m := NormalizeBook(BookInputs{
		SourceAmount: 1000,
		Leg1Mid:      1.00,
		Leg2Mid:      1.20,
		Proceeds:     1200,
		TakerFee1:    f(0.0026),
	})
	assert.NotNil(t, m.BookBps)
	assert.Nil(t, m.FeeAdjBps)
}

func TestNormalizeBook_ZeroMidsYieldNothing(t *testing.T) {
	m := NormalizeBook(BookInputs{SourceAmount: 1000, Leg1Mid: 0, Leg2Mid: 1.2, Proceeds: 100})
	assert.Nil(t, m.ComposedMid)
	assert.Nil(t, m.BookBps)

	m = NormalizeBook(BookInputs{SourceAmount: 0, Leg1Mid: 1, Leg2Mid: 1.2, Proceeds: 0})
	assert.NotNil(t, m.ComposedMid)
	assert.Nil(t, m.BookBps)
}
