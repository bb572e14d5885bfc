package ladder

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNiceStep_Brackets(t *testing.T) {
	cases := []struct {
		v    float64
		step float64
	}{
		{1, 1},
		{99, 1},
		{100, 10},
		{999, 10},
		{1_000, 100},
		{9_999, 100},
		{10_000, 1_000},
		{99_999, 1_000},
		{100_000, 10_000},
		{1_000_000, 100_000},
		{10_000_000, 1_000_000},
		{50_000_000, 1_000_000},
	}
	for _, c := range cases {
		assert.Equal(t, c.step, NiceStep(c.v), "v=%v", c.v)
	}
}

func TestRoundUp_AlwaysCeiling(t *testing.T) {
	assert.Equal(t, 1.0, RoundUp(0.013))
	assert.Equal(t, 9.0, RoundUp(8.55))
	assert.Equal(t, 120.0, RoundUp(113.2))
	assert.Equal(t, 110.0, RoundUp(110.0))
	assert.Equal(t, 1_200.0, RoundUp(1_101.0))
}

func TestGenerate_RoundsAndSorts(t *testing.T) {
	anchors := []float64{10, 100, 1_000}

	// 0.85 EUR per local unit: ladder in local units is coarser than the
	// anchors before rounding.
	got := Generate(anchors, 0.85)

	assert.Equal(t, []float64{12, 120, 1_200}, got)
	assert.True(t, sort.Float64sAreSorted(got))
}

func TestGenerate_DedupesCollidingAnchors(t *testing.T) {
	// With a large reference value per unit, small anchors all collapse to
	// the 1-step floor after ceiling.
	got := Generate([]float64{10, 20, 30, 10_000}, 100)

	assert.Equal(t, []float64{1, 100}, got)
}

func TestGenerate_Idempotent(t *testing.T) {
	anchors := []float64{10, 100, 1_000, 10_000, 100_000}
	first := Generate(anchors, 0.0123)
	second := Generate(anchors, 0.0123)
	assert.Equal(t, first, second)
}

func TestGenerate_MonotoneInAnchors(t *testing.T) {
	anchors := []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}
	for _, rate := range []float64{0.004, 0.5, 1, 1.17, 150} {
		got := Generate(anchors, rate)
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i], got[i-1], "rate=%v", rate)
		}
	}
}

func TestGenerate_FallbackWhenRateUnknown(t *testing.T) {
	assert.Equal(t, Fallback, Generate([]float64{10, 100}, 0))
	assert.Equal(t, Fallback, Generate([]float64{10, 100}, -1))
}

func TestRateTable_LadderCachedPerCurrency(t *testing.T) {
	tbl := NewRateTable("EUR")
	tbl.Set("GBP", 1.17)

	anchors := []float64{10, 100}
	first := tbl.LadderFor("GBP", anchors)
	second := tbl.LadderFor("GBP", anchors)

	// 10/1.17 -> 8.55 -> 9; 100/1.17 -> 85.47 -> 86 (still in the 1-step bracket)
	assert.Equal(t, []float64{9, 86}, first)
	assert.Equal(t, first, second)
}

func TestRateTable_ReferenceIsUnity(t *testing.T) {
	tbl := NewRateTable("EUR")
	r, ok := tbl.Lookup("EUR")
	assert.True(t, ok)
	assert.Equal(t, 1.0, r)

	assert.Equal(t, []float64{10, 100}, tbl.LadderFor("EUR", []float64{10, 100}))
}

func TestRateTable_UnknownCurrencyUsesFallback(t *testing.T) {
	tbl := NewRateTable("EUR")
	assert.Equal(t, Fallback, tbl.LadderFor("XXX", []float64{10, 100}))
}
