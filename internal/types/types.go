package types

import "time"

type Status string

const (
	StatusOK         Status = "ok"
	StatusIncomplete Status = "incomplete"
	StatusError      Status = "error"
)

// FailureKind tags why a provider call produced no usable data.
type FailureKind string

const (
	FailProvider    FailureKind = "provider_error"
	FailRateLimited FailureKind = "rate_limited"
	FailEmptyBook   FailureKind = "empty_book"
	FailIncomplete  FailureKind = "incomplete"
)

// Corridor is one source->target currency conversion to be costed.
type Corridor struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

func (c Corridor) String() string { return c.Source + c.Target }

// PairMeta describes a corridor plus the two exchange books that realize
// its crypto path (source -> intermediate -> target).
type PairMeta struct {
	Source       string
	Target       string
	Intermediate string
	Leg1         string // intermediate/source book, e.g. "USDTEUR"
	Leg2         string // intermediate/target book, e.g. "USDTGBP"
}

// CostRecord is one immutable row per (corridor, amount, mode). Numeric
// metrics are pointers so a missing value serializes as null rather than 0 —
// downstream consumers must be able to tell "no data" from "zero cost".
type CostRecord struct {
	Ts      time.Time   `json:"ts"`
	Source  string      `json:"source"`
	Target  string      `json:"target"`
	Amount  float64     `json:"amount"`
	Mode    string      `json:"mode"`
	Status  Status      `json:"status"`
	Failure FailureKind `json:"failure,omitempty"`

	Rate         *float64 `json:"rate"`
	PayIn        string   `json:"pay_in,omitempty"`
	PayOut       string   `json:"pay_out,omitempty"`
	TargetAmount *float64 `json:"target_amount"`
	FeeTotal     *float64 `json:"fee_total"`
	FeeBps       *float64 `json:"fee_bps"`
	FeeBpsVsMid  *float64 `json:"fee_bps_vs_mid"`
	RoundingBps  *float64 `json:"rounding_bps"`

	// Order-book path only.
	Path           string   `json:"path,omitempty"`
	ComposedMid    *float64 `json:"composed_mid,omitempty"`
	BookProceeds   *float64 `json:"book_proceeds,omitempty"`
	BookBps        *float64 `json:"book_bps,omitempty"`
	FeeAdjProceeds *float64 `json:"fee_adj_proceeds,omitempty"`
	FeeAdjBps      *float64 `json:"fee_adj_bps,omitempty"`
	Underfilled    bool     `json:"underfilled,omitempty"`
}

// F returns a pointer to v; shorthand for building optional metrics.
func F(v float64) *float64 { return &v }
