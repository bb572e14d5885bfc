// Package pipeline drives one estimation run: resolve the caller identity,
// bootstrap reference rates, then walk every (corridor, amount, mode)
// combination sequentially, emitting one cost record each. Per-record
// failures degrade the record, never the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sam121/fx-curves/internal/book"
	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/kraken"
	"github.com/sam121/fx-curves/internal/connectors/wise"
	"github.com/sam121/fx-curves/internal/costmodel"
	"github.com/sam121/fx-curves/internal/ladder"
	"github.com/sam121/fx-curves/internal/metrics"
	"github.com/sam121/fx-curves/internal/report"
	"github.com/sam121/fx-curves/internal/types"
	"go.uber.org/zap"
)

// ModeBook is the mode tag for order-book path records; priced-quote records
// carry the payout mode instead.
const ModeBook = "BOOK"

type quoteRail interface {
	FetchQuote(ctx context.Context, q wise.QuoteRequest) wise.QuoteResult
	ResolveProfile(ctx context.Context) (int64, error)
	ReferenceRate(ctx context.Context, ccy string) (float64, error)
}

type bookRail interface {
	FetchBook(ctx context.Context, pair string) kraken.BookResult
	TakerFees(ctx context.Context, pairs []string) (map[string]float64, error)
}

// Emitter receives each finished record; Redis in production, a log sink in
// dry runs.
type Emitter interface {
	Publish(ctx context.Context, rec types.CostRecord) error
}

type Pipeline struct {
	cfg     *config.Config
	log     *zap.Logger
	quotes  quoteRail
	books   bookRail
	emit    Emitter
	rates   *ladder.RateTable
	limiter *Limiter
	now     func() time.Time
}

func New(cfg *config.Config, quotes quoteRail, books bookRail, emit Emitter, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		log:     log,
		quotes:  quotes,
		books:   books,
		emit:    emit,
		rates:   ladder.NewRateTable(cfg.Reference.Currency),
		limiter: NewLimiter(1, cfg.Timings.ProviderRPS),
		now:     time.Now,
	}
}

// Run processes every pair to completion. The two fatal preconditions —
// no usable profile identity, no pairs at all — abort before any per-amount
// work; everything after that is per-record.
func (p *Pipeline) Run(ctx context.Context, pairs []types.PairMeta) (report.Summary, error) {
	asm := report.NewAssembler()

	if len(pairs) == 0 {
		return asm.Summary(), fmt.Errorf("no pairs to process")
	}

	profileID, err := p.quotes.ResolveProfile(ctx)
	if err != nil {
		return asm.Summary(), fmt.Errorf("resolve profile: %w", err)
	}
	p.cfg.Wise.ProfileID = profileID
	p.log.Info("profile resolved", zap.Int64("profile_id", profileID))

	p.bootstrapRates(ctx, pairs)

	var fees map[string]float64
	if p.cfg.Costing.ApplyTakerFees {
		legs := make([]string, 0, len(pairs)*2)
		for _, pm := range pairs {
			legs = append(legs, pm.Leg1, pm.Leg2)
		}
		fees, err = p.books.TakerFees(ctx, legs)
		if err != nil {
			p.log.Warn("taker fee lookup failed, book records stay fee-free", zap.Error(err))
			fees = nil
		}
	}

	for _, pm := range pairs {
		amounts := p.rates.LadderFor(pm.Source, p.cfg.Reference.Anchors)
		p.log.Info("processing corridor",
			zap.String("corridor", pm.Source+"->"+pm.Target),
			zap.Int("amounts", len(amounts)),
		)
		for _, amount := range amounts {
			for _, payOut := range p.cfg.Wise.PayOuts {
				p.publish(ctx, asm, p.quoteRecord(ctx, pm, amount, payOut))
				if err := p.pause(ctx); err != nil {
					return asm.Summary(), err
				}
			}
			p.publish(ctx, asm, p.bookRecord(ctx, pm, amount, fees))
			if err := p.pause(ctx); err != nil {
				return asm.Summary(), err
			}
		}
	}

	s := asm.Summary()
	p.log.Info("run finished",
		zap.Int("total", s.Total),
		zap.Int("valid", s.Valid),
		zap.Int("incomplete", s.Incomplete),
		zap.Int("errors", s.Errors),
	)
	return s, nil
}

// bootstrapRates fills the read-only rate table once, before any per-amount
// work. A currency whose lookup fails just falls back to the generic ladder.
func (p *Pipeline) bootstrapRates(ctx context.Context, pairs []types.PairMeta) {
	seen := make(map[string]struct{}, len(pairs))
	for _, pm := range pairs {
		if _, ok := seen[pm.Source]; ok {
			continue
		}
		seen[pm.Source] = struct{}{}
		if pm.Source == p.rates.Reference {
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		rate, err := p.quotes.ReferenceRate(ctx, pm.Source)
		if err != nil {
			p.log.Warn("reference rate unavailable, using fallback ladder",
				zap.String("currency", pm.Source), zap.Error(err))
			continue
		}
		p.rates.Set(pm.Source, rate)
		p.log.Info("reference rate cached",
			zap.String("currency", pm.Source), zap.Float64("rate", rate))
	}
}

func (p *Pipeline) quoteRecord(ctx context.Context, pm types.PairMeta, amount float64, payOut string) types.CostRecord {
	req := wise.QuoteRequest{
		Source: pm.Source,
		Target: pm.Target,
		Amount: amount,
		PayIn:  p.cfg.Wise.PayIn,
		PayOut: payOut,
	}
	if err := req.Validate(); err != nil {
		// Constraint violations are rejected before dispatch; the row is
		// still emitted so the slot is visible downstream.
		p.log.Error("invalid quote request", zap.Error(err))
		return report.FailureRecord(p.now(), pm.Source, pm.Target, amount, payOut, types.FailProvider)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return report.FailureRecord(p.now(), pm.Source, pm.Target, amount, payOut, types.FailProvider)
	}
	q := p.quotes.FetchQuote(ctx, req)

	switch q.Failure {
	case types.FailProvider, types.FailRateLimited:
		return report.FailureRecord(p.now(), pm.Source, pm.Target, amount, payOut, q.Failure)
	}

	rec := types.CostRecord{
		Ts:     p.now(),
		Source: pm.Source,
		Target: pm.Target,
		Amount: amount,
		Mode:   payOut,
		Status: types.StatusOK,
		Rate:   q.Rate,
	}
	if q.Option != nil {
		rec.PayIn = q.Option.PayIn
		rec.PayOut = q.Option.PayOut
		rec.TargetAmount = q.Option.TargetAmount
		rec.FeeTotal = q.Option.FeeTotal
	}
	if q.Failure == types.FailIncomplete {
		rec.Status = types.StatusIncomplete
		rec.Failure = q.Failure
		return rec
	}

	m := costmodel.NormalizeQuote(costmodel.QuoteInputs{
		Rate:         *q.Rate,
		SourceAmount: amount,
		FeeTotal:     rec.FeeTotal,
		TargetAmount: rec.TargetAmount,
	})
	rec.FeeBps = m.FeeBps
	rec.FeeBpsVsMid = m.FeeBpsVsMid
	rec.RoundingBps = m.RoundingBps
	return rec
}

func (p *Pipeline) bookRecord(ctx context.Context, pm types.PairMeta, amount float64, fees map[string]float64) types.CostRecord {
	path := fmt.Sprintf("%s->%s->%s", pm.Source, pm.Intermediate, pm.Target)

	fail := func(kind types.FailureKind) types.CostRecord {
		rec := report.FailureRecord(p.now(), pm.Source, pm.Target, amount, ModeBook, kind)
		rec.Path = path
		return rec
	}

	// Leg 2 must not be walked before leg 1's result is known; the fetches
	// and walks below are strictly sequential.
	if err := p.limiter.Wait(ctx); err != nil {
		return fail(types.FailProvider)
	}
	b1 := p.books.FetchBook(ctx, pm.Leg1)
	if b1.Failure != "" {
		return fail(b1.Failure)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fail(types.FailProvider)
	}
	b2 := p.books.FetchBook(ctx, pm.Leg2)
	if b2.Failure != "" {
		return fail(b2.Failure)
	}

	res := book.WalkPath(amount, b1.Book, b2.Book)

	in := costmodel.BookInputs{
		SourceAmount: amount,
		Leg1Mid:      b1.Book.Mid(),
		Leg2Mid:      b2.Book.Mid(),
		Proceeds:     res.Proceeds,
	}
	if fees != nil {
		if f1, ok := fees[pm.Leg1]; ok {
			in.TakerFee1 = &f1
		}
		if f2, ok := fees[pm.Leg2]; ok {
			in.TakerFee2 = &f2
		}
	}
	m := costmodel.NormalizeBook(in)

	rec := types.CostRecord{
		Ts:             p.now(),
		Source:         pm.Source,
		Target:         pm.Target,
		Amount:         amount,
		Mode:           ModeBook,
		Status:         types.StatusOK,
		Path:           path,
		ComposedMid:    m.ComposedMid,
		BookProceeds:   &res.Proceeds,
		BookBps:        m.BookBps,
		FeeAdjProceeds: m.FeeAdjProceeds,
		FeeAdjBps:      m.FeeAdjBps,
		Underfilled:    res.Underfilled,
	}
	if m.ComposedMid != nil {
		rec.Rate = m.ComposedMid
	}
	if m.BookBps != nil {
		metrics.BookBps.WithLabelValues(pm.Source + pm.Target).Set(*m.BookBps)
	}
	return rec
}

func (p *Pipeline) publish(ctx context.Context, asm *report.Assembler, rec types.CostRecord) {
	asm.Add(rec)
	if p.emit == nil {
		return
	}
	if err := p.emit.Publish(ctx, rec); err != nil {
		p.log.Warn("record publish failed",
			zap.String("pair", rec.Source+rec.Target),
			zap.Float64("amount", rec.Amount),
			zap.Error(err),
		)
	}
}

// pause is the explicit inter-request delay; providers enforce per-caller
// limits, so the cadence is a correctness mechanism.
func (p *Pipeline) pause(ctx context.Context) error {
	t := time.NewTimer(p.cfg.RequestDelay())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
