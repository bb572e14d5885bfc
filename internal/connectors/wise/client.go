// Package wise talks to the Wise quoting API: priced transfer quotes,
// profile discovery, and reference-rate lookups for the ladder bootstrap.
package wise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/rest"
	"github.com/sam121/fx-curves/internal/metrics"
	"github.com/sam121/fx-curves/internal/types"
	"go.uber.org/zap"
)

type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	rest *rest.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		log:  log,
		rest: rest.NewClient(log, cfg.HTTPTimeout(), cfg.Timings.BackoffMaxRetries, cfg.BackoffBase()),
	}
}

type QuoteRequest struct {
	Source string
	Target string
	Amount float64
	PayIn  string
	PayOut string
}

// Validate rejects malformed requests before they reach the wire. A zero or
// negative amount must never produce a record with divide-by-zero metrics.
func (r QuoteRequest) Validate() error {
	if !isCurrencyCode(r.Source) || !isCurrencyCode(r.Target) {
		return fmt.Errorf("malformed currency pair %q->%q", r.Source, r.Target)
	}
	if r.Source == r.Target {
		return fmt.Errorf("source equals target: %s", r.Source)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("non-positive amount %v", r.Amount)
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) < 3 || len(s) > 4 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// QuoteOption is one priced payin/payout combination from the provider.
type QuoteOption struct {
	PayIn        string
	PayOut       string
	TargetAmount *float64
	FeeTotal     *float64 // source units
}

// QuoteResult is immutable once returned. Failure != "" means no usable
// quote; Rate may still be populated on an incomplete result so the record
// keeps whatever survived.
type QuoteResult struct {
	Rate    *float64
	Option  *QuoteOption
	Failure types.FailureKind
}

type quoteResp struct {
	Rate           *float64 `json:"rate"`
	PaymentOptions []struct {
		PayIn        string   `json:"payIn"`
		PayOut       string   `json:"payOut"`
		TargetAmount *float64 `json:"targetAmount"`
		Fee          *struct {
			Total *float64 `json:"total"`
		} `json:"fee"`
		Disabled bool `json:"disabled"`
	} `json:"paymentOptions"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchQuote requests one priced quote. It never returns an error past this
// boundary: transport trouble, provider error payloads and throttling all
// come back as a tagged QuoteResult the caller can branch on.
func (c *Client) FetchQuote(ctx context.Context, q QuoteRequest) QuoteResult {
	metrics.QuoteRequests.Inc()
	timer := prometheus.NewTimer(metrics.QuoteLatency)
	defer timer.ObserveDuration()

	payload := map[string]any{
		"sourceCurrency": q.Source,
		"targetCurrency": q.Target,
		"sourceAmount":   q.Amount,
		"payOut":         q.PayOut,
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/v3/profiles/%d/quotes", strings.TrimRight(c.cfg.Wise.RestURL, "/"), c.cfg.Wise.ProfileID)
	var resp quoteResp
	err := c.rest.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.Wise.APIToken)
		return req, nil
	}, &resp)
	if err != nil {
		kind := types.FailProvider
		var ae *rest.APIError
		if errors.As(err, &ae) && ae.RateLimited {
			kind = types.FailRateLimited
			metrics.RateLimited.Inc()
		}
		c.log.Warn("quote fetch failed",
			zap.String("pair", q.Source+q.Target),
			zap.Float64("amount", q.Amount),
			zap.String("failure", string(kind)),
			zap.Error(err),
		)
		return QuoteResult{Failure: kind}
	}
	if len(resp.Errors) > 0 {
		c.log.Warn("quote error payload",
			zap.String("pair", q.Source+q.Target),
			zap.String("code", resp.Errors[0].Code),
			zap.String("message", resp.Errors[0].Message),
		)
		return QuoteResult{Failure: types.FailProvider}
	}

	res := QuoteResult{Rate: resp.Rate}
	opt := chooseOption(resp, q.PayIn, q.PayOut)
	if opt != nil {
		res.Option = opt
	}
	if resp.Rate == nil || opt == nil || opt.FeeTotal == nil {
		// Partial data is kept but flagged unusable for cost comparison.
		res.Failure = types.FailIncomplete
	}
	return res
}

// chooseOption prefers the exact payin/payout combination, then any enabled
// option for the payout mode, then nothing.
func chooseOption(resp quoteResp, payIn, payOut string) *QuoteOption {
	var fallback *QuoteOption
	for _, po := range resp.PaymentOptions {
		if po.Disabled || po.PayOut != payOut {
			continue
		}
		opt := &QuoteOption{PayIn: po.PayIn, PayOut: po.PayOut, TargetAmount: po.TargetAmount}
		if po.Fee != nil {
			opt.FeeTotal = po.Fee.Total
		}
		if po.PayIn == payIn {
			return opt
		}
		if fallback == nil {
			fallback = opt
		}
	}
	return fallback
}

type profileResp struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// ResolveProfile returns the configured profile id, or discovers one from
// the API (personal profile preferred). No usable profile is fatal for the
// whole run: without an identity no quote can be priced.
func (c *Client) ResolveProfile(ctx context.Context) (int64, error) {
	if c.cfg.Wise.ProfileID != 0 {
		return c.cfg.Wise.ProfileID, nil
	}
	url := strings.TrimRight(c.cfg.Wise.RestURL, "/") + "/v1/profiles"
	hdr := http.Header{"Authorization": []string{"Bearer " + c.cfg.Wise.APIToken}}

	var profiles []profileResp
	if err := c.rest.GetJSON(ctx, url, hdr, &profiles); err != nil {
		return 0, fmt.Errorf("profile discovery: %w", err)
	}
	if len(profiles) == 0 {
		return 0, fmt.Errorf("no profiles on this token")
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Type, "personal") {
			return p.ID, nil
		}
	}
	return profiles[0].ID, nil
}

// ReferenceRate returns the reference-currency value of one unit of ccy,
// taken from the public mid-rate endpoint.
func (c *Client) ReferenceRate(ctx context.Context, ccy string) (float64, error) {
	ref := c.cfg.Reference.Currency
	if ccy == ref {
		return 1, nil
	}
	url := fmt.Sprintf("%s/v1/rates?source=%s&target=%s", strings.TrimRight(c.cfg.Wise.RestURL, "/"), ccy, ref)
	hdr := http.Header{"Authorization": []string{"Bearer " + c.cfg.Wise.APIToken}}

	var rates []struct {
		Rate float64 `json:"rate"`
	}
	if err := c.rest.GetJSON(ctx, url, hdr, &rates); err != nil {
		return 0, fmt.Errorf("reference rate %s->%s: %w", ccy, ref, err)
	}
	if len(rates) == 0 || rates[0].Rate <= 0 {
		return 0, fmt.Errorf("reference rate %s->%s: empty response", ccy, ref)
	}
	return rates[0].Rate, nil
}
