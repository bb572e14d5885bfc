// Package kraken talks to the Kraken REST and WebSocket APIs: public depth
// snapshots and tradable pairs, plus the signed TradeVolume endpoint for the
// caller's effective taker fee.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sam121/fx-curves/internal/book"
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
	now  func() time.Time
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		log:  log,
		rest: rest.NewClient(log, cfg.HTTPTimeout(), cfg.Timings.BackoffMaxRetries, cfg.BackoffBase()),
		now:  time.Now,
	}
}

// BookResult is a snapshot or a tagged failure; Failure == "" means usable.
type BookResult struct {
	Book    book.Snapshot
	Failure types.FailureKind
}

type depthResp struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Asks [][]any `json:"asks"`
		Bids [][]any `json:"bids"`
	} `json:"result"`
}

// FetchBook pulls a depth snapshot for one book. Same discipline as the
// quote side: failures come back tagged, never as a raised error. An empty
// ask or bid side is empty_book since no walk is possible against it.
func (c *Client) FetchBook(ctx context.Context, pair string) BookResult {
	metrics.BookRequests.Inc()

	u := fmt.Sprintf("%s/0/public/Depth?pair=%s&count=%d",
		strings.TrimRight(c.cfg.Kraken.RestURL, "/"), url.QueryEscape(pair), c.cfg.Kraken.BookDepth)

	var resp depthResp
	if err := c.rest.GetJSON(ctx, u, nil, &resp); err != nil {
		kind := types.FailProvider
		var ae *rest.APIError
		if errors.As(err, &ae) && ae.RateLimited {
			kind = types.FailRateLimited
			metrics.RateLimited.Inc()
		}
		c.log.Warn("depth fetch failed", zap.String("pair", pair), zap.String("failure", string(kind)), zap.Error(err))
		return BookResult{Failure: kind}
	}
	if len(resp.Error) > 0 {
		c.log.Warn("depth error payload", zap.String("pair", pair), zap.Strings("errors", resp.Error))
		return BookResult{Failure: types.FailProvider}
	}

	for _, side := range resp.Result {
		snap := book.Snapshot{
			Asks: parseLevels(side.Asks),
			Bids: parseLevels(side.Bids),
		}
		if !snap.Usable() {
			return BookResult{Failure: types.FailEmptyBook}
		}
		return BookResult{Book: snap}
	}
	return BookResult{Failure: types.FailEmptyBook}
}

// parseLevels converts [price, volume, ts] triples with stringified numbers.
// Levels that fail to parse or carry a non-positive price are dropped.
func parseLevels(raw [][]any) []book.Level {
	out := make([]book.Level, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			continue
		}
		p := toF(lvl[0])
		v := toF(lvl[1])
		if p <= 0 || v <= 0 {
			continue
		}
		out = append(out, book.Level{Price: p, Volume: v})
	}
	return out
}

func toF(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

type assetPairsResp struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Altname string `json:"altname"`
		WsName  string `json:"wsname"`
		Base    string `json:"base"`
		Quote   string `json:"quote"`
	} `json:"result"`
}

// PairNames holds the REST altname and WS name of one tradable book.
type PairNames struct {
	Altname string
	WsName  string
}

// AssetPairs returns the tradable books keyed by altname (e.g. "USDTEUR").
func (c *Client) AssetPairs(ctx context.Context) (map[string]PairNames, error) {
	u := strings.TrimRight(c.cfg.Kraken.RestURL, "/") + "/0/public/AssetPairs"
	var resp assetPairsResp
	if err := c.rest.GetJSON(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("asset pairs: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("asset pairs: %s", strings.Join(resp.Error, "; "))
	}
	out := make(map[string]PairNames, len(resp.Result))
	for _, p := range resp.Result {
		if p.Altname == "" {
			continue
		}
		out[strings.ToUpper(p.Altname)] = PairNames{Altname: p.Altname, WsName: p.WsName}
	}
	return out, nil
}

type tradeVolumeResp struct {
	Error  []string `json:"error"`
	Result struct {
		Fees map[string]struct {
			Fee string `json:"fee"` // percent, stringified
		} `json:"fees"`
	} `json:"result"`
}

// TakerFees returns the caller's effective taker fee per requested book, as
// a fraction (0.0026 for 0.26%). Requires API credentials.
func (c *Client) TakerFees(ctx context.Context, pairs []string) (map[string]float64, error) {
	if c.cfg.Kraken.APIKey == "" || c.cfg.Kraken.APISecret == "" {
		return nil, fmt.Errorf("taker fees: missing API credentials")
	}

	path := "/0/private/TradeVolume"
	var resp tradeVolumeResp
	err := c.rest.DoJSON(ctx, func() (*http.Request, error) {
		form := url.Values{}
		nonce := strconv.FormatInt(c.now().UnixNano()/int64(time.Microsecond), 10)
		form.Set("nonce", nonce)
		form.Set("pair", strings.Join(pairs, ","))
		form.Set("fee-info", "true")
		encoded := form.Encode()

		sig, err := c.sign(path, nonce, encoded)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequest(http.MethodPost,
			strings.TrimRight(c.cfg.Kraken.RestURL, "/")+path, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("API-Key", c.cfg.Kraken.APIKey)
		req.Header.Set("API-Sign", sig)
		return req, nil
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("trade volume: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("trade volume: %s", strings.Join(resp.Error, "; "))
	}

	out := make(map[string]float64, len(resp.Result.Fees))
	for pair, f := range resp.Result.Fees {
		pct, err := strconv.ParseFloat(f.Fee, 64)
		if err != nil {
			continue
		}
		out[pair] = pct / 100
	}
	return out, nil
}

// sign implements the Kraken API-Sign scheme:
// HMAC-SHA512(path + SHA256(nonce + postdata), base64-decoded secret).
func (c *Client) sign(path, nonce, postdata string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.cfg.Kraken.APISecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	sha := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(sha[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SortedPairs is a small helper for deterministic CLI output.
func SortedPairs(fees map[string]float64) []string {
	out := make([]string, 0, len(fees))
	for p := range fees {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
