package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Kraken.RestURL = srv.URL
	cfg.Kraken.APIKey = "test-key"
	cfg.Kraken.APISecret = "dGVzdC1zZWNyZXQ=" // base64("test-secret")
	cfg.Kraken.BookDepth = 10
	cfg.Timings.BackoffMaxRetries = 1
	cfg.Timings.HTTPTimeoutSec = 2
	return NewClient(cfg, zap.NewNop())
}

func TestFetchBook_ParsesLevels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Depth", r.URL.Path)
		assert.Equal(t, "USDTEUR", r.URL.Query().Get("pair"))
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{
			"error": [],
			"result": {
				"USDTZEUR": {
					"asks": [["0.9201","1500.5",1700000000],["0.9205","900",1700000001]],
					"bids": [["0.9199","1000",1700000000],["0.9195","2200",1700000001]]
				}
			}
		}`))
	})

	res := c.FetchBook(context.Background(), "USDTEUR")

	require.Equal(t, types.FailureKind(""), res.Failure)
	require.Len(t, res.Book.Asks, 2)
	require.Len(t, res.Book.Bids, 2)
	assert.InDelta(t, 0.9201, res.Book.Asks[0].Price, 1e-9)
	assert.InDelta(t, 1500.5, res.Book.Asks[0].Volume, 1e-9)
	assert.InDelta(t, 0.9199, res.Book.Bids[0].Price, 1e-9)
	assert.InDelta(t, 0.92, res.Book.Mid(), 1e-6)
}

func TestFetchBook_EmptySideIsEmptyBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":[],"result":{"USDTZEUR":{"asks":[],"bids":[["0.91","10",1]]}}}`))
	})

	res := c.FetchBook(context.Background(), "USDTEUR")
	assert.Equal(t, types.FailEmptyBook, res.Failure)
}

func TestFetchBook_ErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":["EQuery:Unknown asset pair"]}`))
	})

	res := c.FetchBook(context.Background(), "NOPE")
	assert.Equal(t, types.FailProvider, res.Failure)
}

func TestFetchBook_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	res := c.FetchBook(context.Background(), "USDTEUR")
	assert.Equal(t, types.FailRateLimited, res.Failure)
}

func TestFetchBook_DropsMalformedLevels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"error": [],
			"result": {"X": {
				"asks": [["bad","10",1],["0.5","0",1],["0.92","100",1]],
				"bids": [["0.91","50",1]]
			}}
		}`))
	})

	res := c.FetchBook(context.Background(), "USDTEUR")
	require.Equal(t, types.FailureKind(""), res.Failure)
	require.Len(t, res.Book.Asks, 1)
	assert.InDelta(t, 0.92, res.Book.Asks[0].Price, 1e-9)
}

func TestAssetPairs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/AssetPairs", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"error": [],
			"result": {
				"USDTZEUR": {"altname":"USDTEUR","wsname":"USDT/EUR","base":"USDT","quote":"ZEUR"},
				"USDTGBP":  {"altname":"USDTGBP","wsname":"USDT/GBP","base":"USDT","quote":"ZGBP"}
			}
		}`))
	})

	pairs, err := c.AssetPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "USDT/EUR", pairs["USDTEUR"].WsName)
	assert.Equal(t, "USDTGBP", pairs["USDTGBP"].Altname)
}

func TestTakerFees_SignedRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/private/TradeVolume", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("API-Key"))
		assert.NotEmpty(t, r.Header.Get("API-Sign"))
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("nonce"))
		assert.Equal(t, "USDTEUR,USDTGBP", r.PostForm.Get("pair"))

		_, _ = w.Write([]byte(`{
			"error": [],
			"result": {"fees": {"USDTEUR": {"fee":"0.2600"}, "USDTGBP": {"fee":"0.2400"}}}
		}`))
	})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	fees, err := c.TakerFees(context.Background(), []string{"USDTEUR", "USDTGBP"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0026, fees["USDTEUR"], 1e-9)
	assert.InDelta(t, 0.0024, fees["USDTGBP"], 1e-9)
}

func TestTakerFees_MissingCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})
	c.cfg.Kraken.APIKey = ""

	_, err := c.TakerFees(context.Background(), []string{"USDTEUR"})
	assert.Error(t, err)
}
