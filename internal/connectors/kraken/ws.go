package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	TS     time.Time
}

type WS struct {
	URL    string
	Dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

func NewWS(url string) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (w *WS) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	w.conn = c

	_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	return nil
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// SubscribeTicker subscribes to the v2 ticker channel for the given WS
// symbols ("USDT/EUR") and streams best bid/ask updates until ctx is done.
func (w *WS) SubscribeTicker(ctx context.Context, symbols []string) (<-chan Ticker, error) {
	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	sub := struct {
		Method string `json:"method"`
		Params struct {
			Channel string   `json:"channel"`
			Symbol  []string `json:"symbol"`
		} `json:"params"`
	}{Method: "subscribe"}
	sub.Params.Channel = "ticker"
	sub.Params.Symbol = symbols

	if err := w.conn.WriteJSON(sub); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Ticker, 1024)

	go func() {
		defer close(out)
		defer w.Close()

		pingStop := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-pingStop:
					return
				case <-t.C:
					_ = w.conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"ping"}`))
				}
			}
		}()
		defer close(pingStop)

		type tickerMsg struct {
			Channel string `json:"channel"`
			Data    []struct {
				Symbol string  `json:"symbol"`
				Bid    float64 `json:"bid"`
				Ask    float64 `json:"ask"`
			} `json:"data"`
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, data, err := w.conn.ReadMessage()
			if err != nil {
				return
			}
			_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))

			var msg tickerMsg
			if json.Unmarshal(data, &msg) != nil || msg.Channel != "ticker" {
				continue
			}
			for _, d := range msg.Data {
				if d.Bid == 0 && d.Ask == 0 {
					continue
				}
				out <- Ticker{Symbol: d.Symbol, Bid: d.Bid, Ask: d.Ask, TS: time.Now()}
			}
		}
	}()

	return out, nil
}
