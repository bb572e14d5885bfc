package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/kraken"
	"github.com/sam121/fx-curves/internal/discovery"
	"go.uber.org/zap"
)

// pairwatch streams live top-of-book spreads for the legs behind the
// configured corridors, handy for eyeballing book liquidity before a run.
func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		fmt.Println("[sys] shutdown signal, exiting...")
		cancel()
	}()

	kr := kraken.NewClient(cfg, zap.NewNop())

	available, err := kr.AssetPairs(ctx)
	if err != nil {
		panic(err)
	}
	svc := discovery.NewService(cfg, kr, zap.NewNop())
	pairs, err := svc.Discover(ctx)
	if err != nil {
		panic(err)
	}
	symbols := discovery.WsNames(pairs, available)
	if len(symbols) == 0 {
		fmt.Println("no WS symbols for the configured corridors")
		return
	}
	fmt.Printf("[ws] subscribing to %d symbols: %v\n", len(symbols), symbols)

	ws := kraken.NewWS(cfg.Kraken.WsURL)
	stream, err := ws.SubscribeTicker(ctx, symbols)
	if err != nil {
		panic(err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-stream:
			if !ok {
				fmt.Println("[ws] stream closed")
				return
			}
			mid := 0.5 * (t.Bid + t.Ask)
			spreadBps := 0.0
			if mid > 0 {
				spreadBps = (t.Ask - t.Bid) / mid * 10000
			}
			fmt.Printf("[tick] %-12s bid=%.6f ask=%.6f spread=%.2f bps\n", t.Symbol, t.Bid, t.Ask, spreadBps)
		}
	}
}
