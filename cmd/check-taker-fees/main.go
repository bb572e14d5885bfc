package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/kraken"
	"github.com/sam121/fx-curves/internal/discovery"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	limit := flag.Int("limit", 10, "limit corridors to check")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	kr := kraken.NewClient(cfg, zap.NewNop())

	svc := discovery.NewService(cfg, kr, zap.NewNop())
	pairs, err := svc.Discover(ctx)
	if err != nil {
		panic(err)
	}
	if *limit > 0 && *limit < len(pairs) {
		pairs = pairs[:*limit]
	}
	if len(pairs) == 0 {
		fmt.Println("no corridors mapped to exchange books")
		return
	}

	legs := make([]string, 0, len(pairs)*2)
	for _, pm := range pairs {
		legs = append(legs, pm.Leg1, pm.Leg2)
	}

	fees, err := kr.TakerFees(ctx, legs)
	if err != nil {
		panic(err)
	}

	fmt.Printf("REST: %s\n", cfg.Kraken.RestURL)
	fmt.Printf("Intermediate: %s\n\n", cfg.Kraken.Intermediate)
	for _, pair := range kraken.SortedPairs(fees) {
		fmt.Printf("%-12s taker fee: %.4f%%  (%.1f bps)\n", pair, fees[pair]*100, fees[pair]*10000)
	}
}
