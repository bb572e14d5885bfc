package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/kraken"
	"github.com/sam121/fx-curves/internal/types"
	"go.uber.org/zap"
)

type pairsAPI interface {
	AssetPairs(ctx context.Context) (map[string]kraken.PairNames, error)
}

// Service resolves which exchange books realize the configured corridors.
type Service struct {
	cfg *config.Config
	log *zap.Logger
	api pairsAPI
}

func NewService(cfg *config.Config, api pairsAPI, log *zap.Logger) *Service {
	return &Service{cfg: cfg, log: log, api: api}
}

// Discover maps each corridor onto the two intermediate-asset books that
// realize its crypto path. Corridors with a missing leg are skipped with a
// warning; the caller treats an empty result as fatal since no record could
// ever be produced.
func (s *Service) Discover(ctx context.Context) ([]types.PairMeta, error) {
	s.log.Info("starting pair discovery")

	available, err := s.api.AssetPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset pairs: %w", err)
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("empty response on asset pairs")
	}

	inter := strings.ToUpper(s.cfg.Kraken.Intermediate)
	out := make([]types.PairMeta, 0, len(s.cfg.Corridors))
	for _, cor := range s.cfg.Corridors {
		src := strings.ToUpper(cor.Source)
		tgt := strings.ToUpper(cor.Target)
		leg1, ok1 := available[inter+src]
		leg2, ok2 := available[inter+tgt]
		if !ok1 || !ok2 {
			s.log.Warn("corridor has no direct books, skipping",
				zap.String("corridor", src+"->"+tgt),
				zap.Bool("leg1", ok1),
				zap.Bool("leg2", ok2),
			)
			continue
		}
		pm := types.PairMeta{
			Source:       src,
			Target:       tgt,
			Intermediate: inter,
			Leg1:         leg1.Altname,
			Leg2:         leg2.Altname,
		}
		out = append(out, pm)
		s.log.Info("corridor mapped",
			zap.String("corridor", src+"->"+tgt),
			zap.String("leg1", pm.Leg1),
			zap.String("leg2", pm.Leg2),
		)
	}

	s.log.Info("pair discovery finished", zap.Int("count", len(out)))
	return out, nil
}

// WsNames returns the WS symbols ("USDT/EUR") for the legs of the given
// pairs, deduplicated, for the ticker stream.
func WsNames(pairs []types.PairMeta, available map[string]kraken.PairNames) []string {
	seen := make(map[string]struct{}, len(pairs)*2)
	out := make([]string, 0, len(pairs)*2)
	for _, pm := range pairs {
		for _, leg := range []string{pm.Leg1, pm.Leg2} {
			pn, ok := available[strings.ToUpper(leg)]
			if !ok || pn.WsName == "" {
				continue
			}
			if _, dup := seen[pn.WsName]; dup {
				continue
			}
			seen[pn.WsName] = struct{}{}
			out = append(out, pn.WsName)
		}
	}
	return out
}
