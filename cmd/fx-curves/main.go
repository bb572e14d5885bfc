package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/connectors/kraken"
	"github.com/sam121/fx-curves/internal/connectors/redisfeed"
	"github.com/sam121/fx-curves/internal/connectors/wise"
	"github.com/sam121/fx-curves/internal/discovery"
	"github.com/sam121/fx-curves/internal/metrics"
	"github.com/sam121/fx-curves/internal/pipeline"
	"github.com/sam121/fx-curves/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zcfg.Encoding = "json"
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.StacktraceKey = "stacktrace"
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	if cfg.Log.File == "" {
		return zcfg.Build()
	}

	maxSize := cfg.Log.MaxSizeMB
	if maxSize == 0 {
		maxSize = 50
	}
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    maxSize,
		MaxBackups: 5,
		Compress:   true,
	})
	enc := zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), zcfg.Level),
		zapcore.NewCore(enc, rotated, zcfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// logEmitter is the dry-run sink: records go to the log instead of Redis.
type logEmitter struct{ log *zap.Logger }

func (e *logEmitter) Publish(_ context.Context, rec types.CostRecord) error {
	e.log.Info("cost record",
		zap.String("pair", rec.Source+rec.Target),
		zap.Float64("amount", rec.Amount),
		zap.String("mode", rec.Mode),
		zap.String("status", string(rec.Status)),
		zap.Float64p("rate", rec.Rate),
		zap.Float64p("fee_total", rec.FeeTotal),
		zap.Float64p("fee_bps", rec.FeeBps),
		zap.Float64p("book_bps", rec.BookBps),
		zap.Bool("underfilled", rec.Underfilled),
	)
	return nil
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	dryRun := flag.Bool("dry-run", false, "log records instead of publishing to redis")
	flag.Parse()

	// .env overlays credentials so they stay out of config.yaml.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if v := os.Getenv("WISE_API_TOKEN"); v != "" {
		cfg.Wise.APIToken = v
	}
	if v := os.Getenv("KRAKEN_API_KEY"); v != "" {
		cfg.Kraken.APIKey = v
	}
	if v := os.Getenv("KRAKEN_API_SECRET"); v != "" {
		cfg.Kraken.APISecret = v
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	quotes := wise.NewClient(cfg, logger)
	books := kraken.NewClient(cfg, logger)

	svc := discovery.NewService(cfg, books, logger)
	pairs, err := svc.Discover(ctx)
	if err != nil {
		logger.Fatal("pair discovery failed", zap.Error(err))
	}
	if len(pairs) == 0 {
		logger.Fatal("no corridors mapped to exchange books")
	}

	var emit pipeline.Emitter
	if *dryRun {
		logger.Warn("DRY-RUN: records will be logged, not published")
		emit = &logEmitter{log: logger}
	} else {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		emit = pub
	}

	p := pipeline.New(cfg, quotes, books, emit, logger)
	summary, err := p.Run(ctx, pairs)
	if err != nil {
		logger.Fatal("run aborted", zap.Error(err),
			zap.Int("total", summary.Total), zap.Int("valid", summary.Valid))
	}

	logger.Info("estimator finished",
		zap.Int("total", summary.Total),
		zap.Int("valid", summary.Valid),
		zap.Int("incomplete", summary.Incomplete),
		zap.Int("errors", summary.Errors),
	)
}
