package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/eat"
	"github.com/you/swap-router/internal/entities"
	"github.com/you/swap-router/internal/feed"
	"github.com/you/swap-router/internal/metrics"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/router"
	"github.com/you/swap-router/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339)) },
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	if cfg.Chain.WETH9 != "" {
		entities.WETH9[cfg.Chain.ID] = entities.NewToken(
			cfg.Chain.ID, common.HexToAddress(cfg.Chain.WETH9), 18, "WETH9", "Wrapped Ether")
	}

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	r, err := router.New()
	if err != nil {
		logger.Fatal("router init failed", zap.Error(err))
	}

	var signer multicall.AccessTokenSigner
	if cfg.Signer.URL != "" {
		signer = eat.NewSigner(cfg, logger)
		logger.Info("token issuer configured", zap.String("url", cfg.Signer.URL))
	} else {
		logger.Warn("no token issuer configured: calldata endpoint disabled")
	}

	var pub *feed.Publisher
	if cfg.Redis.Addr != "" {
		pub = feed.NewPublisher(cfg)
		defer pub.Close()
		logger.Info("feed publisher configured",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("stream", cfg.Redis.Stream),
		)
	}

	svc := service.New(r, signer, pub, cfg.Chain.ID, int64(cfg.Swap.DefaultSlippageBps), logger)

	logger.Info("routerd starting",
		zap.Uint64("chain_id", cfg.Chain.ID),
		zap.String("listen_addr", cfg.Service.ListenAddr),
	)
	if err := svc.Start(ctx, cfg.Service.ListenAddr); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}
