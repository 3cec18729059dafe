package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"trendbot-go/internal/config"
	"trendbot-go/internal/dispatch"
	"trendbot-go/internal/exchange"
	"trendbot-go/internal/metrics"
	"trendbot-go/internal/monitor"
	"trendbot-go/internal/paper"
	"trendbot-go/internal/position"
	"trendbot-go/internal/risk"
	"trendbot-go/internal/strategy"
	"trendbot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	mode := flag.String("mode", "", "override trading mode (sim or live)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Trading.Mode = *mode
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
	}

	log := util.NewLogger(cfg.LogLevel)
	log.Info().Str("mode", cfg.Trading.Mode).Str("strategy", cfg.Strategy.Mode).
		Str("provider", cfg.Exchange.Provider).Strs("markets", cfg.Trading.Markets).
		Msg("starting trendbot")

	metricsSrv := metrics.Serve(cfg.MetricsAddr)
	defer metricsSrv.Close()

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	strat, err := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		TrendThreshold:       cfg.Strategy.TrendThreshold,
		ProfitThreshold:      decimal.NewFromFloat(cfg.Strategy.ProfitThreshold),
		StopLossThreshold:    decimal.NewFromFloat(cfg.Strategy.StopLossThreshold),
		Lookback:             cfg.Strategy.Lookback,
		MACDFast:             cfg.Strategy.MACDFast,
		MACDSlow:             cfg.Strategy.MACDSlow,
		MACDSignal:           cfg.Strategy.MACDSignal,
		MomentumThresholdPct: cfg.Strategy.MomentumThresholdPct,
		PositionSize:         decimal.NewFromFloat(cfg.Strategy.PositionSize),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy")
	}

	positions := position.NewStore()
	account := paper.NewAccount(decimal.NewFromFloat(cfg.Paper.StartingCash))

	recorders := paper.Fanout{paper.NewLedger()}
	if cfg.Paper.TradesPath != "" {
		jsonl, err := paper.NewJSONLRecorder(cfg.Paper.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade log")
		}
		defer jsonl.Close()
		recorders = append(recorders, jsonl)
	}

	var clobSrc *exchange.CLOBSource
	var source monitor.MarketDataSource
	switch cfg.Exchange.Provider {
	case "stub":
		source = exchange.NewStubSource()
	case "clob":
		clobSrc = exchange.NewCLOBSource(cfg.Exchange.GammaURL, cfg.Exchange.ClobURL, log)
		source = clobSrc
	case "ws":
		clobSrc = exchange.NewCLOBSource(cfg.Exchange.GammaURL, cfg.Exchange.ClobURL, log)
		stream := exchange.NewStreamSource(clobSrc, cfg.Exchange.WSURL, cfg.Trading.Markets, log)
		go stream.Run(ctx)
		source = stream
	}

	var dispatcher dispatch.Dispatcher
	switch cfg.Trading.Mode {
	case "sim":
		dispatcher = dispatch.NewSimulation(positions, account, recorders, log)
	case "live":
		if clobSrc == nil {
			clobSrc = exchange.NewCLOBSource(cfg.Exchange.GammaURL, cfg.Exchange.ClobURL, log)
		}
		submitter := exchange.NewCLOBSubmitter(cfg.Exchange.ClobURL, cfg.Exchange.APIKey, clobSrc, log)
		dispatcher = dispatch.NewLive(positions, account, submitter, recorders, cfg.Trading.SubmitRetries, log)
	}

	limits := risk.Limits{
		MaxNotionalPerTrade: decimal.NewFromFloat(cfg.Risk.MaxNotionalPerTrade),
		MaxOpenPositions:    cfg.Risk.MaxOpenPositions,
	}

	mon := monitor.New(source, strat, positions, dispatcher, limits, monitor.Options{
		Markets:      cfg.Trading.Markets,
		Interval:     time.Duration(cfg.Trading.CheckIntervalMs) * time.Millisecond,
		FetchTimeout: time.Duration(cfg.Trading.FetchTimeoutMs) * time.Millisecond,
		WindowSize:   cfg.Trading.WindowSize,
		EntryCutoff:  time.Duration(cfg.Trading.EntryCutoffSec) * time.Second,
	}, log)

	mon.Run(ctx)

	snap := account.Snapshot(nil)
	log.Info().Str("cash", snap.Cash.String()).Str("realized", snap.Realized.String()).
		Int("wins", snap.Wins).Int("losses", snap.Losses).
		Int("open_trades", snap.OpenTrades).Msg("trendbot stopped")
}
