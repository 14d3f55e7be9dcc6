package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"zonebot/config"
	"zonebot/internal/adapters/binanceclient"
	"zonebot/internal/adapters/calendar"
	"zonebot/internal/adapters/logger"
	"zonebot/internal/adapters/sqlite"
	"zonebot/internal/app"
	"zonebot/internal/strategy"
)

func main() {
	cmd := &cli.Command{
		Name:  "zonebot",
		Usage: "moving-average zone trading bot for Binance futures",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one strategy preset until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "preset", Usage: "preset name (defaults to PRESET_NAME)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runBot(ctx, cmd.String("preset"))
				},
			},
			{
				Name:  "presets",
				Usage: "list the available strategy presets",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "YAML preset file merged over the built-ins"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return listPresets(cmd.String("file"))
				},
			},
			{
				Name:  "journal",
				Usage: "print recent journal entries for a strategy tag",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "tag", Usage: "strategy tag", Required: true},
					&cli.IntFlag{Name: "limit", Usage: "number of entries", Value: 20},
					&cli.StringFlag{Name: "db", Usage: "journal database path", Value: "./data/journal.db"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return showJournal(ctx, cmd.String("db"), int64(cmd.Int("tag")), int(cmd.Int("limit")))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func runBot(ctx context.Context, presetName string) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if presetName == "" {
		presetName = cfg.PresetName
	}
	presets, err := config.LoadPresets(cfg.PresetFile)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	stratCfg, err := config.SelectPreset(presets, presetName)
	if err != nil {
		return err
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})
	appLogger.Info(ctx, "Strategy preset selected", map[string]interface{}{
		"preset":     stratCfg.Name,
		"symbol":     stratCfg.Symbol,
		"tag":        stratCfg.Tag,
		"timeframe":  stratCfg.Timeframe,
		"slPoints":   stratCfg.SLPoints,
		"tpPoints":   stratCfg.TPPoints,
		"riskReward": fmt.Sprintf("1:%.2f", stratCfg.RiskReward()),
	})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing journal")
		}
	}()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	// 5. Initialize Strategy and trading window
	strat, err := strategy.New(stratCfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize trading strategy: %w", err)
	}
	window, err := calendar.Lookup(cfg.TradingCalendar, cfg.TradingTimezone)
	if err != nil {
		return err
	}
	appLogger.Info(ctx, "Trading calendar selected", map[string]interface{}{"calendar": window.Name, "timezone": window.Location.String()})

	// 6. Initialize Application Service
	event := app.NewEvent()
	executor, err := app.NewOrderExecutor(app.ExecutorConfig{
		Strategy:    stratCfg,
		Broker:      binanceClient,
		Journal:     repo,
		Event:       event,
		Logger:      appLogger,
		AccountType: cfg.AccountType,
		Server:      binanceClient.Server(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize order executor: %w", err)
	}
	supervisor, err := app.NewPositionSupervisor(app.SupervisorConfig{
		Strategy: stratCfg,
		Broker:   binanceClient,
		Event:    event,
		Logger:   appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize position supervisor: %w", err)
	}
	conn, err := app.NewConnection(binanceClient, appLogger, app.ConnectionConfig{
		MinDelay:    cfg.ReconnectDelay,
		MaxDelay:    cfg.MaxReconnectDelay,
		MaxAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize connection manager: %w", err)
	}
	tradingService, err := app.NewTradingService(app.ServiceConfig{
		Strategy:   stratCfg,
		Logger:     appLogger,
		Broker:     binanceClient,
		Evaluator:  strat,
		Window:     window,
		Executor:   executor,
		Supervisor: supervisor,
		Connection: conn,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize trading service: %w", err)
	}

	// 7. Start the Service
	if err := tradingService.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
		return err
	}
	appLogger.Info(ctx, "Application finished gracefully.")
	return nil
}

func listPresets(file string) error {
	presets, err := config.LoadPresets(file)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSYMBOL\tTAG\tTF\tMA\tSL\tTP\tR:R\tZONE\tGATE")
	for _, name := range config.PresetNames(presets) {
		p := presets[name]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%d\t1:%.2f\t%d\t%t\n",
			p.Name, p.Symbol, p.Tag, p.Timeframe, p.MovingAverage, p.SLPoints, p.TPPoints,
			p.RiskReward(), p.ZoneThreshold, p.VolatilityGate.Enabled)
	}
	return w.Flush()
}

func showJournal(ctx context.Context, dbPath string, tag int64, limit int) error {
	appLogger, err := logger.NewZapLogger(logger.Options{Level: logger.LevelWarn, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: dbPath, Logger: appLogger})
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.FindByTag(ctx, tag, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTRATEGY\tSYMBOL\tSIDE\tPRICE\tSL\tTP\tTICKET\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%g\t%d\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.StrategyName, e.Symbol, e.Side,
			e.Price, e.StopLoss, e.TakeProfit, e.Ticket, e.Note)
	}
	return w.Flush()
}
