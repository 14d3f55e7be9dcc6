package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"zonebot/internal/adapters/binanceclient"
	"zonebot/internal/adapters/logger"
	"zonebot/internal/utils"
)

func main() {
	cmd := &cli.Command{
		Name:  "fetch_candles",
		Usage: "dump recent futures candles to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Value: "PAXGUSDT"},
			&cli.StringFlag{Name: "timeframe", Value: "3m"},
			&cli.IntFlag{Name: "count", Value: 1000, Usage: "candles to fetch"},
			&cli.BoolFlag{Name: "testnet"},
			&cli.StringFlag{Name: "out", Usage: "output file (defaults to data/<symbol>_<timeframe>_<date>.csv)"},
		},
		Action: fetch,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func fetch(ctx context.Context, cmd *cli.Command) error {
	count, testnet := int(cmd.Int("count")), cmd.Bool("testnet")

	appLogger, err := logger.NewZapLogger(logger.Options{Level: logger.LevelInfo, Format: "console"})
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	// Klines are public; no API keys needed.
	client, err := binanceclient.New(binanceclient.Config{UseTestnet: testnet, Logger: appLogger})
	if err != nil {
		return err
	}

	symbol, timeframe := cmd.String("symbol"), cmd.String("timeframe")
	candles, err := client.GetCandles(ctx, symbol, timeframe, count)
	if err != nil {
		return fmt.Errorf("fetching candles: %w", err)
	}
	appLogger.Info(ctx, "Fetched candles", map[string]interface{}{"symbol": symbol, "timeframe": timeframe, "count": len(candles)})

	filename := cmd.String("out")
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s.csv", symbol, timeframe, time.Now().Format("20060102_1504"))
	}
	if err := utils.WriteCandlesToCSV(symbol, timeframe, candles, filename); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
	return nil
}
