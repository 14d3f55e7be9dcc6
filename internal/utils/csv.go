package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"zonebot/internal/domain"
)

// WriteCandlesToCSV writes candles to filename, creating its directory.
func WriteCandlesToCSV(symbol, timeframe string, candles []domain.Candle, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write header
	if err := writer.Write([]string{"open_time", "symbol", "timeframe", "open", "high", "low", "close", "volume", "final"}); err != nil {
		return err
	}

	for _, c := range candles {
		err := writer.Write([]string{
			c.OpenTime.UTC().Format(time.RFC3339),
			symbol,
			timeframe,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
			strconv.FormatBool(c.IsFinal),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
