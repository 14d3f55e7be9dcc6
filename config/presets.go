package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"zonebot/internal/domain"
	"zonebot/internal/ports"
)

// DefaultPreset is used when PRESET_NAME is not set.
const DefaultPreset = "gold-m2-zone"

// Defaults applied to presets that leave these fields out.
const (
	defaultCandleCount            = 3000
	defaultTrailingTimeframe      = "1m"
	defaultTrailingCandleCount    = 1000
	defaultLoopInterval           = 10 * time.Second
	defaultTrailingPollInterval   = 10 * time.Second
	defaultTakeProfitPollInterval = 5 * time.Second
)

var validate = validator.New()

// presetFile is the YAML document layout.
type presetFile struct {
	Presets []domain.StrategyConfig `yaml:"presets"`
}

// BuiltinPresets returns the presets shipped with the binary. Gold trades as
// PAXGUSDT and the two-minute chart maps to Binance's 3m interval.
func BuiltinPresets() map[string]domain.StrategyConfig {
	base := domain.StrategyConfig{
		Symbol:                 "PAXGUSDT",
		Volume:                 0.01,
		Deviation:              20,
		MovingAverage:          domain.EMA,
		CandleCount:            defaultCandleCount,
		TrailingTimeframe:      defaultTrailingTimeframe,
		TrailingCandleCount:    defaultTrailingCandleCount,
		LoopInterval:           defaultLoopInterval,
		TrailingPollInterval:   defaultTrailingPollInterval,
		TakeProfitPollInterval: defaultTakeProfitPollInterval,
		VolatilityGate: domain.VolatilityGate{
			MaxH1Range: 1100,
			MaxH4Range: 1800,
		},
	}

	m2 := base
	m2.Name = "gold-m2-zone"
	m2.Tag = 32
	m2.Timeframe = "3m"
	m2.SLPoints, m2.TPPoints = 170, 300
	m2.TrailingActivationPoints, m2.TrailingStopDistance = 320, 50
	m2.SupportPeriod, m2.ResistancePeriod, m2.TrailingPeriod = 3, 3, 3
	m2.FilterPeriod, m2.TrendPeriod = 12, 21
	m2.ZoneThreshold = 70

	m1 := base
	m1.Name = "gold-m1-zone"
	m1.Tag = 7
	m1.Timeframe = "1m"
	m1.SLPoints, m1.TPPoints = 150, 300
	m1.TrailingActivationPoints, m1.TrailingStopDistance = 100, 40
	m1.SupportPeriod, m1.ResistancePeriod, m1.TrailingPeriod = 20, 20, 7
	m1.FilterPeriod, m1.TrendPeriod = 50, 200
	m1.ZoneThreshold = 70
	m1.VolatilityGate.Enabled = true

	sma := base
	sma.Name = "gold-m2-sma"
	sma.Tag = 3
	sma.Timeframe = "3m"
	sma.MovingAverage = domain.SMA
	sma.SLPoints, sma.TPPoints = 300, 450
	sma.TrailingActivationPoints, sma.TrailingStopDistance = 300, 70
	sma.SupportPeriod, sma.ResistancePeriod, sma.TrailingPeriod = 20, 20, 7
	sma.FilterPeriod, sma.TrendPeriod = 50, 200
	sma.ZoneThreshold = 130

	return map[string]domain.StrategyConfig{
		m2.Name:  m2,
		m1.Name:  m1,
		sma.Name: sma,
	}
}

// LoadPresets returns the built-in presets merged with those in path. A file
// preset replaces a built-in one of the same name. An empty path yields the
// built-ins only.
func LoadPresets(path string) (map[string]domain.StrategyConfig, error) {
	presets := BuiltinPresets()
	if path == "" {
		return presets, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open preset file '%s': %w", ports.ErrConfigurationError, path, err)
	}
	defer f.Close()

	loaded, err := DecodePresets(f)
	if err != nil {
		return nil, fmt.Errorf("preset file '%s': %w", path, err)
	}
	for _, p := range loaded {
		presets[p.Name] = p
	}
	return presets, nil
}

// DecodePresets reads a YAML preset document, fills defaults and validates
// every entry. Unknown keys are rejected.
func DecodePresets(r io.Reader) ([]domain.StrategyConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc presetFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode presets: %w", ports.ErrConfigurationError, err)
	}

	seen := make(map[string]bool, len(doc.Presets))
	var errs []string
	for i := range doc.Presets {
		p := &doc.Presets[i]
		applyDefaults(p)
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("duplicate preset name %q", p.Name))
			continue
		}
		seen[p.Name] = true
		if err := ValidatePreset(*p); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}
	return doc.Presets, nil
}

func applyDefaults(p *domain.StrategyConfig) {
	if p.MovingAverage == "" {
		p.MovingAverage = domain.EMA
	}
	if p.CandleCount == 0 {
		p.CandleCount = defaultCandleCount
	}
	if p.TrailingTimeframe == "" {
		p.TrailingTimeframe = defaultTrailingTimeframe
	}
	if p.TrailingCandleCount == 0 {
		p.TrailingCandleCount = defaultTrailingCandleCount
	}
	if p.LoopInterval == 0 {
		p.LoopInterval = defaultLoopInterval
	}
	if p.TrailingPollInterval == 0 {
		p.TrailingPollInterval = defaultTrailingPollInterval
	}
	if p.TakeProfitPollInterval == 0 {
		p.TakeProfitPollInterval = defaultTakeProfitPollInterval
	}
}

// ValidatePreset checks struct constraints plus the cross-field rules the
// tags cannot express.
func ValidatePreset(p domain.StrategyConfig) error {
	var errs []string
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}
	if p.CandleCount < p.RequiredCandles() {
		errs = append(errs, fmt.Sprintf("candle_count %d is below the %d candles the longest average needs", p.CandleCount, p.RequiredCandles()))
	}
	if p.CandleCount > domain.MaxCandleCount {
		errs = append(errs, fmt.Sprintf("candle_count %d exceeds the %d candle limit", p.CandleCount, domain.MaxCandleCount))
	}
	if p.TrailingCandleCount > domain.MaxCandleCount {
		errs = append(errs, fmt.Sprintf("trailing_candle_count %d exceeds the %d candle limit", p.TrailingCandleCount, domain.MaxCandleCount))
	}
	if p.TrailingCandleCount < p.TrailingPeriod {
		errs = append(errs, fmt.Sprintf("trailing_candle_count %d is below trailing_period %d", p.TrailingCandleCount, p.TrailingPeriod))
	}
	if p.VolatilityGate.Enabled && (p.VolatilityGate.MaxH1Range == 0 || p.VolatilityGate.MaxH4Range == 0) {
		errs = append(errs, "volatility_gate needs max_h1_range and max_h4_range when enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: preset %q: %s", ports.ErrConfigurationError, p.Name, strings.Join(errs, "; "))
	}
	return nil
}

// SelectPreset returns the preset called name.
func SelectPreset(presets map[string]domain.StrategyConfig, name string) (domain.StrategyConfig, error) {
	p, ok := presets[name]
	if !ok {
		return domain.StrategyConfig{}, fmt.Errorf("%w: unknown preset %q (known: %s)", ports.ErrConfigurationError, name, strings.Join(PresetNames(presets), ", "))
	}
	return p, nil
}

// PresetNames lists preset names alphabetically.
func PresetNames(presets map[string]domain.StrategyConfig) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
