package indicator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"quant-systemv1/internal/model"
)

// Config specifies a single indicator to compute.
//
// Period is the main lookback (n for KDJ). Fast/Slow/Signal are the MACD
// spans; for KDJ Fast and Slow carry m1 and m2. K is the BOLL band width.
type Config struct {
	Type   string // "SMA", "EMA", "MACD", "KDJ", "RSI", ...
	Period int
	Fast   int
	Slow   int
	Signal int
	K      float64
}

// Name returns the result name, e.g. "MACD_12_26_9" or "RSI_14".
func (c Config) Name() string {
	switch strings.ToUpper(c.Type) {
	case "MACD":
		return "MACD_" + itoa(c.Fast) + "_" + itoa(c.Slow) + "_" + itoa(c.Signal)
	case "KDJ":
		return "KDJ_" + itoa(c.Period) + "_" + itoa(c.Fast) + "_" + itoa(c.Slow)
	case "BOLL":
		return "BOLL_" + itoa(c.Period) + "_" + strconv.FormatFloat(c.K, 'g', -1, 64)
	case "OBV":
		return "OBV"
	case "MA", "VOLMA":
		return strings.ToUpper(c.Type)
	}
	return strings.ToUpper(c.Type) + "_" + itoa(c.Period)
}

// DefaultConfigs is the standard daily indicator catalogue.
func DefaultConfigs() []Config {
	return []Config{
		{Type: "MA"},
		{Type: "VOLMA"},
		{Type: "MACD", Fast: 12, Slow: 26, Signal: 9},
		{Type: "KDJ", Period: 9, Fast: 3, Slow: 3},
		{Type: "RSI", Period: 14},
		{Type: "WR", Period: 14},
		{Type: "BOLL", Period: 20, K: 2},
		{Type: "ATR", Period: 14},
		{Type: "OBV"},
	}
}

// Engine computes a fixed set of indicators over whole series.
// It holds no per-series state, so one Engine may be shared by workers.
type Engine struct {
	configs []Config
}

// NewEngine creates an indicator engine with the given configs.
// A nil slice selects DefaultConfigs.
func NewEngine(configs []Config) *Engine {
	if configs == nil {
		configs = DefaultConfigs()
	}
	return &Engine{configs: configs}
}

// Process computes every configured indicator for s. An indicator that
// cannot be computed is reported as a failure; the rest still run.
func (e *Engine) Process(s model.Series) ([]model.IndicatorResult, []model.Failure) {
	if err := s.Validate(); err != nil {
		return nil, []model.Failure{model.NewFailure(s.Instrument, lastDate(s), "indicator", err)}
	}
	results := make([]model.IndicatorResult, 0, len(e.configs))
	var failures []model.Failure
	for _, cfg := range e.configs {
		r, err := Compute(s, cfg)
		if err != nil {
			failures = append(failures, model.NewFailure(s.Instrument, lastDate(s), "indicator", err))
			continue
		}
		results = append(results, r)
	}
	return results, failures
}

// Compute calculates a single indicator over s.
func Compute(s model.Series, cfg Config) (model.IndicatorResult, error) {
	res := model.IndicatorResult{Name: cfg.Name(), Instrument: s.Instrument, Dates: s.Dates()}
	closes := s.Closes()

	var err error
	switch strings.ToUpper(cfg.Type) {
	case "SMA":
		if err = lookback("SMA", cfg.Period, len(closes)); err == nil {
			res.Lines = single("SMA", SMAValues(closes, cfg.Period))
		}
	case "EMA":
		if err = lookback("EMA", cfg.Period, len(closes)); err == nil {
			res.Lines = single("EMA", EMAValues(closes, cfg.Period))
		}
	case "STD":
		if err = lookback("STD", cfg.Period, len(closes)); err == nil {
			res.Lines = single("STD", RollingStd(closes, cfg.Period))
		}
	case "MA":
		res.Lines = MA(closes, DefaultMAPeriods...)
	case "VOLMA":
		res.Lines = VolumeMA(s.Volumes(), DefaultVolumeMAPeriods...)
	case "MACD":
		var m MACDResult
		m, err = MACD(closes, cfg.Fast, cfg.Slow, cfg.Signal)
		res.Lines = []model.Line{{Name: "DIF", Values: m.DIF}, {Name: "DEA", Values: m.DEA}, {Name: "HIST", Values: m.Hist}}
	case "KDJ":
		var k KDJResult
		k, err = KDJ(s.Highs(), s.Lows(), closes, cfg.Period, cfg.Fast, cfg.Slow)
		res.Lines = []model.Line{{Name: "K", Values: k.K}, {Name: "D", Values: k.D}, {Name: "J", Values: k.J}}
	case "RSI":
		var v []float64
		v, err = RSIValues(closes, cfg.Period)
		res.Lines = single("RSI", v)
	case "WR":
		var v []float64
		v, err = WR(s.Highs(), s.Lows(), closes, cfg.Period)
		res.Lines = single("WR", v)
	case "BOLL":
		var b BOLLResult
		b, err = BOLL(closes, cfg.Period, cfg.K)
		res.Lines = []model.Line{{Name: "UPPER", Values: b.Upper}, {Name: "MID", Values: b.Mid}, {Name: "LOWER", Values: b.Lower}}
	case "ATR":
		var v []float64
		v, err = ATR(s.Highs(), s.Lows(), closes, cfg.Period)
		res.Lines = single("ATR", v)
	case "OBV":
		res.Lines = single("OBV", OBV(closes, s.Volumes()))
	default:
		return res, &model.InvalidInputError{Instrument: s.Instrument, Index: -1, Reason: fmt.Sprintf("unknown indicator %q", cfg.Type)}
	}
	if err != nil {
		switch e := err.(type) {
		case *model.InsufficientDataError:
			e.Instrument = s.Instrument
		case *model.InvalidInputError:
			e.Instrument = s.Instrument
		}
		return model.IndicatorResult{}, err
	}
	return res, nil
}

func single(name string, v []float64) []model.Line {
	return []model.Line{{Name: name, Values: v}}
}

func lastDate(s model.Series) (d time.Time) {
	if n := len(s.Bars); n > 0 {
		d = s.Bars[n-1].Date
	}
	return d
}

func itoa(n int) string { return strconv.Itoa(n) }
