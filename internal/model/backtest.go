package model

// BacktestResult summarises the forward-return performance of a signal series.
// Undefined statistics (e.g. Sharpe with zero dispersion) are NaN.
type BacktestResult struct {
	Instrument      string    `json:"instrument"`
	Strategy        string    `json:"strategy"`
	Horizon         int       `json:"horizon"`
	ForwardReturns  []float64 `json:"-"`
	StrategyReturns []float64 `json:"-"`
	Cumulative      []float64 `json:"-"`
	TotalReturn     float64   `json:"total_return"`
	Sharpe          float64   `json:"sharpe"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	WinRate         float64   `json:"win_rate"`
	Observations    int       `json:"observations"`
	Trades          int       `json:"trades"`
}
