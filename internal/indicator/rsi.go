package indicator

import "quant-systemv1/internal/ringbuf"

// RSI calculates the Relative Strength Index from the simple rolling means
// of gains and losses over the last period deltas. It needs period+1 values.
// A zero mean loss yields 100.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *ringbuf.Window
	losses    *ringbuf.Window
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  ringbuf.New(period),
		losses: ringbuf.New(period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(v float64) {
	r.count++
	if r.count == 1 {
		// First value: record it, no delta yet
		r.prevClose = v
		return
	}
	gain, loss := split(v - r.prevClose)
	r.prevClose = v
	r.gains.Push(gain)
	r.losses.Push(loss)
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return rsiFrom(r.gains.Sum(), r.losses.Sum())
}

func (r *RSI) Ready() bool { return r.gains.Full() }

func (r *RSI) Reset() {
	r.count = 0
	r.prevClose = 0
	r.gains.Reset()
	r.losses.Reset()
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// rsiFrom works on window sums; the shared 1/period factor cancels.
func rsiFrom(gainSum, lossSum float64) float64 {
	if lossSum <= 0 {
		return 100.0
	}
	rs := gainSum / lossSum
	v := 100.0 - (100.0 / (1.0 + rs))
	// rolling sums may drift a hair below zero after many evictions
	if v < 0 {
		return 0
	}
	return v
}

// RSIValues returns RSI(period) for closes, NaN for the first period entries.
func RSIValues(closes []float64, period int) ([]float64, error) {
	if err := positive("RSI", period); err != nil {
		return nil, err
	}
	if err := insufficient("RSI", period+1, len(closes)); err != nil {
		return nil, err
	}
	return Values(NewRSI(period), closes), nil
}
