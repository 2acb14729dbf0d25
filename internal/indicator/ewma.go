package indicator

// EWMA is an exponentially weighted mean parameterised by centre of mass:
// α = 1/(1+com). It starts from a fixed seed, so the first update already
// blends with it. KDJ uses seed 50.
type EWMA struct {
	alpha   float64
	seed    float64
	current float64
	count   int
}

// NewEWMA creates an EWMA with the given centre of mass and seed value.
func NewEWMA(com, seed float64) *EWMA {
	return &EWMA{alpha: 1 / (1 + com), seed: seed, current: seed}
}

func (e *EWMA) Name() string { return "EWMA" }

func (e *EWMA) Update(v float64) {
	e.count++
	e.current = e.alpha*v + (1-e.alpha)*e.current
}

func (e *EWMA) Value() float64 { return e.current }
func (e *EWMA) Ready() bool    { return e.count > 0 }

func (e *EWMA) Reset() {
	e.current = e.seed
	e.count = 0
}
