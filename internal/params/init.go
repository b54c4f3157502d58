package params

import (
	"math"
	"math/rand"
)

// Initializer fills a parameter array with starting values.
type Initializer interface {
	Initialize(p *Array)
}

// Glorot samples uniformly from ±Gain*sqrt(6/(fanIn+fanOut)) (Xavier).
// Vectors (biases, context vectors) use their length as both fans.
type Glorot struct {
	Gain float64
	Rand *rand.Rand
}

// NewGlorot creates a seeded Glorot initializer with unit gain.
func NewGlorot(seed int64) *Glorot {
	return &Glorot{Gain: 1, Rand: rand.New(rand.NewSource(seed))}
}

// Initialize fills p in place.
func (g *Glorot) Initialize(p *Array) {
	s := p.Values.Shape()
	fanOut, fanIn := s.Rows, s.Columns
	if s.IsVector() {
		fanIn = s.Rows
	}
	bound := g.Gain * math.Sqrt(6/float64(fanIn+fanOut))

	r := g.Rand
	p.Values.Apply(func(float64) float64 {
		if r == nil {
			return rand.Float64()*2*bound - bound
		}
		return r.Float64()*2*bound - bound
	})
}

// Constant sets every value to Value.
type Constant struct {
	Value float64
}

// Initialize fills p in place.
func (c Constant) Initialize(p *Array) {
	v := c.Value
	p.Values.Apply(func(float64) float64 { return v })
}
