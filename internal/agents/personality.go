package agents

// Personality holds fixed traits in [0, 1] drawn at birth. Traits weight
// the decision engine; they never gate feasibility.
type Personality struct {
	Curiosity    float64 `json:"curiosity"`    // Drive to invent
	Sociability  float64 `json:"sociability"`  // Drive to socialize and teach
	Helpfulness  float64 `json:"helpfulness"`  // Willingness to help and share
	Intelligence float64 `json:"intelligence"` // Speeds up learning by doing
}

// Clamp bounds every trait to [0, 1].
func (p *Personality) Clamp() {
	p.Curiosity = clamp01(p.Curiosity)
	p.Sociability = clamp01(p.Sociability)
	p.Helpfulness = clamp01(p.Helpfulness)
	p.Intelligence = clamp01(p.Intelligence)
}

// LearningRate scales experience earned by working: 0.75 for the dullest
// agent up to 1.25 for the brightest.
func (p Personality) LearningRate() float64 {
	return 0.75 + 0.5*p.Intelligence
}
