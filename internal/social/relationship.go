package social

// Relationship scores are directed opinions in [MinScore, MaxScore].
const (
	MinScore     = -1.0
	MaxScore     = 1.0
	NeutralScore = 0.0
)

// Clamp bounds a score to the valid range.
func Clamp(score float64) float64 {
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	}
	return score
}

// Adjust applies delta and clamps the result.
func Adjust(score, delta float64) float64 {
	return Clamp(score + delta)
}

// Decay moves score toward neutral by rate*dt without overshooting.
func Decay(score, rate, dt float64) float64 {
	step := rate * dt
	switch {
	case score > NeutralScore:
		score -= step
		if score < NeutralScore {
			score = NeutralScore
		}
	case score < NeutralScore:
		score += step
		if score > NeutralScore {
			score = NeutralScore
		}
	}
	return Clamp(score)
}
