package usac

import "math"

// Score is the pair (inlier_count, cost) the controller orders candidate
// models by. Lower cost is better; ties are broken by higher inlier count.
type Score struct {
	InlierCount int
	Cost        float64
}

// WorstScore is the sentinel "nothing accepted yet" score.
func WorstScore() Score {
	return Score{InlierCount: 0, Cost: math.Inf(1)}
}

// IsBetter reports whether s is a better score than other under the
// engine's ordering: lower cost wins, ties go to the higher inlier count.
func (s Score) IsBetter(other Score) bool {
	if s.Cost != other.Cost {
		return s.Cost < other.Cost
	}
	return s.InlierCount > other.InlierCount
}
