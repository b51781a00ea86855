// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import (
	"math/rand"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
)

const (
	heuristicCaptureBonus = 1.0
	heuristicCenterBonus  = 0.5
	heuristicNoiseStdDev  = 0.1
)

// HeuristicEvaluator scores a move without any neural backend: captures and
// central destinations get fixed bonuses, plus Gaussian noise emulating
// sampling variance so repeated samples of the same move still spread.
type HeuristicEvaluator struct {
	// Noise overrides the noise term when non-nil. Tests inject a
	// deterministic source; production uses N(0, 0.1).
	Noise func() float64
}

// Evaluate returns the heuristic score for a candidate move.
func (h HeuristicEvaluator) Evaluate(m chess.Move) float64 {
	score := 0.0
	if m.Capture || m.EnPassant {
		score += heuristicCaptureBonus
	}
	if m.To.IsCentral() {
		score += heuristicCenterBonus
	}
	if h.Noise != nil {
		score += h.Noise()
	} else {
		score += rand.NormFloat64() * heuristicNoiseStdDev
	}
	return score
}
