// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import "math"

const (
	// maxScoreVectorLen bounds softmax input length.
	maxScoreVectorLen = 1000000

	// minExpArg and maxExpArg clamp scaled scores so exp never
	// overflows or underflows to a hard zero.
	minExpArg = -700.0
	maxExpArg = 700.0
)

// SoftmaxCalculator converts aggregated move scores into a selection
// probability distribution using a max-shifted log-sum-exp transform.
//
// # Description
//
// Every invalid input — empty or oversized vectors, non-finite scores,
// lambda outside [MinLambda, MaxLambda], or any non-finite intermediate —
// falls back to the uniform distribution over the input length. The uniform
// fallback is the universal answer here, never an error: selection must
// always produce a usable distribution.
//
// # Thread Safety
//
// Stateless; safe to call from any number of goroutines.
type SoftmaxCalculator struct{}

// CalculateSoftmax transforms scores into probabilities with lambda as the
// inverse-temperature multiplier. The output has the same length as the
// input; an empty input yields an empty output.
func (SoftmaxCalculator) CalculateSoftmax(scores []float64, lambda float64) []float64 {
	if !isValidScoreInput(scores) || lambda < MinLambda || lambda > MaxLambda {
		return uniformProbabilities(len(scores))
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	if math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return uniformProbabilities(len(scores))
	}

	// Scale relative to the maximum, clamped to the safe exp range.
	scaled := make([]float64, len(scores))
	for i, s := range scores {
		v := (s - maxScore) * lambda
		if v < minExpArg {
			v = minExpArg
		} else if v > maxExpArg {
			v = maxExpArg
		}
		scaled[i] = v
	}

	sumExp := 0.0
	for _, v := range scaled {
		sumExp += math.Exp(v)
	}
	if sumExp <= 0 || math.IsInf(sumExp, 0) || math.IsNaN(sumExp) {
		return uniformProbabilities(len(scores))
	}
	logSumExp := math.Log(sumExp)
	if math.IsNaN(logSumExp) || math.IsInf(logSumExp, 0) {
		return uniformProbabilities(len(scores))
	}

	probs := make([]float64, len(scaled))
	for i, v := range scaled {
		probs[i] = math.Exp(v - logSumExp)
	}
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return uniformProbabilities(len(scores))
		}
	}
	return probs
}

// uniformProbabilities returns the uniform distribution over count entries,
// or an empty slice for count zero.
func uniformProbabilities(count int) []float64 {
	if count == 0 {
		return []float64{}
	}
	probs := make([]float64, count)
	p := 1.0 / float64(count)
	for i := range probs {
		probs[i] = p
	}
	return probs
}

// isValidScoreInput reports whether scores is non-empty, within the length
// bound, and fully finite.
func isValidScoreInput(scores []float64) bool {
	if len(scores) == 0 || len(scores) > maxScoreVectorLen {
		return false
	}
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return false
		}
	}
	return true
}
