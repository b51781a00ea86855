// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import (
	"math"
	"testing"
)

func TestCalculateSoftmaxConcrete(t *testing.T) {
	var calc SoftmaxCalculator

	// Scores [1,2,3] at lambda 2: shifted arguments are [-4,-2,0], so the
	// probabilities are [e^-4, e^-2, 1] / (e^-4 + e^-2 + 1).
	probs := calc.CalculateSoftmax([]float64{1, 2, 3}, 2.0)
	want := []float64{0.0158762, 0.1173104, 0.8668133}
	if len(probs) != len(want) {
		t.Fatalf("got %d probabilities, want %d", len(probs), len(want))
	}
	for i := range want {
		if math.Abs(probs[i]-want[i]) > 1e-6 {
			t.Errorf("probs[%d] = %v, want %v", i, probs[i], want[i])
		}
	}
}

func TestCalculateSoftmaxSumsToOne(t *testing.T) {
	var calc SoftmaxCalculator

	tests := []struct {
		name   string
		scores []float64
		lambda float64
	}{
		{"typical", []float64{0.2, -0.5, 0.9, 0.1}, 0.1},
		{"extreme spread", []float64{-10000, 0, 10000}, 10.0},
		{"min lambda", []float64{1, 2, 3}, MinLambda},
		{"max lambda", []float64{1, 2, 3}, MaxLambda},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := calc.CalculateSoftmax(tt.scores, tt.lambda)
			sum := 0.0
			for _, p := range probs {
				if p < 0 || p > 1 {
					t.Errorf("probability %v out of [0,1]", p)
				}
				sum += p
			}
			if math.Abs(sum-1.0) > 1e-9 {
				t.Errorf("probabilities sum to %v, want 1", sum)
			}
		})
	}
}

func TestCalculateSoftmaxUniformFallback(t *testing.T) {
	var calc SoftmaxCalculator

	tests := []struct {
		name   string
		scores []float64
		lambda float64
	}{
		{"equal scores", []float64{5, 5, 5, 5}, 0.1},
		{"nan score", []float64{1, math.NaN(), 3}, 0.1},
		{"inf score", []float64{1, math.Inf(1), 3}, 0.1},
		{"lambda below range", []float64{1, 2, 3}, 0.0001},
		{"lambda above range", []float64{1, 2, 3}, 11.0},
		{"nan lambda", []float64{1, 2, 3}, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := calc.CalculateSoftmax(tt.scores, tt.lambda)
			if len(probs) != len(tt.scores) {
				t.Fatalf("got %d probabilities, want %d", len(probs), len(tt.scores))
			}
			want := 1.0 / float64(len(tt.scores))
			for i, p := range probs {
				if math.Abs(p-want) > 1e-12 {
					t.Errorf("probs[%d] = %v, want uniform %v", i, p, want)
				}
			}
		})
	}
}

func TestCalculateSoftmaxDegenerateInputs(t *testing.T) {
	var calc SoftmaxCalculator

	if probs := calc.CalculateSoftmax([]float64{}, 0.1); len(probs) != 0 {
		t.Errorf("empty input: got %d probabilities, want 0", len(probs))
	}
	if probs := calc.CalculateSoftmax(nil, 0.1); len(probs) != 0 {
		t.Errorf("nil input: got %d probabilities, want 0", len(probs))
	}

	probs := calc.CalculateSoftmax([]float64{0.42}, 0.1)
	if len(probs) != 1 || probs[0] != 1.0 {
		t.Errorf("single score: got %v, want [1]", probs)
	}

	oversized := make([]float64, maxScoreVectorLen+1)
	probs = calc.CalculateSoftmax(oversized, 0.1)
	want := 1.0 / float64(len(oversized))
	if len(probs) != len(oversized) || probs[0] != want {
		t.Errorf("oversized input: got len %d probs[0] %v, want uniform %v", len(probs), probs[0], want)
	}
}

func TestCalculateSoftmaxOrderPreserved(t *testing.T) {
	var calc SoftmaxCalculator

	probs := calc.CalculateSoftmax([]float64{-1.0, 0.3, 2.5, 0.3}, 1.0)
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Errorf("probabilities %v do not preserve score order", probs)
	}
	if math.Abs(probs[1]-probs[3]) > 1e-12 {
		t.Errorf("equal scores got unequal probabilities %v and %v", probs[1], probs[3])
	}
}
