// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import (
	"fmt"
	"sync"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
)

// Source is the closed classification of where a sample's score came from.
//
// The closed enum replaces the original string tags so an unknown source can
// only arise from an out-of-range value, which the monitor buckets as
// neural with a logged warning rather than dropping the sample.
type Source int

const (
	// SourceNeuralFresh marks a fresh neural network inference.
	SourceNeuralFresh Source = iota

	// SourceNeuralCached marks a neural result served from the backend cache.
	SourceNeuralCached

	// SourceHeuristic marks the heuristic fallback evaluator.
	SourceHeuristic
)

// String returns the diagnostic-protocol spelling of the source.
func (s Source) String() string {
	switch s {
	case SourceNeuralFresh:
		return "neural_fresh"
	case SourceNeuralCached:
		return "neural_cached"
	case SourceHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Evaluation is one value/policy estimate for a position.
type Evaluation struct {
	// Value is the position value estimate from white's perspective,
	// nominally in [-1, 1].
	Value float64

	// Policy holds per-move probabilities aligned with the position's
	// LegalMoves order. May be nil when the backend produced value only.
	Policy []float64
}

// EvaluationProvider supplies neural evaluations to the controller.
//
// # Description
//
// The controller always probes the cache before requesting a fresh
// evaluation, and classifies results as SourceNeuralCached or
// SourceNeuralFresh accordingly. When IsAvailable is false or a call fails,
// the controller falls back to its heuristic evaluator; providers never need
// to implement a fallback themselves.
//
// # Thread Safety
//
// Implementations must tolerate concurrent calls; independent controllers
// may share one provider.
type EvaluationProvider interface {
	// IsAvailable reports whether the backend can serve evaluations.
	IsAvailable() bool

	// GetCachedEvaluation returns a cached evaluation for the position,
	// and whether one was present.
	GetCachedEvaluation(pos chess.Position) (Evaluation, bool)

	// EvaluateFresh computes evaluations for the given positions, one
	// result per input in order.
	EvaluateFresh(positions []chess.Position) ([]Evaluation, error)
}

// StaticProvider is an in-memory EvaluationProvider keyed by position ID.
//
// It backs tests, verification runs and the CLI's stub backend. Positions
// marked cached are served from GetCachedEvaluation; the rest only answer
// EvaluateFresh. Unknown positions make EvaluateFresh fail, which exercises
// the controller's per-sample skip path.
type StaticProvider struct {
	mu        sync.Mutex
	evals     map[string]Evaluation
	cached    map[string]bool
	available bool

	freshCalls int
	cacheHits  int
}

// NewStaticProvider returns an empty, available provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		evals:     make(map[string]Evaluation),
		cached:    make(map[string]bool),
		available: true,
	}
}

// Put registers an evaluation for a position ID. When cached is true the
// evaluation is served through the cache probe.
func (p *StaticProvider) Put(positionID string, eval Evaluation, cached bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evals[positionID] = eval
	p.cached[positionID] = cached
}

// SetAvailable flips the availability probe.
func (p *StaticProvider) SetAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = available
}

// IsAvailable implements EvaluationProvider.
func (p *StaticProvider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// GetCachedEvaluation implements EvaluationProvider.
func (p *StaticProvider) GetCachedEvaluation(pos chess.Position) (Evaluation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cached[pos.ID()] {
		return Evaluation{}, false
	}
	eval, ok := p.evals[pos.ID()]
	if ok {
		p.cacheHits++
	}
	return eval, ok
}

// EvaluateFresh implements EvaluationProvider.
func (p *StaticProvider) EvaluateFresh(positions []chess.Position) ([]Evaluation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freshCalls++

	results := make([]Evaluation, 0, len(positions))
	for _, pos := range positions {
		eval, ok := p.evals[pos.ID()]
		if !ok {
			return nil, fmt.Errorf("no evaluation for position %q", pos.ID())
		}
		results = append(results, eval)
	}
	return results, nil
}

// FreshCalls returns how many EvaluateFresh calls were made.
func (p *StaticProvider) FreshCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freshCalls
}

// CacheHits returns how many cache probes were served.
func (p *StaticProvider) CacheHits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cacheHits
}
