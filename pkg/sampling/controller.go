// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/spf13/viper"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/diag"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/logging"
)

// SampleResult is one candidate move's aggregated outcome.
type SampleResult struct {
	// Move is the candidate.
	Move chess.Move

	// Score is the mean of the move's per-sample scores.
	Score float64

	// Probability is the softmax selection probability assigned to the
	// move, filled in during selection.
	Probability float64
}

// scorer produces one sample's score for the i-th legal move and names the
// evaluation source it came from.
type scorer func(pos chess.Position, move chess.Move, moveIdx, moveCount int) (float64, Source, error)

// Controller drives stochastic root-move sampling end to end.
//
// # Description
//
// SelectMove snapshots the configuration, samples every legal move the
// configured number of times through the evaluation chain (fresh neural →
// cached neural → heuristic), aggregates scores, runs the softmax transform
// and picks a move. Disabled or invalid configurations make SelectMove a
// no-op so the caller falls through to its primary search. Per-sample
// failures are skipped, never fatal.
//
// # Thread Safety
//
// A Controller serializes nothing itself; callers run one selection at a
// time per Controller. The monitor and diagnostic logger it owns are
// individually thread-safe.
type Controller struct {
	config    Config
	provider  EvaluationProvider
	softmax   SoftmaxCalculator
	monitor   *PerformanceMonitor
	heuristic HeuristicEvaluator
	diag      *diag.Logger
	log       *logging.Logger

	// draw picks an index from a probability distribution; tests inject a
	// deterministic implementation.
	draw func(probs []float64) int

	// heuristicWarned dedupes the backend-unavailable warning within one
	// selection call.
	heuristicWarned bool
}

// ControllerOption configures a Controller at construction.
type ControllerOption func(*Controller)

// WithDiagnostics injects the diagnostic event logger. Without it the
// controller uses the process-wide default.
func WithDiagnostics(d *diag.Logger) ControllerOption {
	return func(c *Controller) { c.diag = d }
}

// WithLogger injects the operational logger.
func WithLogger(log *logging.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithMonitor injects a shared performance monitor.
func WithMonitor(m *PerformanceMonitor) ControllerOption {
	return func(c *Controller) { c.monitor = m }
}

// NewController builds a controller around an evaluation provider. The
// provider may be nil; sampling then runs entirely on the heuristic
// evaluator.
func NewController(cfg Config, provider EvaluationProvider, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider: provider,
		draw:     drawIndex,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Default()
	}
	if c.diag == nil {
		c.diag = diag.Default()
	}
	if c.monitor == nil {
		c.monitor = NewPerformanceMonitor(c.log)
	}
	c.SetConfig(cfg)
	return c
}

// SetConfig replaces the controller's configuration and reconfigures the
// diagnostic logger to match: enablement and stderr mirroring follow
// DebugLogging, and a configured metrics file is wired as the event sink even
// while debug logging is off, so enabling it later needs no re-wiring.
func (c *Controller) SetConfig(cfg Config) {
	c.config = cfg
	c.diag.SetEnabled(cfg.DebugLogging)
	c.diag.SetOutputToStderr(cfg.DebugLogging)
	if cfg.MetricsFile != "" {
		c.diag.SetOutputFile(cfg.MetricsFile)
	}
}

// UpdateOptions re-reads the configuration from the options store.
func (c *Controller) UpdateOptions(v *viper.Viper) {
	c.SetConfig(ConfigFromOptions(v))
}

// Config returns the current configuration.
func (c *Controller) Config() Config {
	return c.config
}

// GetLastSamplingMetrics returns the monitor's metrics for the most recent
// (or in-flight) sampling session.
func (c *Controller) GetLastSamplingMetrics() SamplingMetrics {
	return c.monitor.GetMetrics()
}

// ExportPerformanceMetrics appends the latest metrics to the configured
// metrics file.
func (c *Controller) ExportPerformanceMetrics() error {
	if c.config.MetricsFile == "" {
		return fmt.Errorf("no metrics file configured")
	}
	return c.monitor.ExportMetrics(c.config.MetricsFile)
}

// SelectMove runs one full sampling selection on the position.
//
// The second return is false when sampling declined to pick a move: the
// subsystem is disabled, the configuration is invalid, the position has no
// legal moves, or every sample failed.
func (c *Controller) SelectMove(pos chess.Position) (chess.Move, bool) {
	cfg := c.config
	if !cfg.Enabled || !cfg.IsValid() {
		return chess.Move{}, false
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		c.log.Debug("no legal moves, sampling skipped", "position", pos.ID())
		return chess.Move{}, false
	}
	c.heuristicWarned = false
	c.diag.StartSession(pos.ID())
	defer c.diag.EndSession()
	c.diag.LogSamplingStart(cfg.Lambda, cfg.Samples, len(moves), cfg.SamplingMode.String(), cfg.RewardMode.String())

	var score scorer
	switch cfg.SamplingMode {
	case ModeQuantumLimit:
		score = c.quantumScorer(cfg.RewardMode)
	default:
		score = c.evaluateValue
	}

	results, ok := c.sampleMoves(pos, moves, cfg, score)
	if !ok {
		return chess.Move{}, false
	}
	return c.selectFromResults(results, cfg)
}

// quantumScorer builds the scorer for the configured reward mode.
func (c *Controller) quantumScorer(mode RewardMode) scorer {
	switch mode {
	case RewardPolicy:
		return c.evaluatePolicy
	case RewardCPScore:
		return c.evaluateValue
	default:
		return c.evaluateHybrid
	}
}

// checkSampleCounts validates the requested workload. A non-nil error aborts
// the run; warnings are logged and sampling proceeds.
func (c *Controller) checkSampleCounts(samples, moveCount int) error {
	if samples <= 0 {
		return fmt.Errorf("invalid sample count %d", samples)
	}
	if moveCount <= 0 {
		return fmt.Errorf("invalid move count %d", moveCount)
	}
	if samples > maxSamplesPerMove {
		msg := fmt.Sprintf("sample count %d per move exceeds recommended maximum %d", samples, maxSamplesPerMove)
		c.log.Warn(msg)
		c.diag.LogWarning(msg)
	}
	if total := samples * moveCount; total > maxTotalSamples {
		msg := fmt.Sprintf("total sample count %d exceeds recommended maximum %d", total, maxTotalSamples)
		c.log.Warn(msg)
		c.diag.LogWarning(msg)
	}
	return nil
}

// sampleMoves runs the per-move per-sample loop and aggregates mean scores.
func (c *Controller) sampleMoves(pos chess.Position, moves []chess.Move, cfg Config, score scorer) ([]SampleResult, bool) {
	if err := c.checkSampleCounts(cfg.Samples, len(moves)); err != nil {
		c.log.Error("sampling aborted", "error", err)
		c.diag.LogError(err.Error())
		return nil, false
	}

	requested := cfg.Samples * len(moves)
	c.monitor.StartSampling(requested)

	results := make([]SampleResult, 0, len(moves))
	totalActual := 0
	for i, move := range moves {
		sum := 0.0
		completed := 0
		for s := 0; s < cfg.Samples; s++ {
			start := time.Now()
			value, source, err := score(pos, move, i, len(moves))
			elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
			if err != nil {
				c.diag.LogWarning(fmt.Sprintf("sample %d for move %s failed: %v", s, move.UCI(), err))
				continue
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				c.diag.LogWarning(fmt.Sprintf("sample %d for move %s produced non-finite score", s, move.UCI()))
				continue
			}
			c.monitor.RecordSample(source, elapsedMs)
			c.diag.LogSampleEvaluation(s, move.UCI(), value, source.String(), elapsedMs)
			sum += value
			completed++
		}

		if completed < cfg.Samples {
			c.log.Warn("incomplete sampling for move",
				"move", move.UCI(), "completed", completed, "requested", cfg.Samples)
		}
		totalActual += completed

		// A move with zero valid samples drops out of selection entirely.
		if completed == 0 {
			c.diag.LogWarning(fmt.Sprintf("move %s dropped: no valid samples", move.UCI()))
			continue
		}
		results = append(results, SampleResult{Move: move, Score: sum / float64(completed)})
	}

	if totalActual == 0 {
		c.log.Error("all samples failed, sampling produced no result", "position", pos.ID())
		c.diag.LogError("all samples failed")
		c.monitor.EndSampling()
		return nil, false
	}
	if totalActual != requested {
		c.log.Warn("sample count discrepancy",
			"requested", requested, "actual", totalActual)
	}

	c.monitor.EndSampling()
	m := c.monitor.GetMetrics()
	c.diag.LogSamplingComplete(m.ActualSamples, m.NeuralNetEvaluations, m.CachedEvaluations, m.HeuristicEvaluations, m.TotalTimeMs)

	return results, true
}

// selectFromResults runs softmax over aggregated scores and picks the
// highest-probability move.
func (c *Controller) selectFromResults(results []SampleResult, cfg Config) (chess.Move, bool) {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	probs := c.softmax.CalculateSoftmax(scores, cfg.Lambda)
	c.diag.LogSoftmaxCalculation(scores, probs, cfg.Lambda)

	best := 0
	for i := range results {
		results[i].Probability = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	distribution := make([]diag.MoveProbability, len(results))
	for i, r := range results {
		distribution[i] = diag.MoveProbability{Move: r.Move.UCI(), Probability: r.Probability}
	}
	c.diag.LogMoveSelection(results[best].Move.UCI(), results[best].Probability, results[best].Score, distribution)

	c.log.Info("sampling selected move",
		"move", results[best].Move.UCI(),
		"probability", results[best].Probability,
		"mode", cfg.SamplingMode.String(),
	)
	return results[best].Move, true
}

// SelectFromScores applies the selection policy to externally computed
// per-move scores, one score per move.
//
// Competitive mode draws probabilistically from the softmax distribution;
// quantum-limit mode picks the argmax. Diagnostic events are emitted only if
// a session is already active; this entry point never opens one.
func (c *Controller) SelectFromScores(moves []chess.Move, scores []float64) (chess.Move, bool) {
	cfg := c.config
	if !cfg.Enabled || !cfg.IsValid() {
		return chess.Move{}, false
	}
	if len(moves) == 0 || len(moves) != len(scores) {
		return chess.Move{}, false
	}

	probs := c.softmax.CalculateSoftmax(scores, cfg.Lambda)
	c.diag.LogSoftmaxCalculation(scores, probs, cfg.Lambda)

	var idx int
	if cfg.SamplingMode == ModeCompetitive {
		idx = c.draw(probs)
	} else {
		for i := range probs {
			if probs[i] > probs[idx] {
				idx = i
			}
		}
	}

	distribution := make([]diag.MoveProbability, len(moves))
	for i := range moves {
		distribution[i] = diag.MoveProbability{Move: moves[i].UCI(), Probability: probs[i]}
	}
	c.diag.LogMoveSelection(moves[idx].UCI(), probs[idx], scores[idx], distribution)
	// Externally supplied scores count as cached data.
	c.diag.LogSamplingComplete(len(moves), 0, len(moves), 0, 0)

	return moves[idx], true
}

// drawIndex samples an index from the distribution by inverse CDF. The
// distribution is softmax output, so it sums to one up to rounding; the last
// index absorbs any residue.
func drawIndex(probs []float64) int {
	r := rand.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if r < cum {
			return i
		}
	}
	return len(probs) - 1
}

// ==============================================================================
// Scorers
// ==============================================================================

// evaluateValue scores a move by the value of the position after the move,
// via the cache-then-fresh evaluation chain, degrading to the heuristic.
func (c *Controller) evaluateValue(pos chess.Position, move chess.Move, _ int, _ int) (float64, Source, error) {
	target := pos.Successor(move)
	if target == nil {
		target = pos
	}

	if c.provider == nil || !c.provider.IsAvailable() {
		c.warnHeuristicFallback()
		return c.heuristic.Evaluate(move), SourceHeuristic, nil
	}

	if eval, ok := c.provider.GetCachedEvaluation(target); ok {
		c.diag.LogNeuralNetworkCall(true, 0, "value served from cache")
		return eval.Value, SourceNeuralCached, nil
	}

	start := time.Now()
	evals, err := c.provider.EvaluateFresh([]chess.Position{target})
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil || len(evals) == 0 {
		c.warnHeuristicFallback()
		return c.heuristic.Evaluate(move), SourceHeuristic, nil
	}
	c.diag.LogNeuralNetworkCall(false, elapsedMs, "fresh value evaluation")
	return evals[0].Value, SourceNeuralFresh, nil
}

// evaluatePolicy scores a move by its policy probability in the current
// position, falling back to a uniform prior when no policy is available.
func (c *Controller) evaluatePolicy(pos chess.Position, _ chess.Move, moveIdx, moveCount int) (float64, Source, error) {
	if c.provider != nil && c.provider.IsAvailable() {
		if eval, ok := c.provider.GetCachedEvaluation(pos); ok && moveIdx < len(eval.Policy) {
			c.diag.LogNeuralNetworkCall(true, 0, "policy served from cache")
			return eval.Policy[moveIdx], SourceNeuralCached, nil
		}
		start := time.Now()
		evals, err := c.provider.EvaluateFresh([]chess.Position{pos})
		elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
		if err == nil && len(evals) > 0 && moveIdx < len(evals[0].Policy) {
			c.diag.LogNeuralNetworkCall(false, elapsedMs, "fresh policy evaluation")
			return evals[0].Policy[moveIdx], SourceNeuralFresh, nil
		}
	}

	c.warnHeuristicFallback()
	return 1.0 / float64(moveCount), SourceHeuristic, nil
}

// evaluateHybrid scores a move by policy probability × successor value. The
// sample is attributed to the value evaluation's source.
func (c *Controller) evaluateHybrid(pos chess.Position, move chess.Move, moveIdx, moveCount int) (float64, Source, error) {
	policy, _, err := c.evaluatePolicy(pos, move, moveIdx, moveCount)
	if err != nil {
		return 0, SourceHeuristic, err
	}
	value, source, err := c.evaluateValue(pos, move, moveIdx, moveCount)
	if err != nil {
		return 0, source, err
	}
	return policy * value, source, nil
}

// warnHeuristicFallback emits the backend-unavailable warning once per
// selection call.
func (c *Controller) warnHeuristicFallback() {
	if c.heuristicWarned {
		return
	}
	c.heuristicWarned = true
	c.log.Warn("neural backend unavailable, using heuristic evaluation")
	c.diag.LogWarning("neural backend unavailable, using heuristic evaluation")
}
