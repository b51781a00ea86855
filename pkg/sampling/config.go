// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sampling implements stochastic root-move sampling: repeated
// evaluation of every legal move through a pluggable evaluation provider,
// score aggregation, and softmax-based move selection. It is the engine's
// alternative to the primary tree search and degrades to heuristics when the
// neural backend is absent.
package sampling

import (
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// Parameter ranges, mirrored by the option documentation.
const (
	// MinLambda and MaxLambda bound the softmax temperature multiplier.
	MinLambda = 0.001
	MaxLambda = 10.0

	// MinSamples and MaxSamples bound the per-move sample count.
	MinSamples = 1
	MaxSamples = 100000

	// DefaultLambda is the default temperature multiplier.
	DefaultLambda = 0.1

	// DefaultSamples is the default per-move sample count.
	DefaultSamples = 50

	// maxSamplesPerMove triggers a non-fatal warning when exceeded.
	maxSamplesPerMove = 10000

	// maxTotalSamples (samples × legal moves) triggers a non-fatal warning.
	maxTotalSamples = 100000
)

// Option keys in the external key/value options store.
const (
	OptionLambda       = "path-integral.lambda"
	OptionSamples      = "path-integral.samples"
	OptionRewardMode   = "path-integral.reward-mode"
	OptionSamplingMode = "path-integral.mode"
	OptionDebugLogging = "path-integral.debug-logging"
	OptionMetricsFile  = "path-integral.metrics-file"
)

// RewardMode selects how quantum-limit sampling scores a candidate move.
type RewardMode int

const (
	// RewardPolicy scores a move by its policy probability.
	RewardPolicy RewardMode = iota

	// RewardCPScore scores a move by its value estimate.
	RewardCPScore

	// RewardHybrid scores a move by policy probability × value estimate.
	RewardHybrid
)

// ParseRewardMode parses "policy", "cp_score" or "hybrid".
func ParseRewardMode(s string) (RewardMode, error) {
	switch s {
	case "policy":
		return RewardPolicy, nil
	case "cp_score":
		return RewardCPScore, nil
	case "hybrid":
		return RewardHybrid, nil
	default:
		return RewardHybrid, fmt.Errorf("unknown reward mode %q", s)
	}
}

// String returns the option-store spelling of the mode.
func (m RewardMode) String() string {
	switch m {
	case RewardPolicy:
		return "policy"
	case RewardCPScore:
		return "cp_score"
	case RewardHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// SamplingMode selects the controller's selection policy.
type SamplingMode int

const (
	// ModeCompetitive aggregates value samples per move before softmax
	// and argmax selection.
	ModeCompetitive SamplingMode = iota

	// ModeQuantumLimit aggregates reward-mode composites per move before
	// softmax and argmax selection.
	ModeQuantumLimit
)

// ParseSamplingMode parses "competitive" or "quantum_limit".
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch s {
	case "competitive":
		return ModeCompetitive, nil
	case "quantum_limit":
		return ModeQuantumLimit, nil
	default:
		return ModeCompetitive, fmt.Errorf("unknown sampling mode %q", s)
	}
}

// String returns the option-store spelling of the mode.
func (m SamplingMode) String() string {
	switch m {
	case ModeCompetitive:
		return "competitive"
	case ModeQuantumLimit:
		return "quantum_limit"
	default:
		return "unknown"
	}
}

// Config is the validated parameter bundle for one sampling call.
//
// # Description
//
// An out-of-range Config is never rejected outright: IsValid flags it and
// downstream code treats it as disabled, so a bad option value can never
// crash a game in progress. The controller snapshots the Config at the top
// of each selection call; mutating a Config mid-call has no effect on
// in-flight sampling.
type Config struct {
	// Lambda is the softmax temperature multiplier, valid in
	// [MinLambda, MaxLambda].
	Lambda float64

	// Samples is the per-move sample count, valid in
	// [MinSamples, MaxSamples].
	Samples int

	// RewardMode selects the quantum-limit scoring composite.
	RewardMode RewardMode

	// SamplingMode selects competitive or quantum-limit selection.
	SamplingMode SamplingMode

	// Enabled gates the whole subsystem. ConfigFromOptions derives it as
	// Lambda > 0 && Samples > 0; callers may also set it explicitly.
	Enabled bool

	// DebugLogging turns on the diagnostic event protocol for the call.
	DebugLogging bool

	// MetricsFile, when non-empty, is the diagnostic/metrics file path.
	// Empty means stderr-only diagnostics.
	MetricsFile string
}

// SetDefaults resets the receiver to documented defaults with sampling
// disabled.
func (c *Config) SetDefaults() {
	c.Lambda = DefaultLambda
	c.Samples = DefaultSamples
	c.RewardMode = RewardHybrid
	c.SamplingMode = ModeCompetitive
	c.Enabled = false
	c.DebugLogging = false
	c.MetricsFile = ""
}

// IsValid reports whether every parameter lies in its documented range.
// Invalid configurations are treated as disabled, never as errors.
func (c Config) IsValid() bool {
	if math.IsNaN(c.Lambda) || math.IsInf(c.Lambda, 0) {
		return false
	}
	if c.Lambda < MinLambda || c.Lambda > MaxLambda {
		return false
	}
	if c.Samples < MinSamples || c.Samples > MaxSamples {
		return false
	}
	return true
}

// RegisterOptionDefaults installs the documented defaults into an options
// store so ConfigFromOptions sees complete values.
func RegisterOptionDefaults(v *viper.Viper) {
	v.SetDefault(OptionLambda, DefaultLambda)
	v.SetDefault(OptionSamples, DefaultSamples)
	v.SetDefault(OptionRewardMode, RewardHybrid.String())
	v.SetDefault(OptionSamplingMode, ModeCompetitive.String())
	v.SetDefault(OptionDebugLogging, false)
	v.SetDefault(OptionMetricsFile, "")
}

// ConfigFromOptions reads a Config from the external options store.
//
// Enabled is derived as Lambda > 0 && Samples > 0. Unparseable mode strings
// yield defaults with sampling disabled rather than an error, matching the
// rule that configuration problems degrade to a no-op.
func ConfigFromOptions(v *viper.Viper) Config {
	var c Config
	c.SetDefaults()

	c.Lambda = v.GetFloat64(OptionLambda)
	c.Samples = v.GetInt(OptionSamples)

	rewardMode, err := ParseRewardMode(v.GetString(OptionRewardMode))
	if err != nil {
		c.SetDefaults()
		return c
	}
	c.RewardMode = rewardMode

	samplingMode, err := ParseSamplingMode(v.GetString(OptionSamplingMode))
	if err != nil {
		c.SetDefaults()
		return c
	}
	c.SamplingMode = samplingMode

	c.DebugLogging = v.GetBool(OptionDebugLogging)
	c.MetricsFile = v.GetString(OptionMetricsFile)
	c.Enabled = c.Lambda > 0 && c.Samples > 0

	return c
}
