// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"fmt"
	"hash/fnv"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/chess"
	"github.com/BatuhanAcikgoz/lc0-path-integral-method/pkg/sampling"
)

// positionSpec is the YAML shape for one fixture position.
type positionSpec struct {
	FEN   string     `yaml:"fen"`
	Moves []moveSpec `yaml:"moves"`
}

type moveSpec struct {
	UCI       string `yaml:"uci"`
	Capture   bool   `yaml:"capture,omitempty"`
	EnPassant bool   `yaml:"en_passant,omitempty"`
}

type positionsFile struct {
	Positions []positionSpec `yaml:"positions"`
}

// LoadPositions reads fixture positions from a YAML file.
func LoadPositions(path string) ([]chess.Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read positions file %s: %w", path, err)
	}
	var f positionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse positions file %s: %w", path, err)
	}
	if len(f.Positions) == 0 {
		return nil, fmt.Errorf("positions file %s contains no positions", path)
	}

	positions := make([]chess.Position, 0, len(f.Positions))
	for _, spec := range f.Positions {
		moves := make([]chess.Move, 0, len(spec.Moves))
		for _, ms := range spec.Moves {
			m, err := chess.ParseMove(ms.UCI)
			if err != nil {
				return nil, fmt.Errorf("position %q: %w", spec.FEN, err)
			}
			m.Capture = ms.Capture
			m.EnPassant = ms.EnPassant
			moves = append(moves, m)
		}
		positions = append(positions, chess.NewStaticPosition(spec.FEN, moves))
	}
	return positions, nil
}

// mustMove builds a fixture move, panicking on a bad literal. Only used for
// the compiled-in defaults below.
func mustMove(uci string, capture bool) chess.Move {
	m, err := chess.ParseMove(uci)
	if err != nil {
		panic(err)
	}
	m.Capture = capture
	return m
}

// DefaultTestPositions returns the built-in fixture set: opening, middlegame,
// endgame and tactical positions with curated move lists that exercise the
// capture and center bonuses of the heuristic evaluator.
func DefaultTestPositions() []chess.Position {
	return []chess.Position{
		chess.NewStaticPosition(
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			[]chess.Move{
				mustMove("e2e4", false),
				mustMove("d2d4", false),
				mustMove("g1f3", false),
				mustMove("c2c4", false),
				mustMove("b1c3", false),
				mustMove("g2g3", false),
			}),
		chess.NewStaticPosition(
			"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
			[]chess.Move{
				mustMove("g8f6", false),
				mustMove("f8c5", false),
				mustMove("f8e7", false),
				mustMove("d7d6", false),
				mustMove("h7h6", false),
			}),
		chess.NewStaticPosition(
			"rnbqkbnr/ppp1pppp/8/3p4/3P4/8/PPP1PPPP/RNBQKBNR w KQkq - 0 2",
			[]chess.Move{
				mustMove("c2c4", false),
				mustMove("g1f3", false),
				mustMove("c1f4", false),
				mustMove("e2e3", false),
			}),
		chess.NewStaticPosition(
			"r1bqkb1r/pppp1ppp/2n2n2/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
			[]chess.Move{
				mustMove("b5c6", true),
				mustMove("f3e5", true),
				mustMove("e1g1", false),
				mustMove("d2d3", false),
				mustMove("b1c3", false),
			}),
		chess.NewStaticPosition(
			"8/8/4k3/8/8/4K3/4P3/8 w - - 0 1",
			[]chess.Move{
				mustMove("e2e4", false),
				mustMove("e3d4", false),
				mustMove("e3f4", false),
				mustMove("e3d3", false),
				mustMove("e3f3", false),
			}),
		chess.NewStaticPosition(
			"8/5pk1/8/8/8/8/5PK1/4R3 w - - 0 1",
			[]chess.Move{
				mustMove("e1e7", false),
				mustMove("e1e8", false),
				mustMove("e1e4", false),
				mustMove("e1a1", false),
				mustMove("g2f3", false),
			}),
		chess.NewStaticPosition(
			"r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/8/PPPP1PPP/RNBQK1NR b KQkq - 3 3",
			[]chess.Move{
				mustMove("a7a6", false),
				mustMove("g8f6", false),
				mustMove("f8c5", false),
				mustMove("c6d4", false),
				mustMove("d7d6", false),
			}),
	}
}

// SeededProvider builds an in-memory evaluation backend covering the given
// positions. Every other position is marked cached so verification runs
// exercise both the fresh and cached classification paths. Values and
// policies are derived deterministically from the position ID, so repeated
// runs see stable backend behavior.
func SeededProvider(positions []chess.Position) *sampling.StaticProvider {
	p := sampling.NewStaticProvider()
	for i, pos := range positions {
		moves := pos.LegalMoves()
		policy := make([]float64, len(moves))
		total := 0.0
		for j := range policy {
			// Favor earlier moves so policy is non-uniform but stable.
			policy[j] = 1.0 / float64(j+1)
			total += policy[j]
		}
		for j := range policy {
			policy[j] /= total
		}
		p.Put(pos.ID(), sampling.Evaluation{
			Value:  seededValue(pos.ID()),
			Policy: policy,
		}, i%2 == 1)
	}
	return p
}

// seededValue maps a position ID to a stable value in (-1, 1).
func seededValue(id string) float64 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return float64(h.Sum32()%2000)/1000.0 - 1.0 + 0.0005
}
