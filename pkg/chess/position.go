// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chess

// Position describes a board position to the sampler.
//
// # Description
//
// The sampling subsystem never generates moves or applies them; the host
// engine supplies positions that already know their legal moves. Successor
// lets value evaluation target the position after a candidate move when the
// host can provide it; returning nil is allowed and falls back to evaluating
// the current position.
//
// # Thread Safety
//
// Implementations must be safe for concurrent reads; the sampler only reads.
type Position interface {
	// ID returns a stable identifier for the position, typically its FEN.
	ID() string

	// LegalMoves returns the legal moves in a stable order. The slice must
	// not be mutated by the caller.
	LegalMoves() []Move

	// Successor returns the position after the given move, or nil when the
	// implementation cannot produce it.
	Successor(m Move) Position
}

// StaticPosition is a Position with a fixed move list and optional
// precomputed successors. It exists for verification fixtures and tests;
// production callers wrap their own board type instead.
type StaticPosition struct {
	fen        string
	moves      []Move
	successors map[string]Position
}

// NewStaticPosition builds a fixture position from a FEN identifier and its
// curated legal-move list.
func NewStaticPosition(fen string, moves []Move) *StaticPosition {
	return &StaticPosition{fen: fen, moves: moves}
}

// WithSuccessor registers the position reached by m and returns the
// receiver for chaining.
func (p *StaticPosition) WithSuccessor(m Move, succ Position) *StaticPosition {
	if p.successors == nil {
		p.successors = make(map[string]Position)
	}
	p.successors[m.UCI()] = succ
	return p
}

// ID returns the FEN the fixture was built with.
func (p *StaticPosition) ID() string { return p.fen }

// LegalMoves returns the curated move list.
func (p *StaticPosition) LegalMoves() []Move { return p.moves }

// Successor returns a registered successor or nil.
func (p *StaticPosition) Successor(m Move) Position {
	if p.successors == nil {
		return nil
	}
	return p.successors[m.UCI()]
}
