// Copyright (C) 2025 Batuhan Açıkgöz
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chess defines the minimal board-side contracts the sampling
// subsystem consumes. Move legality and full board representation belong to
// the host engine; this package only carries what the sampler needs to score
// and report candidate moves.
package chess

import (
	"fmt"
	"strings"
)

// Square identifies a board square by zero-based file and rank.
//
// File 0 is the a-file, rank 0 is rank 1, so e4 is {File: 4, Rank: 3}.
type Square struct {
	File int
	Rank int
}

// ParseSquare parses algebraic coordinates like "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("parse square %q: want two characters", s)
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return Square{}, fmt.Errorf("parse square %q: out of board", s)
	}
	return Square{File: file, Rank: rank}, nil
}

// String returns the algebraic name of the square ("e4").
func (s Square) String() string {
	return fmt.Sprintf("%c%c", 'a'+byte(s.File), '1'+byte(s.Rank))
}

// IsCentral reports whether the square is one of the four central squares
// d4, d5, e4 or e5.
func (s Square) IsCentral() bool {
	return (s.File == 3 || s.File == 4) && (s.Rank == 3 || s.Rank == 4)
}

// Move is a candidate move as presented to the sampler.
//
// # Description
//
// The host engine produces these from its own move generation. Capture and
// EnPassant are carried here because the sampler's heuristic fallback needs
// them; the sampler never re-derives legality or capture status itself.
type Move struct {
	From Square
	To   Square

	// Promotion holds the promotion piece letter ('q', 'r', 'b', 'n')
	// or zero for non-promoting moves.
	Promotion byte

	// Capture is true when the destination square is occupied by an
	// opposing piece.
	Capture bool

	// EnPassant is true for en-passant captures, where the destination
	// square itself is empty.
	EnPassant bool
}

// ParseMove parses a UCI-style move string like "e2e4" or "e7e8q".
//
// Capture and en-passant flags cannot be recovered from UCI notation and
// are left false; callers set them from engine knowledge.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("parse move %q: want 4 or 5 characters", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("parse move %q: %w", s, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("parse move %q: %w", s, err)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'r', 'b', 'n':
			m.Promotion = s[4]
		default:
			return Move{}, fmt.Errorf("parse move %q: bad promotion piece %q", s, s[4])
		}
	}
	return m, nil
}

// UCI returns the move in UCI notation ("e2e4", "e7e8q").
func (m Move) UCI() string {
	if m.Promotion != 0 {
		return m.From.String() + m.To.String() + string(m.Promotion)
	}
	return m.From.String() + m.To.String()
}

// String is an alias for UCI, so moves format naturally in logs.
func (m Move) String() string { return m.UCI() }

// IsZero reports whether the move is the zero value, used as the "no move
// selected" signal.
func (m Move) IsZero() bool { return m == Move{} }
