// Package checkpoint implements the persistence layer for exponentiation
// state. Each file holds exactly one state variant, identified by a tag
// discriminator: a plain residue state, a residue-plus-accumulator check
// state, or a bare iteration marker. Writes are atomic; a corrupt or absent
// file always reads back as "no state".
package checkpoint

import "math/big"

// Position is the common view of every persisted state variant: the iteration
// it labels.
type Position interface {
	Iteration() int
}

// Mark is an iteration-only progress marker. It is what the working file of a
// verified run holds between a successful verification and the next commit of
// a full check state.
type Mark struct {
	Iter int
}

// Iteration returns the marked iteration.
func (m Mark) Iteration() int { return m.Iter }

// State is a residue checkpoint: the iteration and the residue X at that
// iteration, in portable form. It is the only variant stored in recovery
// files.
type State struct {
	Iter int
	X    *big.Int
}

// NewState creates a State holding a copy of x.
func NewState(iteration int, x *big.Int) *State {
	return &State{Iter: iteration, X: new(big.Int).Set(x)}
}

// Iteration returns the checkpointed iteration.
func (s *State) Iteration() int { return s.Iter }

// CheckState is a working checkpoint for verified execution: the iteration,
// the residue X and the rolling check accumulator D.
type CheckState struct {
	Iter int
	X    *big.Int
	D    *big.Int
}

// NewCheckState creates a CheckState holding copies of x and d.
func NewCheckState(iteration int, x, d *big.Int) *CheckState {
	return &CheckState{Iter: iteration, X: new(big.Int).Set(x), D: new(big.Int).Set(d)}
}

// Iteration returns the checkpointed iteration.
func (s *CheckState) Iteration() int { return s.Iter }
