// Package dfa implements the lazy, on-the-fly subset-construction engine
// spec.md §4.4 describes: a cache of NFA-state-set-keyed DFA states, built
// one color-indexed transition at a time as the input is scanned, with
// Ahead/Behind/Lacon constraints resolved by closure at the moment a
// transition is taken rather than during compilation (see DESIGN.md's note
// on optimize.go's pullback/pushforward simplification). The cache/state
// shape is grounded on the teacher's dfa/lazy package, adapted from a
// byte-indexed transition table to uregex's color-indexed one.
package dfa

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/coregx/uregex/colormap"
	"github.com/coregx/uregex/internal/conv"
	"github.com/coregx/uregex/internal/sparse"
	"github.com/coregx/uregex/nfa"
)

// StateID uniquely identifies a DFA state in the cache.
type StateID uint32

const (
	// InvalidState marks an uninitialized StateID.
	InvalidState StateID = 0xFFFFFFFF
	// DeadState is the unique state with no live transitions: once entered
	// the DFA can never match, so the caller can stop scanning.
	DeadState StateID = 0xFFFFFFFE
	// StartState is always the first state built for a given scan.
	StartState StateID = 0
)

// State is one DFA state: a color-indexed transition table over a set of
// CNFA states, plus whether that set includes Post (a match position).
type State struct {
	id          StateID
	transitions map[colormap.Color]StateID
	isMatch     bool
	nfaStates   []nfa.StateID
}

// NewState creates a DFA state for the given (already-closed) CNFA state
// set.
func NewState(id StateID, nfaStates []nfa.StateID, isMatch bool) *State {
	statesCopy := make([]nfa.StateID, len(nfaStates))
	copy(statesCopy, nfaStates)
	return &State{
		id:          id,
		transitions: make(map[colormap.Color]StateID, 8),
		isMatch:     isMatch,
		nfaStates:   statesCopy,
	}
}

// ID returns the state's cache-assigned identifier.
func (s *State) ID() StateID { return s.id }

// IsMatch reports whether this state's CNFA state set includes Post.
func (s *State) IsMatch() bool { return s.isMatch }

// Transition returns the cached next state for color co, if already
// computed.
func (s *State) Transition(co colormap.Color) (StateID, bool) {
	next, ok := s.transitions[co]
	return next, ok
}

// AddTransition memoizes the next state for color co.
func (s *State) AddTransition(co colormap.Color, next StateID) {
	s.transitions[co] = next
}

// NFAStates returns the CNFA state set this DFA state represents.
func (s *State) NFAStates() []nfa.StateID { return s.nfaStates }

func (s *State) String() string {
	return fmt.Sprintf("dfa.State(id=%d, isMatch=%v, nfaStates=%v)", s.id, s.isMatch, s.nfaStates)
}

// StateKey is a hash-based identity for a CNFA state set, used as the
// cache's map key (two sets with the same members, any order, hash equal).
type StateKey uint64

// ComputeStateKey hashes a CNFA state set, sorting first for a canonical
// order.
func ComputeStateKey(states []nfa.StateID) StateKey {
	if len(states) == 0 {
		return StateKey(0)
	}
	sorted := make([]nfa.StateID, len(states))
	copy(sorted, states)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	h := fnv.New64a()
	for _, sid := range sorted {
		_, _ = h.Write([]byte{byte(sid), byte(sid >> 8), byte(sid >> 16), byte(sid >> 24)})
	}
	return StateKey(h.Sum64())
}

// StateSet is a dedupe/membership helper used while computing a closure,
// backed by a sparse set sized to the owning CNFA's state count so a
// closure sweep over a handful of states never touches a structure bigger
// than it needs to.
type StateSet struct {
	states *sparse.SparseSet
}

// NewStateSet creates an empty state set over CNFA state ids in
// [0, capacity).
func NewStateSet(capacity int) *StateSet {
	return &StateSet{states: sparse.NewSparseSet(conv.IntToUint32(capacity))}
}

// Add inserts s into the set.
func (ss *StateSet) Add(s nfa.StateID) { ss.states.Insert(uint32(s)) }

// Contains reports whether s is in the set.
func (ss *StateSet) Contains(s nfa.StateID) bool { return ss.states.Contains(uint32(s)) }

// Len reports the set's size.
func (ss *StateSet) Len() int { return ss.states.Size() }

// ToSlice returns the set's members in sorted order.
func (ss *StateSet) ToSlice() []nfa.StateID {
	raw := ss.states.Values()
	if len(raw) == 0 {
		return nil
	}
	out := make([]nfa.StateID, len(raw))
	for i, v := range raw {
		out[i] = nfa.StateID(v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
