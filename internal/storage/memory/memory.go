// Package memory provides in-process implementations of the command Store and
// Publisher used by tests and the replay tool.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

type entry struct {
	combatant combat.Combatant
	version   int64
}

// Store keeps combatant snapshots and traces in memory.
type Store struct {
	mu         sync.RWMutex
	combatants map[string]*entry
	traces     []command.Trace
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{combatants: make(map[string]*entry)}
}

// Put inserts or replaces c at version 1.
func (s *Store) Put(c combat.Combatant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combatants[c.ID] = &entry{combatant: c.Clone(), version: 1}
}

// Load implements command.Store.
func (s *Store) Load(_ context.Context, id string) (combat.Combatant, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.combatants[id]
	if !ok {
		return combat.Combatant{}, 0, fmt.Errorf("%w: %s", command.ErrCombatantNotFound, id)
	}
	return e.combatant.Clone(), e.version, nil
}

// Save implements command.Store.
func (s *Store) Save(_ context.Context, c combat.Combatant, expected int64, trace command.Trace) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.combatants[c.ID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", command.ErrCombatantNotFound, c.ID)
	}
	if e.version != expected {
		return 0, fmt.Errorf("%w: %s at %d, expected %d", command.ErrVersionConflict, c.ID, e.version, expected)
	}
	e.combatant = c.Clone()
	e.version++
	s.traces = append(s.traces, trace)
	return e.version, nil
}

// RemoveConcentrationEffects implements command.Store by removing the effect
// ID from the conditions of every stored combatant.
func (s *Store) RemoveConcentrationEffects(_ context.Context, cons combat.Consequence) error {
	if cons.EffectID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.combatants {
		if !slices.Contains(e.combatant.Conditions, cons.EffectID) {
			continue
		}
		e.combatant = e.combatant.Clone()
		e.combatant.Conditions = slices.DeleteFunc(e.combatant.Conditions, func(id string) bool {
			return id == cons.EffectID
		})
		e.version++
	}
	return nil
}

// Get returns the current snapshot of id.
func (s *Store) Get(id string) (combat.Combatant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.combatants[id]
	if !ok {
		return combat.Combatant{}, false
	}
	return e.combatant.Clone(), true
}

// Traces returns every stored trace in commit order.
func (s *Store) Traces() []command.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.traces)
}
