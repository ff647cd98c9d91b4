package history

import (
	"sort"

	"github.com/rickgao/swap-tracker/internal/model"
)

// Store maps trade ids to snapshots captured when a trade reached a terminal
// state. Like the registry it is owned by a single goroutine.
type Store struct {
	snapshots map[model.TradeID]model.TradeDescriptor
	pending   map[model.TradeID]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[model.TradeID]model.TradeDescriptor),
		pending:   make(map[model.TradeID]struct{}),
	}
}

// Migrate stores a snapshot of d keyed by its id, replacing any earlier
// snapshot, and removes the id from the pending index. The active registry
// is not touched. It returns true if the id was not stored before.
func (s *Store) Migrate(d model.TradeDescriptor) bool {
	_, existed := s.snapshots[d.ID]
	s.snapshots[d.ID] = d
	delete(s.pending, d.ID)
	return !existed
}

// Get returns the snapshot for id.
func (s *Store) Get(id model.TradeID) (model.TradeDescriptor, bool) {
	d, ok := s.snapshots[id]
	return d, ok
}

// Contains reports whether id has been archived.
func (s *Store) Contains(id model.TradeID) bool {
	_, ok := s.snapshots[id]
	return ok
}

// Len returns the number of archived trades.
func (s *Store) Len() int {
	return len(s.snapshots)
}

// Snapshots returns all archived trades, most recently updated first.
func (s *Store) Snapshots() []model.TradeDescriptor {
	out := make([]model.TradeDescriptor, 0, len(s.snapshots))
	for _, d := range s.snapshots {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdateAt.Equal(out[j].LastUpdateAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].LastUpdateAt.After(out[j].LastUpdateAt)
	})
	return out
}

// Clear drops every archived snapshot. The pending index is kept.
func (s *Store) Clear() int {
	n := len(s.snapshots)
	s.snapshots = make(map[model.TradeID]model.TradeDescriptor)
	return n
}

// MarkPending adds id to the pending index.
func (s *Store) MarkPending(id model.TradeID) {
	s.pending[id] = struct{}{}
}

// IsPending reports whether id is in the pending index.
func (s *Store) IsPending(id model.TradeID) bool {
	_, ok := s.pending[id]
	return ok
}

// DropPending removes id from the pending index.
func (s *Store) DropPending(id model.TradeID) {
	delete(s.pending, id)
}

// PendingLen returns the size of the pending index.
func (s *Store) PendingLen() int {
	return len(s.pending)
}
