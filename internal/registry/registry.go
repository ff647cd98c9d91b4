package registry

import (
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// Registry is the ordered collection of active trades.
type Registry struct {
	rows      []model.TradeDescriptor
	observers []Observer
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// AddObserver registers o for change notifications.
func (r *Registry) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// RemoveObserver unregisters o.
func (r *Registry) RemoveObserver(o Observer) {
	for i, existing := range r.observers {
		if existing == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of rows.
func (r *Registry) Len() int {
	return len(r.rows)
}

// Get returns a copy of the row at index, or an Invalid-state descriptor when
// index is out of range.
func (r *Registry) Get(index int) model.TradeDescriptor {
	if index < 0 || index >= len(r.rows) {
		return model.InvalidDescriptor()
	}
	return r.rows[index]
}

// IsLocallyOwned reports whether the row at index has a local From address.
// Out of range indexes are not locally owned.
func (r *Registry) IsLocallyOwned(index int) bool {
	if index < 0 || index >= len(r.rows) {
		return false
	}
	return r.rows[index].IsLocallyOwned()
}

// Find returns the index of the first row with the given id.
func (r *Registry) Find(id model.TradeID) (int, bool) {
	for i := range r.rows {
		if r.rows[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Rows returns a copy of all rows in display order.
func (r *Registry) Rows() []model.TradeDescriptor {
	out := make([]model.TradeDescriptor, len(r.rows))
	copy(out, r.rows)
	return out
}

// Upsert merges an incoming descriptor.
//
// Rows are keyed by id. A locally owned row is never touched. Otherwise the
// first row with the id takes the incoming descriptor, keeping its CreatedAt
// and the higher-ranked of the two states, with LastUpdateAt refreshed from
// the incoming descriptor. Unknown ids are inserted at the front.
func (r *Registry) Upsert(tx model.TradeDescriptor) Notice {
	match, _ := r.Find(tx.ID)
	if match >= 0 && r.rows[match].IsLocallyOwned() {
		return Notice{Kind: NoticeNone, Row: match}
	}

	if match >= 0 {
		existing := &r.rows[match]
		state := existing.State
		createdAt := existing.CreatedAt

		*existing = tx
		if !createdAt.IsZero() {
			existing.CreatedAt = createdAt
		}
		if tx.State.Before(state) {
			existing.State = state
		}

		r.notifyChanged(match)
		return Notice{Kind: NoticeChanged, Row: match}
	}

	r.rows = append(r.rows, model.TradeDescriptor{})
	copy(r.rows[1:], r.rows)
	r.rows[0] = tx

	for _, o := range r.observers {
		o.RowsInserted(0, 0)
	}
	return Notice{Kind: NoticeInserted, Row: 0}
}

// SetState overwrites the state of every row with the given id, regardless
// of rank. It returns the number of rows updated.
func (r *Registry) SetState(id model.TradeID, state model.State) int {
	n := 0
	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		r.rows[i].State = state
		r.notifyChanged(i)
		n++
	}
	return n
}

// SetCancelled is SetState that also records the cancellation reason.
func (r *Registry) SetCancelled(id model.TradeID, state model.State, reason model.Reason) int {
	n := 0
	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		r.rows[i].State = state
		r.rows[i].Reason = reason
		r.notifyChanged(i)
		n++
	}
	return n
}

// SetStateAt overwrites the state of the row at index. Out of range
// indexes are ignored.
func (r *Registry) SetStateAt(index int, state model.State) {
	if index < 0 || index >= len(r.rows) {
		return
	}
	r.rows[index].State = state
	r.notifyChanged(index)
}

// RemoveAt deletes the row at index and returns it.
func (r *Registry) RemoveAt(index int) (model.TradeDescriptor, bool) {
	if index < 0 || index >= len(r.rows) {
		return model.InvalidDescriptor(), false
	}

	removed := r.rows[index]
	r.rows = append(r.rows[:index], r.rows[index+1:]...)

	for _, o := range r.observers {
		o.RowsRemoved(index, index)
	}
	return removed, true
}

// AcceptPendingOffer turns the remote offer published by hub into a trade
// accepted by the local party, calling accept in between. If accept fails
// its error is returned and the row stays in the Accepting state with its
// legs already swapped.
func (r *Registry) AcceptPendingOffer(id model.TradeID, hub, from, to string, accept AcceptFunc, now time.Time) error {
	if _, err := r.BeginAccept(id, hub, from, to); err != nil {
		return err
	}

	if accept != nil {
		if err := accept(id, from, to); err != nil {
			return err
		}
	}

	return r.CompleteAccept(id, hub, now)
}

// BeginAccept claims the offer: it sets the local addresses, moves the row
// to Accepting and swaps the two legs, since the accepting party sends what
// the offer asked for. It returns the row index.
func (r *Registry) BeginAccept(id model.TradeID, hub, from, to string) (int, error) {
	i := r.findHub(id, hub)
	if i < 0 {
		return -1, ErrNotFound
	}

	d := &r.rows[i]
	d.From = from
	d.To = to
	d.State = model.StateAccepting
	d.FromCurrency, d.ToCurrency = d.ToCurrency, d.FromCurrency
	d.FromAmount, d.ToAmount = d.ToAmount, d.FromAmount

	r.notifyChanged(i)
	return i, nil
}

// CompleteAccept finishes an acceptance the engine confirmed: it refreshes
// LastUpdateAt and drops the copies of the offer republished by other hubs.
func (r *Registry) CompleteAccept(id model.TradeID, hub string, now time.Time) error {
	i := r.findHub(id, hub)
	if i < 0 {
		return ErrUnknown
	}

	r.rows[i].LastUpdateAt = now
	r.notifyChanged(i)

	for j := 0; j < len(r.rows); {
		if r.rows[j].ID == id && r.rows[j].Hub != hub {
			r.RemoveAt(j)
			continue
		}
		j++
	}
	return nil
}

// findHub returns the index of the row matching both id and hub, or -1.
func (r *Registry) findHub(id model.TradeID, hub string) int {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].Hub == hub {
			return i
		}
	}
	return -1
}

func (r *Registry) notifyChanged(i int) {
	for _, o := range r.observers {
		o.RowsChanged(i, i)
	}
}
