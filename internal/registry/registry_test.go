package registry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

// recorder captures observer notifications as strings.
type recorder struct {
	events []string
}

func (r *recorder) RowsInserted(first, last int) {
	r.events = append(r.events, fmt.Sprintf("insert %d-%d", first, last))
}

func (r *recorder) RowsChanged(first, last int) {
	r.events = append(r.events, fmt.Sprintf("change %d-%d", first, last))
}

func (r *recorder) RowsRemoved(first, last int) {
	r.events = append(r.events, fmt.Sprintf("remove %d-%d", first, last))
}

func tradeID(b byte) model.TradeID {
	var id model.TradeID
	id[0] = b
	return id
}

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func remoteOffer(id model.TradeID, hub string, state model.State) model.TradeDescriptor {
	return model.TradeDescriptor{
		ID:           id,
		Hub:          hub,
		FromCurrency: "BLOCK",
		ToCurrency:   "LTC",
		FromAmount:   1_500_000,
		ToAmount:     2_000_000,
		State:        state,
		CreatedAt:    baseTime,
		LastUpdateAt: baseTime,
	}
}

func TestRegistry_UpsertInsertsAtFront(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.AddObserver(rec)

	n1 := r.Upsert(remoteOffer(tradeID(1), "hub-a", model.StatePending))
	n2 := r.Upsert(remoteOffer(tradeID(2), "hub-a", model.StatePending))

	if n1.Kind != NoticeInserted || n2.Kind != NoticeInserted {
		t.Fatalf("notices = %v, %v, want inserted", n1.Kind, n2.Kind)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if r.Get(0).ID != tradeID(2) {
		t.Errorf("row 0 = %s, want newest trade first", r.Get(0).ID.Short())
	}
	if len(rec.events) != 2 || rec.events[0] != "insert 0-0" || rec.events[1] != "insert 0-0" {
		t.Errorf("events = %v, want two inserts at 0", rec.events)
	}
}

func TestRegistry_UpsertMonotonicState(t *testing.T) {
	tests := []struct {
		name   string
		states []model.State
		want   model.State
	}{
		{name: "advance", states: []model.State{model.StatePending, model.StateHold}, want: model.StateHold},
		{name: "never decrease", states: []model.State{model.StateHold, model.StatePending}, want: model.StateHold},
		{name: "duplicate", states: []model.State{model.StateCreated, model.StateCreated}, want: model.StateCreated},
		{name: "mixed", states: []model.State{model.StateNew, model.StateSigned, model.StatePending, model.StateCommited}, want: model.StateCommited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			id := tradeID(7)

			prevRank := -1
			for i, s := range tt.states {
				tx := remoteOffer(id, "hub-a", s)
				tx.LastUpdateAt = baseTime.Add(time.Duration(i) * time.Second)
				r.Upsert(tx)

				rank := r.Get(0).State.Rank()
				if rank < prevRank {
					t.Fatalf("rank decreased after upsert %d: %d < %d", i, rank, prevRank)
				}
				prevRank = rank
			}

			got := r.Get(0)
			if got.State != tt.want {
				t.Errorf("State = %v, want %v", got.State, tt.want)
			}
			wantUpdate := baseTime.Add(time.Duration(len(tt.states)-1) * time.Second)
			if !got.LastUpdateAt.Equal(wantUpdate) {
				t.Errorf("LastUpdateAt = %v, want %v", got.LastUpdateAt, wantUpdate)
			}
			if r.Len() != 1 {
				t.Errorf("Len() = %d, want 1", r.Len())
			}
		})
	}
}

func TestRegistry_UpsertReplacesRemoteStub(t *testing.T) {
	r := New()
	id := tradeID(3)
	r.Upsert(remoteOffer(id, "hub-a", model.StatePending))

	later := remoteOffer(id, "hub-a", model.StateHold)
	later.ToAmount = 3_000_000
	later.CreatedAt = baseTime.Add(time.Hour)
	later.LastUpdateAt = baseTime.Add(time.Hour)

	n := r.Upsert(later)
	if n.Kind != NoticeChanged || n.Row != 0 {
		t.Fatalf("notice = %+v, want changed row 0", n)
	}

	got := r.Get(0)
	if got.ToAmount != 3_000_000 {
		t.Errorf("ToAmount = %d, want 3000000", got.ToAmount)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want first-observed %v", got.CreatedAt, baseTime)
	}
	if !got.LastUpdateAt.Equal(later.LastUpdateAt) {
		t.Errorf("LastUpdateAt = %v, want %v", got.LastUpdateAt, later.LastUpdateAt)
	}
}

func TestRegistry_UpsertIgnoresLocallyOwned(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.AddObserver(rec)

	id := tradeID(4)
	mine := remoteOffer(id, "hub-a", model.StateNew)
	mine.From = "my-from"
	mine.To = "my-to"
	r.Upsert(mine)
	rec.events = nil

	incoming := []model.TradeDescriptor{
		remoteOffer(id, "hub-a", model.StateFinished),
		remoteOffer(id, "hub-b", model.StatePending),
		{ID: id, Hub: "hub-a", FromCurrency: "BTC", ToCurrency: "DASH", State: model.StateDropped},
	}

	for _, tx := range incoming {
		n := r.Upsert(tx)
		if n.Kind != NoticeNone {
			t.Errorf("notice = %v, want none", n.Kind)
		}
	}

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if got := r.Get(0); got != mine {
		t.Errorf("locally owned row mutated: %+v", got)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
}

func TestRegistry_UpsertMergesRepublishedOffer(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.AddObserver(rec)
	id := tradeID(5)

	r.Upsert(remoteOffer(id, "hub-a", model.StateHold))
	later := remoteOffer(id, "hub-b", model.StatePending)
	later.LastUpdateAt = baseTime.Add(time.Minute)
	n := r.Upsert(later)

	if n.Kind != NoticeChanged || n.Row != 0 {
		t.Errorf("notice = %v/%d, want changed/0", n.Kind, n.Row)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	i, ok := r.Find(id)
	if !ok {
		t.Fatal("Find() missed the merged row")
	}
	got := r.Get(i)
	if got.State != model.StateHold {
		t.Errorf("State = %v, want %v", got.State, model.StateHold)
	}
	if got.Hub != "hub-b" {
		t.Errorf("Hub = %q, want hub-b", got.Hub)
	}
	if !got.LastUpdateAt.Equal(later.LastUpdateAt) {
		t.Errorf("LastUpdateAt = %v, want %v", got.LastUpdateAt, later.LastUpdateAt)
	}
	want := []string{"insert 0-0", "change 0-0"}
	if fmt.Sprint(rec.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

// seed appends rows directly, bypassing the merge.
func seed(r *Registry, rows ...model.TradeDescriptor) {
	r.rows = append(r.rows, rows...)
}

func TestRegistry_SetState(t *testing.T) {
	r := New()
	rec := &recorder{}
	id := tradeID(6)
	seed(r,
		remoteOffer(id, "hub-a", model.StateCommited),
		remoteOffer(id, "hub-b", model.StatePending),
		remoteOffer(tradeID(9), "hub-a", model.StatePending),
	)
	r.AddObserver(rec)

	// Unconditional: moves backwards too.
	n := r.SetState(id, model.StateNew)
	if n != 2 {
		t.Fatalf("SetState matched %d rows, want 2", n)
	}
	for i := 0; i < r.Len(); i++ {
		d := r.Get(i)
		if d.ID == id && d.State != model.StateNew {
			t.Errorf("row %d State = %v, want %v", i, d.State, model.StateNew)
		}
		if d.ID != id && d.State != model.StatePending {
			t.Errorf("unrelated row %d State = %v", i, d.State)
		}
	}
	if len(rec.events) != 2 {
		t.Errorf("events = %v, want 2 changes", rec.events)
	}

	if r.SetState(tradeID(42), model.StateFinished) != 0 {
		t.Error("SetState on unknown id should match nothing")
	}
}

func TestRegistry_SetCancelled(t *testing.T) {
	r := New()
	id := tradeID(8)
	seed(r,
		remoteOffer(id, "hub-a", model.StatePending),
		remoteOffer(id, "hub-b", model.StatePending),
	)

	n := r.SetCancelled(id, model.StateCancelled, model.ReasonUserRequest)
	if n != 2 {
		t.Fatalf("SetCancelled matched %d rows, want 2", n)
	}
	for i := 0; i < r.Len(); i++ {
		d := r.Get(i)
		if d.State != model.StateCancelled || d.Reason != model.ReasonUserRequest {
			t.Errorf("row %d = %v/%v, want cancelled/user_request", i, d.State, d.Reason)
		}
	}
}

func TestRegistry_GetOutOfRange(t *testing.T) {
	r := New()
	r.Upsert(remoteOffer(tradeID(1), "hub-a", model.StatePending))

	for _, idx := range []int{-1, 1, 100} {
		if got := r.Get(idx); got.State != model.StateInvalid {
			t.Errorf("Get(%d).State = %v, want invalid", idx, got.State)
		}
		if r.IsLocallyOwned(idx) {
			t.Errorf("IsLocallyOwned(%d) = true, want false", idx)
		}
	}
}

func TestRegistry_AcceptPendingOffer(t *testing.T) {
	r := New()
	rec := &recorder{}
	id := tradeID(10)
	other := tradeID(11)

	seed(r,
		remoteOffer(id, "hub-a", model.StatePending),
		remoteOffer(other, "hub-a", model.StatePending),
		remoteOffer(id, "hub-b", model.StatePending),
		remoteOffer(id, "hub-c", model.StatePending),
	)
	r.AddObserver(rec)

	var called bool
	accept := func(gotID model.TradeID, from, to string) error {
		called = true
		if gotID != id || from != "ltc-addr" || to != "block-addr" {
			t.Errorf("accept(%s, %s, %s) unexpected", gotID.Short(), from, to)
		}
		return nil
	}

	now := baseTime.Add(time.Minute)
	if err := r.AcceptPendingOffer(id, "hub-b", "ltc-addr", "block-addr", accept, now); err != nil {
		t.Fatalf("AcceptPendingOffer failed: %v", err)
	}
	if !called {
		t.Fatal("engine accept not called")
	}

	var matches []model.TradeDescriptor
	for _, d := range r.Rows() {
		if d.ID == id {
			matches = append(matches, d)
		}
	}
	if len(matches) != 1 {
		t.Fatalf("rows with id = %d, want 1", len(matches))
	}

	got := matches[0]
	if got.Hub != "hub-b" {
		t.Errorf("Hub = %q, want hub-b", got.Hub)
	}
	if got.State != model.StateAccepting {
		t.Errorf("State = %v, want accepting", got.State)
	}
	if got.FromCurrency != "LTC" || got.ToCurrency != "BLOCK" {
		t.Errorf("currencies = %s/%s, want swapped LTC/BLOCK", got.FromCurrency, got.ToCurrency)
	}
	if got.FromAmount != 2_000_000 || got.ToAmount != 1_500_000 {
		t.Errorf("amounts = %d/%d, want swapped 2000000/1500000", got.FromAmount, got.ToAmount)
	}
	if got.From != "ltc-addr" || got.To != "block-addr" {
		t.Errorf("addresses = %s/%s", got.From, got.To)
	}
	if !got.LastUpdateAt.Equal(now) {
		t.Errorf("LastUpdateAt = %v, want %v", got.LastUpdateAt, now)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (accepted + unrelated)", r.Len())
	}

	var removes int
	for _, e := range rec.events {
		if e[:6] == "remove" {
			removes++
		}
	}
	if removes != 2 {
		t.Errorf("remove notices = %d, want 2 (events %v)", removes, rec.events)
	}
}

func TestRegistry_AcceptPendingOffer_NotFound(t *testing.T) {
	r := New()
	r.Upsert(remoteOffer(tradeID(12), "hub-a", model.StatePending))

	called := false
	accept := func(model.TradeID, string, string) error {
		called = true
		return nil
	}

	err := r.AcceptPendingOffer(tradeID(12), "hub-z", "a", "b", accept, baseTime)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("engine accept should not be called")
	}
	if r.Get(0).State != model.StatePending {
		t.Error("row should be untouched")
	}
}

func TestRegistry_AcceptPendingOffer_EngineFailureKeepsSwap(t *testing.T) {
	r := New()
	id := tradeID(13)
	seed(r,
		remoteOffer(id, "hub-a", model.StatePending),
		remoteOffer(id, "hub-b", model.StatePending),
	)

	engineErr := errors.New("engine rejected")
	err := r.AcceptPendingOffer(id, "hub-a", "x", "y", func(model.TradeID, string, string) error {
		return engineErr
	}, baseTime.Add(time.Hour))

	if !errors.Is(err, engineErr) {
		t.Fatalf("err = %v, want engine error", err)
	}

	// Swap is not rolled back; competing hub copy is not removed.
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	i := r.findHub(id, "hub-a")
	got := r.Get(i)
	if got.State != model.StateAccepting || got.FromCurrency != "LTC" {
		t.Errorf("row = %v/%s, want accepting with swapped legs", got.State, got.FromCurrency)
	}
	if !got.LastUpdateAt.Equal(baseTime) {
		t.Errorf("LastUpdateAt = %v, want unchanged %v", got.LastUpdateAt, baseTime)
	}
}

func TestRegistry_CompleteAcceptMissingRow(t *testing.T) {
	r := New()
	if err := r.CompleteAccept(tradeID(1), "hub-a", baseTime); !errors.Is(err, ErrUnknown) {
		t.Errorf("err = %v, want ErrUnknown", err)
	}
}

func TestRegistry_RemoveAt(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.Upsert(remoteOffer(tradeID(1), "hub-a", model.StatePending))
	r.Upsert(remoteOffer(tradeID(2), "hub-a", model.StatePending))
	r.AddObserver(rec)

	removed, ok := r.RemoveAt(1)
	if !ok || removed.ID != tradeID(1) {
		t.Fatalf("RemoveAt(1) = %s, %v", removed.ID.Short(), ok)
	}
	if _, ok := r.RemoveAt(5); ok {
		t.Error("RemoveAt out of range should fail")
	}
	if len(rec.events) != 1 || rec.events[0] != "remove 1-1" {
		t.Errorf("events = %v", rec.events)
	}

	r.RemoveObserver(rec)
	r.RemoveAt(0)
	if len(rec.events) != 1 {
		t.Errorf("removed observer still notified: %v", rec.events)
	}
}
