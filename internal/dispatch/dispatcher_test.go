package dispatch

import (
	"testing"
	"time"

	"github.com/rickgao/swap-tracker/internal/history"
	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/registry"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func tradeID(b byte) model.TradeID {
	var id model.TradeID
	id[0] = b
	return id
}

func offer(id model.TradeID, hub string, state model.State) model.TradeDescriptor {
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

func newTestDispatcher() *Dispatcher {
	d := New(4, nil)
	d.now = func() time.Time { return baseTime.Add(time.Minute) }
	return d
}

func applyAll(d *Dispatcher, reg *registry.Registry, hist *history.Store) {
	for _, msg := range d.Drain() {
		Apply(reg, hist, msg)
	}
}

func TestDispatcher_ArrivalOrder(t *testing.T) {
	d := newTestDispatcher()
	reg := registry.New()
	hist := history.NewStore()
	id := tradeID(1)

	d.OnTradeReceived(offer(id, "hub-a", model.StatePending))
	d.OnTradeStateChanged(id, model.StateCreated)
	d.OnTradeStateChanged(id, model.StateSigned)
	d.OnTradeCancelled(id, model.StateCancelled, model.ReasonTimeout)

	msgs := d.Drain()
	want := []Kind{KindTradeReceived, KindTradeStateChanged, KindTradeStateChanged, KindTradeCancelled}
	if len(msgs) != len(want) {
		t.Fatalf("Drain() returned %d messages, want %d", len(msgs), len(want))
	}
	for i, msg := range msgs {
		if msg.Kind != want[i] {
			t.Errorf("message %d kind = %v, want %v", i, msg.Kind, want[i])
		}
		Apply(reg, hist, msg)
	}

	got := reg.Get(0)
	if got.State != model.StateCancelled {
		t.Errorf("State = %v, want cancelled", got.State)
	}
	if got.Reason != model.ReasonTimeout {
		t.Errorf("Reason = %v, want timeout", got.Reason)
	}
}

func TestDispatcher_StateChangesNotCoalesced(t *testing.T) {
	d := newTestDispatcher()
	reg := registry.New()
	id := tradeID(2)

	var states []model.State
	reg.AddObserver(&stateRecorder{reg: reg, states: &states})

	d.OnTradeReceived(offer(id, "hub-a", model.StatePending))
	d.OnTradeStateChanged(id, model.StateCreated)
	d.OnTradeStateChanged(id, model.StateSigned)
	applyAll(d, reg, nil)

	want := []model.State{model.StatePending, model.StateCreated, model.StateSigned}
	if len(states) != len(want) {
		t.Fatalf("observed %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("observed[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestApply_FillsZeroTimestamps(t *testing.T) {
	d := newTestDispatcher()
	reg := registry.New()

	tx := offer(tradeID(3), "hub-a", model.StateNew)
	tx.CreatedAt = time.Time{}
	tx.LastUpdateAt = time.Time{}
	d.OnTradeReceived(tx)
	applyAll(d, reg, nil)

	got := reg.Get(0)
	want := baseTime.Add(time.Minute)
	if !got.CreatedAt.Equal(want) || !got.LastUpdateAt.Equal(want) {
		t.Errorf("timestamps = %v / %v, want %v", got.CreatedAt, got.LastUpdateAt, want)
	}
}

func TestApply_MarksOffersPending(t *testing.T) {
	reg := registry.New()
	hist := history.NewStore()

	open := offer(tradeID(4), "hub-a", model.StatePending)
	owned := offer(tradeID(5), "", model.StateNew)
	owned.From = "local-from"
	done := offer(tradeID(6), "hub-a", model.StateFinished)

	for _, tx := range []model.TradeDescriptor{open, owned, done} {
		if n := Apply(reg, hist, Message{Kind: KindTradeReceived, Trade: tx, ReceivedAt: baseTime}); n != 1 {
			t.Errorf("Apply(%s) = %d, want 1", tx.ID.Short(), n)
		}
	}

	tests := []struct {
		id   model.TradeID
		want bool
	}{
		{open.ID, true},
		{owned.ID, false},
		{done.ID, false},
	}
	for _, tt := range tests {
		if got := hist.IsPending(tt.id); got != tt.want {
			t.Errorf("IsPending(%s) = %v, want %v", tt.id.Short(), got, tt.want)
		}
	}
}

func TestApply_UnknownIDIsNoop(t *testing.T) {
	reg := registry.New()
	reg.Upsert(offer(tradeID(7), "hub-a", model.StatePending))

	if n := Apply(reg, nil, Message{Kind: KindTradeStateChanged, ID: tradeID(8), State: model.StateSigned}); n != 0 {
		t.Errorf("Apply() = %d, want 0", n)
	}
	if n := Apply(reg, nil, Message{Kind: KindTradeCancelled, ID: tradeID(8), State: model.StateCancelled}); n != 0 {
		t.Errorf("Apply() = %d, want 0", n)
	}
	if got := reg.Get(0).State; got != model.StatePending {
		t.Errorf("State = %v, want pending", got)
	}
}

func TestDispatcher_PostRunsOnDrain(t *testing.T) {
	d := newTestDispatcher()
	reg := registry.New()

	ran := false
	if !d.Post(func() { ran = true }) {
		t.Fatal("Post() returned false")
	}
	if ran {
		t.Fatal("posted call ran before drain")
	}
	applyAll(d, reg, nil)
	if !ran {
		t.Error("posted call did not run")
	}
}

func TestDispatcher_CloseDrops(t *testing.T) {
	d := newTestDispatcher()
	d.OnTradeStateChanged(tradeID(9), model.StateSigned)
	d.Close()
	d.OnTradeStateChanged(tradeID(9), model.StateCommited)

	if d.Post(func() {}) {
		t.Error("Post() after Close returned true")
	}

	msgs := d.Drain()
	if len(msgs) != 1 || msgs[0].State != model.StateSigned {
		t.Errorf("Drain() = %+v, want the message sent before Close", msgs)
	}
	if _, dropped := d.Stats(); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
}

func TestDispatcher_ReadyWakesOwner(t *testing.T) {
	d := newTestDispatcher()

	go d.OnTradeStateChanged(tradeID(10), model.StateSigned)

	select {
	case <-d.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready() not signalled")
	}
	if msgs := d.Drain(); len(msgs) != 1 {
		t.Errorf("Drain() returned %d messages, want 1", len(msgs))
	}
}

type stateRecorder struct {
	reg    *registry.Registry
	states *[]model.State
}

func (s *stateRecorder) RowsInserted(first, last int) { s.record(first) }
func (s *stateRecorder) RowsChanged(first, last int)  { s.record(first) }
func (s *stateRecorder) RowsRemoved(first, last int)  {}

func (s *stateRecorder) record(row int) {
	*s.states = append(*s.states, s.reg.Get(row).State)
}
