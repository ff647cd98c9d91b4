package history

import (
	"testing"
	"time"

	"github.com/rickgao/swap-tracker/internal/model"
)

func tradeID(b byte) model.TradeID {
	var id model.TradeID
	id[0] = b
	return id
}

func TestStore_MigrateRemovesPending(t *testing.T) {
	s := NewStore()
	id := tradeID(1)
	s.MarkPending(id)

	if !s.IsPending(id) {
		t.Fatal("id should be pending")
	}

	first := s.Migrate(model.TradeDescriptor{ID: id, State: model.StateFinished})
	if !first {
		t.Error("first Migrate should report a new entry")
	}
	if s.IsPending(id) {
		t.Error("Migrate should remove id from pending index")
	}
	if !s.Contains(id) {
		t.Error("Migrate should store snapshot")
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := NewStore()
	id := tradeID(2)

	s.Migrate(model.TradeDescriptor{ID: id, State: model.StateCancelled})
	again := s.Migrate(model.TradeDescriptor{ID: id, State: model.StateCancelled, Reason: model.ReasonTimeout})

	if again {
		t.Error("second Migrate should not report a new entry")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if got.Reason != model.ReasonTimeout {
		t.Errorf("Reason = %v, want latest snapshot (last write wins)", got.Reason)
	}
}

func TestStore_SnapshotIsOwnedCopy(t *testing.T) {
	s := NewStore()
	d := model.TradeDescriptor{ID: tradeID(3), State: model.StateFinished, FromCurrency: "BTC"}
	s.Migrate(d)

	d.FromCurrency = "LTC"
	got, _ := s.Get(tradeID(3))
	if got.FromCurrency != "BTC" {
		t.Errorf("FromCurrency = %q, snapshot should not alias caller value", got.FromCurrency)
	}
}

func TestStore_SnapshotsOrder(t *testing.T) {
	s := NewStore()
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	s.Migrate(model.TradeDescriptor{ID: tradeID(1), LastUpdateAt: base})
	s.Migrate(model.TradeDescriptor{ID: tradeID(2), LastUpdateAt: base.Add(time.Minute)})
	s.Migrate(model.TradeDescriptor{ID: tradeID(3), LastUpdateAt: base.Add(-time.Minute)})

	got := s.Snapshots()
	want := []model.TradeID{tradeID(2), tradeID(1), tradeID(3)}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("Snapshots()[%d] = %s, want %s", i, got[i].ID.Short(), want[i].Short())
		}
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Migrate(model.TradeDescriptor{ID: tradeID(1)})
	s.Migrate(model.TradeDescriptor{ID: tradeID(2)})
	s.MarkPending(tradeID(3))

	if n := s.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if s.PendingLen() != 1 {
		t.Errorf("PendingLen() = %d, want 1", s.PendingLen())
	}

	s.DropPending(tradeID(3))
	if s.PendingLen() != 0 {
		t.Errorf("PendingLen() = %d, want 0", s.PendingLen())
	}
}
