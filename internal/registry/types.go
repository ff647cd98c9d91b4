package registry

import (
	"errors"

	"github.com/rickgao/swap-tracker/internal/model"
)

// Errors
var (
	// ErrNotFound is returned when no row matches the requested id and hub.
	ErrNotFound = errors.New("trade not found")

	// ErrUnknown marks a broken invariant, such as an accepted row vanishing
	// before its acceptance completed.
	ErrUnknown = errors.New("registry invariant violated")
)

// NoticeKind identifies what an operation did to a row.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeInserted
	NoticeChanged
	NoticeRemoved
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeInserted:
		return "inserted"
	case NoticeChanged:
		return "changed"
	case NoticeRemoved:
		return "removed"
	default:
		return "none"
	}
}

// Notice describes the effect of a single-row operation.
type Notice struct {
	Kind NoticeKind
	Row  int // Row index after the operation (-1 when Kind is NoticeNone and no row matched)
}

// Observer receives structural and row change notifications. Calls happen
// on the owner goroutine, after the registry has been updated. Ranges are
// inclusive.
type Observer interface {
	RowsInserted(first, last int)
	RowsChanged(first, last int)
	RowsRemoved(first, last int)
}

// AcceptFunc asks the engine to accept a trade on behalf of the local party.
type AcceptFunc func(id model.TradeID, from, to string) error
