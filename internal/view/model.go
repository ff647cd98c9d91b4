package view

import (
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/rickgao/swap-tracker/internal/model"
	"github.com/rickgao/swap-tracker/internal/registry"
)

// Column indexes the table.
type Column int

const (
	ColumnTotal Column = iota
	ColumnSize
	ColumnBid
	ColumnDate
	ColumnState

	columnCount
)

// displayDecimals is the precision amounts and bids are rendered with
// before trailing zeros are trimmed.
const displayDecimals = 12

// DateLayout formats the DATE column.
const DateLayout = "2006-Jan-02 15:04:05"

var headers = [columnCount]string{
	ColumnTotal: "TOTAL",
	ColumnSize:  "SIZE",
	ColumnBid:   "BID",
	ColumnDate:  "DATE",
	ColumnState: "STATE",
}

var stateLabels = map[model.State]string{
	model.StateInvalid:        "Invalid",
	model.StateNew:            "New",
	model.StatePending:        "Open",
	model.StateAccepting:      "Accepting",
	model.StateHold:           "Hold",
	model.StateInitialized:    "Initialized",
	model.StateCreated:        "Created",
	model.StateSigned:         "Signed",
	model.StateCommited:       "Commited",
	model.StateFinished:       "Finished",
	model.StateCancelled:      "Cancelled",
	model.StateRollback:       "Rolled Back",
	model.StateRollbackFailed: "Rollback error",
	model.StateDropped:        "Dropped",
	model.StateExpired:        "Expired",
	model.StateOffline:        "Offline",
}

// StateLabel returns the display label for a state.
func StateLabel(s model.State) string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Model is a read-only table over a registry. Like the registry it must
// only be used on the registry's owner goroutine.
type Model struct {
	reg *registry.Registry
}

// New creates a Model over reg.
func New(reg *registry.Registry) *Model {
	return &Model{reg: reg}
}

// RowCount returns the number of rows.
func (m *Model) RowCount() int {
	return m.reg.Len()
}

// ColumnCount returns the number of columns.
func (m *Model) ColumnCount() int {
	return int(columnCount)
}

// Header returns the column title, or "" for an unknown column.
func (m *Model) Header(col Column) string {
	if col < 0 || col >= columnCount {
		return ""
	}
	return headers[col]
}

// Cell returns the display text of one cell. ok is false out of range.
func (m *Model) Cell(row int, col Column) (text string, ok bool) {
	if row < 0 || row >= m.reg.Len() || col < 0 || col >= columnCount {
		return "", false
	}
	return cell(m.reg.Get(row), col), true
}

// RawState returns the unformatted state behind the STATE column. It is
// only defined for ColumnState.
func (m *Model) RawState(row int, col Column) (model.State, bool) {
	if col != ColumnState || row < 0 || row >= m.reg.Len() {
		return model.StateInvalid, false
	}
	return m.reg.Get(row).State, true
}

// Bid returns FromAmount / ToAmount for a row. ok is false out of range or
// when ToAmount is zero.
func (m *Model) Bid(row int) (decimal.Decimal, bool) {
	if row < 0 || row >= m.reg.Len() {
		return decimal.Zero, false
	}
	return Bid(m.reg.Get(row))
}

// Row is one rendered table row.
type Row struct {
	ID           model.TradeID `json:"id"`
	Hub          string        `json:"hub"`
	Total        string        `json:"total"`
	Size         string        `json:"size"`
	Bid          string        `json:"bid"`
	Date         string        `json:"date"`
	State        string        `json:"state"`
	RawState     model.State   `json:"raw_state"`
	Reason       model.Reason  `json:"reason,omitempty"`
	LocallyOwned bool          `json:"locally_owned"`
}

// Rows renders every row.
func (m *Model) Rows() []Row {
	out := make([]Row, 0, m.reg.Len())
	for i := 0; i < m.reg.Len(); i++ {
		out = append(out, Render(m.reg.Get(i)))
	}
	return out
}

// Render formats one descriptor.
func Render(d model.TradeDescriptor) Row {
	return Row{
		ID:           d.ID,
		Hub:          d.Hub,
		Total:        cell(d, ColumnTotal),
		Size:         cell(d, ColumnSize),
		Bid:          cell(d, ColumnBid),
		Date:         cell(d, ColumnDate),
		State:        cell(d, ColumnState),
		RawState:     d.State,
		Reason:       d.Reason,
		LocallyOwned: d.IsLocallyOwned(),
	}
}

// Bid returns d.FromAmount / d.ToAmount.
func Bid(d model.TradeDescriptor) (decimal.Decimal, bool) {
	if d.ToAmount == 0 {
		return decimal.Zero, false
	}
	return d.FromAmount.Decimal().DivRound(d.ToAmount.Decimal(), displayDecimals), true
}

func cell(d model.TradeDescriptor, col Column) string {
	switch col {
	case ColumnTotal:
		return FormatDecimal(d.FromAmount.Decimal()) + " " + d.FromCurrency
	case ColumnSize:
		return FormatDecimal(d.ToAmount.Decimal()) + " " + d.ToCurrency
	case ColumnBid:
		bid, ok := Bid(d)
		if !ok {
			return ""
		}
		return FormatDecimal(bid)
	case ColumnDate:
		if d.CreatedAt.IsZero() {
			return ""
		}
		return d.CreatedAt.UTC().Format(DateLayout)
	case ColumnState:
		return StateLabel(d.State)
	}
	return ""
}

// FormatDecimal renders d with twelve decimals and trims trailing zeros
// and a trailing point.
func FormatDecimal(d decimal.Decimal) string {
	s := d.StringFixed(displayDecimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// Revision counts registry changes. It implements registry.Observer and
// may be read from any goroutine.
type Revision struct {
	n atomic.Uint64
}

func (r *Revision) RowsInserted(first, last int) { r.n.Add(1) }
func (r *Revision) RowsChanged(first, last int)  { r.n.Add(1) }
func (r *Revision) RowsRemoved(first, last int)  { r.n.Add(1) }

// Value returns the number of changes observed so far.
func (r *Revision) Value() uint64 {
	return r.n.Load()
}
