package model

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// CoinScale is the number of fixed-point units in one coin.
const CoinScale = 1_000_000

// coinExp is the decimal exponent matching CoinScale.
const coinExp = -6

// Errors
var (
	ErrInvalidTradeID  = errors.New("invalid trade id")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrAmountOverflow  = errors.New("amount overflows fixed point range")
	ErrMalformedAmount = errors.New("malformed amount")
	ErrAmountPrecision = errors.New("amount has more than 6 decimal places")
)

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

// TradeID is the opaque 256-bit identifier the engine assigns to a trade.
type TradeID [32]byte

// ParseTradeID decodes a 64 character hex string.
func ParseTradeID(s string) (TradeID, error) {
	var id TradeID
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("%w: length %d", ErrInvalidTradeID, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return TradeID{}, fmt.Errorf("%w: %v", ErrInvalidTradeID, err)
	}
	return id, nil
}

// String returns the hex encoding.
func (id TradeID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 hex characters, for logging.
func (id TradeID) Short() string {
	return hex.EncodeToString(id[:4])
}

// IsZero reports whether the id is unset.
func (id TradeID) IsZero() bool {
	return id == TradeID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id TradeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TradeID) UnmarshalText(text []byte) error {
	parsed, err := ParseTradeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// -----------------------------------------------------------------------------
// Amounts
// -----------------------------------------------------------------------------

// Amount is a fixed-point quantity in units of CoinScale.
type Amount uint64

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// AmountFromDecimal converts a coin quantity to fixed point, truncating
// anything below one unit.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	units := d.Shift(-coinExp).Truncate(0)
	if units.GreaterThan(maxAmount) {
		return 0, ErrAmountOverflow
	}
	return Amount(units.BigInt().Uint64()), nil
}

// ExactAmount converts a coin quantity to fixed point, rejecting digits
// below one unit instead of truncating them.
func ExactAmount(d decimal.Decimal) (Amount, error) {
	if !d.Shift(-coinExp).IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrAmountPrecision, d)
	}
	return AmountFromDecimal(d)
}

// ParseAmount parses a decimal coin quantity such as "1.5".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return AmountFromDecimal(d)
}

// Decimal returns the amount in coins.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), coinExp)
}

// String formats the amount in coins without trailing zeros.
func (a Amount) String() string {
	return a.Decimal().String()
}

// -----------------------------------------------------------------------------
// Trade descriptor
// -----------------------------------------------------------------------------

// TradeDescriptor is one observed trade as shown to the local peer.
type TradeDescriptor struct {
	ID  TradeID `json:"id"`
	Hub string  `json:"hub"` // Relay that published this copy of the offer

	// Local-party addresses. Empty for a remote offer not yet accepted here.
	From string `json:"from"`
	To   string `json:"to"`

	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromAmount   Amount `json:"from_amount"`
	ToAmount     Amount `json:"to_amount"`

	State  State  `json:"state"`
	Reason Reason `json:"reason"` // Set only with a cancelled/failed state

	CreatedAt    time.Time `json:"created_at"`     // First observed (UTC)
	LastUpdateAt time.Time `json:"last_update_at"` // Last state-affecting event (UTC)
}

// IsLocallyOwned reports whether this peer initiated or accepted the trade.
func (d TradeDescriptor) IsLocallyOwned() bool {
	return d.From != ""
}

// InvalidDescriptor is returned by lookups that miss.
func InvalidDescriptor() TradeDescriptor {
	return TradeDescriptor{State: StateInvalid}
}
