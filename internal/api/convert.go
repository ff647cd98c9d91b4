package api

import (
	"fmt"

	"github.com/rickgao/swap-tracker/internal/model"
)

// ToDescriptor converts a wire trade. Unknown reasons map to
// model.ReasonUnknown; an unknown state or malformed id/amount is an error.
func ToDescriptor(t Trade) (model.TradeDescriptor, error) {
	id, err := model.ParseTradeID(t.ID)
	if err != nil {
		return model.TradeDescriptor{}, err
	}

	state, err := model.ParseState(t.State)
	if err != nil {
		return model.TradeDescriptor{}, fmt.Errorf("trade %s: %w", id.Short(), err)
	}

	fromAmount, err := parseOptionalAmount(t.FromAmount)
	if err != nil {
		return model.TradeDescriptor{}, fmt.Errorf("trade %s from_amount: %w", id.Short(), err)
	}
	toAmount, err := parseOptionalAmount(t.ToAmount)
	if err != nil {
		return model.TradeDescriptor{}, fmt.Errorf("trade %s to_amount: %w", id.Short(), err)
	}

	reason := model.ReasonNone
	if t.Reason != "" {
		reason = model.ParseReason(t.Reason)
	}

	return model.TradeDescriptor{
		ID:           id,
		Hub:          t.Hub,
		From:         t.From,
		To:           t.To,
		FromCurrency: t.FromCurrency,
		ToCurrency:   t.ToCurrency,
		FromAmount:   fromAmount,
		ToAmount:     toAmount,
		State:        state,
		Reason:       reason,
		CreatedAt:    t.CreatedAt.UTC(),
		LastUpdateAt: t.UpdatedAt.UTC(),
	}, nil
}

// parseOptionalAmount treats an empty string as zero.
func parseOptionalAmount(s string) (model.Amount, error) {
	if s == "" {
		return 0, nil
	}
	return model.ParseAmount(s)
}
