package api

import "time"

// StatusResponse from GET /status
type StatusResponse struct {
	Version        string   `json:"version"`
	TTLSeconds     int64    `json:"ttl_seconds"`
	HistoricStates []string `json:"historic_states"`
}

// CurrenciesResponse from GET /currencies
type CurrenciesResponse struct {
	Currencies []Currency `json:"currencies"`
}

// Currency is one wallet the engine can trade.
type Currency struct {
	Ticker    string `json:"ticker"`
	Name      string `json:"name"`
	MinAmount string `json:"min_amount"` // Decimal coins, e.g. "0.001"
}

// TradesResponse from GET /trades
type TradesResponse struct {
	Trades []Trade `json:"trades"`
}

// Trade is the wire form of a trade, shared by REST responses and stream
// notifications.
type Trade struct {
	ID           string    `json:"id"`
	Hub          string    `json:"hub"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	FromAmount   string    `json:"from_amount"` // Decimal coins
	ToAmount     string    `json:"to_amount"`
	State        string    `json:"state"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SubmitTradeRequest for POST /trades
type SubmitTradeRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromAmount   string `json:"from_amount"`
	ToAmount     string `json:"to_amount"`
}

// SubmitTradeResponse from POST /trades
type SubmitTradeResponse struct {
	ID string `json:"id"`
}

// AcceptTradeRequest for POST /trades/{id}/accept
type AcceptTradeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CancelTradeRequest for POST /trades/{id}/cancel
type CancelTradeRequest struct {
	Reason string `json:"reason"`
}
