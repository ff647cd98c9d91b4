// Package model defines the trade descriptor and its lifecycle states shared
// across the swap tracker.
//
// Conventions:
//   - Amounts: unsigned fixed point, integer units of CoinScale (1 coin = 1,000,000 units)
//   - Timestamps: time.Time in UTC
//   - IDs: 256-bit TradeID, hex text encoding
package model
