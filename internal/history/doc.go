// Package history holds the historical store of terminal trades and the
// pending side-index of trades still in negotiation.
package history
