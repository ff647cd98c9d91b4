// Package view renders registry rows as the five-column trade table shown
// to the user: TOTAL, SIZE, BID, DATE and STATE.
package view
