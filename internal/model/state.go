package model

import (
	"fmt"
	"strings"
)

// State is a trade lifecycle state. Values are wire codes; ordering between
// states is defined only by Rank.
type State uint32

const (
	StateInvalid        State = 0
	StateNew            State = 1
	StatePending        State = 2
	StateAccepting      State = 3
	StateHold           State = 4
	StateInitialized    State = 5
	StateCreated        State = 6
	StateSigned         State = 7
	StateCommited       State = 8
	StateFinished       State = 9
	StateCancelled      State = 10
	StateRollback       State = 11
	StateRollbackFailed State = 12
	StateDropped        State = 13
	StateExpired        State = 14
	StateOffline        State = 15
)

// stateRank orders states for the monotonic-advance merge rule. A state that
// is further along has a higher rank. Keep this table, not the constant
// values, authoritative when adding states.
var stateRank = map[State]int{
	StateInvalid:        0,
	StateNew:            10,
	StatePending:        20,
	StateAccepting:      30,
	StateHold:           40,
	StateInitialized:    50,
	StateCreated:        60,
	StateSigned:         70,
	StateCommited:       80,
	StateFinished:       90,
	StateCancelled:      100,
	StateRollback:       110,
	StateRollbackFailed: 120,
	StateDropped:        130,
	StateExpired:        140,
	StateOffline:        150,
}

var stateNames = map[State]string{
	StateInvalid:        "invalid",
	StateNew:            "new",
	StatePending:        "pending",
	StateAccepting:      "accepting",
	StateHold:           "hold",
	StateInitialized:    "initialized",
	StateCreated:        "created",
	StateSigned:         "signed",
	StateCommited:       "commited",
	StateFinished:       "finished",
	StateCancelled:      "cancelled",
	StateRollback:       "rollback",
	StateRollbackFailed: "rollback_failed",
	StateDropped:        "dropped",
	StateExpired:        "expired",
	StateOffline:        "offline",
}

// Rank returns the merge rank of s, or -1 for a state this build does not know.
func (s State) Rank() int {
	r, ok := stateRank[s]
	if !ok {
		return -1
	}
	return r
}

// Before reports whether s ranks strictly below other.
func (s State) Before(other State) bool {
	return s.Rank() < other.Rank()
}

// IsHistoric reports whether s is terminal: finished, cancelled, rolled back,
// rollback failed or dropped. Engines may classify differently; this is the
// default classification.
func (s State) IsHistoric() bool {
	switch s {
	case StateFinished, StateCancelled, StateRollback, StateRollbackFailed, StateDropped:
		return true
	}
	return false
}

// String returns the wire name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// ParseState parses a wire name.
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return StateInvalid, fmt.Errorf("unknown trade state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Reason is the cause code attached to a cancelled or failed trade.
type Reason uint32

const (
	ReasonNone           Reason = 0
	ReasonUnknown        Reason = 1
	ReasonBadSettings    Reason = 2
	ReasonUserRequest    Reason = 3
	ReasonNoMoney        Reason = 4
	ReasonBadUTXO        Reason = 5
	ReasonDust           Reason = 6
	ReasonRPCError       Reason = 7
	ReasonNotSigned      Reason = 8
	ReasonNotAccepted    Reason = 9
	ReasonRollback       Reason = 10
	ReasonRPCRequest     Reason = 11
	ReasonRejected       Reason = 12
	ReasonInvalidAddress Reason = 13
	ReasonTimeout        Reason = 14
)

var reasonNames = map[Reason]string{
	ReasonNone:           "",
	ReasonUnknown:        "unknown",
	ReasonBadSettings:    "bad_settings",
	ReasonUserRequest:    "user_request",
	ReasonNoMoney:        "no_money",
	ReasonBadUTXO:        "bad_utxo",
	ReasonDust:           "dust",
	ReasonRPCError:       "rpc_error",
	ReasonNotSigned:      "not_signed",
	ReasonNotAccepted:    "not_accepted",
	ReasonRollback:       "rollback",
	ReasonRPCRequest:     "rpc_request",
	ReasonRejected:       "rejected",
	ReasonInvalidAddress: "invalid_address",
	ReasonTimeout:        "timeout",
}

// String returns the wire name; empty for ReasonNone.
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", uint32(r))
}

// ParseReason parses a wire name. Unknown names map to ReasonUnknown.
func ParseReason(name string) Reason {
	name = strings.ToLower(strings.TrimSpace(name))
	for r, n := range reasonNames {
		if n == name {
			return r
		}
	}
	return ReasonUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	*r = ParseReason(string(text))
	return nil
}
