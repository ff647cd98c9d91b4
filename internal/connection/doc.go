// Package connection maintains the engine notification stream.
//
// Dial opens a receive-only WebSocket (Conn) with a signed handshake and
// delivers raw frames in arrival order. A silent link is detected with
// keepalive pings and a read deadline.
//
// A Stream redials Conns with exponential backoff, decodes trade_received,
// trade_state_changed and trade_cancelled frames and hands them to a Handler
// on the read goroutine. OnConnect runs after every successful dial and on
// sequence gaps so the caller can resynchronise from REST.
package connection
