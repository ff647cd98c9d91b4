package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one receive-only connection to the engine notification stream.
// Frames are delivered in arrival order on Frames, which is closed when the
// connection ends; Err then reports why.
type Conn struct {
	ws     *websocket.Conn
	cfg    DialConfig
	logger *slog.Logger

	frames chan Frame
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial opens the stream, sending the signed handshake headers when
// cfg.Sign is set.
func Dial(ctx context.Context, cfg DialConfig, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if cfg.Sign != nil {
		signed, err := cfg.Sign()
		if err != nil {
			return nil, fmt.Errorf("sign handshake: %w", err)
		}
		for k, v := range signed {
			header.Set(k, v)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	c := &Conn{
		ws:     ws,
		cfg:    cfg,
		logger: logger,
		frames: make(chan Frame, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	// Any traffic from the engine, pings included, proves the link is alive.
	c.touch()
	ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})
	ws.SetPingHandler(func(data string) error {
		c.touch()
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(cfg.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go c.readLoop()
	go c.keepalive()

	logger.Debug("stream dialled", "url", cfg.URL)
	return c, nil
}

// Frames returns the received frames.
func (c *Conn) Frames() <-chan Frame {
	return c.frames
}

// Err returns the reason the connection ended. It is only meaningful once
// Frames has been closed.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setErr(ErrClosed)
		close(c.done)
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.frames)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				err = ErrStaleConnection
			}
			c.setErr(err)
			return
		}
		c.touch()

		select {
		case c.frames <- Frame{Data: data, ReceivedAt: time.Now()}:
		case <-c.done:
			return
		}
	}
}

// keepalive pings the engine so an idle stream still produces pongs.
func (c *Conn) keepalive() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("stream ping failed", "error", err)
				return
			}
		}
	}
}

// touch pushes the read deadline out by PingTimeout.
func (c *Conn) touch() {
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PingTimeout))
}

// setErr keeps the first error.
func (c *Conn) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}
