// Package live streams agent activity to an external websocket endpoint and
// delivers inbound messages to a handler.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/sovereign/logging"
)

// Event types broadcast by the agent.
const (
	EventAction      = "action"
	EventFinalAnswer = "final_answer"
)

// DefaultWriteTimeout bounds a single broadcast.
const DefaultWriteTimeout = 5 * time.Second

// Event is the JSON document written by Broadcast for agent activity.
type Event struct {
	Type      string         `json:"type"`
	Action    string         `json:"action,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Result    string         `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(typ, action string, params map[string]any, result string) Event {
	return Event{Type: typ, Action: action, Params: params, Result: result, Timestamp: time.Now().UTC()}
}

// Handler receives inbound messages: the decoded JSON value, or the raw text
// when the message is not JSON.
type Handler func(msg any)

// Options configure a Session.
type Options struct {
	Handler      Handler
	Header       http.Header
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
	Logger       logging.Logger
}

// Session is a restartable websocket session. An empty URL yields a
// local-only session whose broadcasts are only logged.
type Session struct {
	url  string
	opts Options

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// ErrNotStarted is returned by Broadcast on a remote session before Start.
var ErrNotStarted = errors.New("live session not started")

// NewSession creates a session for url.
func NewSession(url string, optFns ...func(o *Options)) *Session {
	opts := Options{
		Dialer:       websocket.DefaultDialer,
		WriteTimeout: DefaultWriteTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Session{url: url, opts: opts}
}

// URL returns the remote endpoint, empty for a local-only session.
func (s *Session) URL() string { return s.url }

// Start connects and starts delivering inbound messages. Starting a running
// session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	if s.url == "" {
		s.opts.Logger.Info("live.session.start", "mode", "local")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	conn, _, err := s.opts.Dialer.DialContext(ctx, s.url, s.opts.Header)
	if err != nil {
		return fmt.Errorf("connect live session %s: %w", s.url, err)
	}
	s.conn = conn
	s.done = make(chan struct{})
	go s.read(conn, s.done)

	s.opts.Logger.Info("live.session.start", "url", s.url)
	return nil
}

func (s *Session) read(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				s.opts.Logger.Debug("live.session.read.end", "error", err.Error())
			}
			return
		}
		if s.opts.Handler == nil {
			continue
		}
		var msg any
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = string(data)
		}
		s.deliver(msg)
	}
}

func (s *Session) deliver(msg any) {
	defer func() {
		if r := recover(); r != nil {
			s.opts.Logger.Error("live.handler.panic", "panic", fmt.Sprint(r))
		}
	}()
	s.opts.Handler(msg)
}

// Broadcast writes v as JSON. Writes are serialised.
func (s *Session) Broadcast(v any) error {
	if s.url == "" {
		s.opts.Logger.Debug("live.broadcast.local", "event", v)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotStarted
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("live broadcast: %w", err)
	}
	return nil
}

// Stop closes the connection and waits for the reader. It is idempotent.
func (s *Session) Stop() error {
	if s.url == "" {
		s.opts.Logger.Info("live.session.stop", "mode", "local")
		return nil
	}

	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	s.opts.Logger.Info("live.session.stop", "url", s.url)
	return err
}
