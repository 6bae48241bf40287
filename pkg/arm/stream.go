package arm

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armkit/go-armteleop/internal/log"
)

const (
	streamHandshakeTimeout = 5 * time.Second
	streamReadTimeout      = 3 * time.Second
	streamReconnectDelay   = 2 * time.Second
)

// StateStream subscribes to the daemon's websocket state push and keeps
// the most recent snapshot. The control loop reads snapshots without
// touching the network; a dead stream just means ReadState falls back
// to HTTP polling.
type StateStream struct {
	url string

	mu     sync.RWMutex
	latest State
	at     time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewStateStream creates a stream client for the daemon at host:port
// and starts its read loop. The loop reconnects on failure until Close.
func NewStateStream(host string, port int) *StateStream {
	s := &StateStream{
		url:  fmt.Sprintf("ws://%s:%d/api/v1/state/ws", host, port),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Latest returns the most recent snapshot and whether one is fresh
// enough to use (younger than a second).
func (s *StateStream) Latest() (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.at.IsZero() || time.Since(s.at) > time.Second {
		return State{}, false
	}
	return s.latest, true
}

// Close stops the read loop. It is safe to call more than once.
func (s *StateStream) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *StateStream) run() {
	defer close(s.done)
	logger := log.Component("state-stream")

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		conn, err := s.dial()
		if err != nil {
			logger.Debug("connect failed, will retry", "url", s.url, "err", err)
			select {
			case <-s.stop:
				return
			case <-time.After(streamReconnectDelay):
			}
			continue
		}

		logger.Info("state stream connected", "url", s.url)
		s.readLoop(conn, logger)
		conn.Close()
	}
}

func (s *StateStream) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: streamHandshakeTimeout,
	}
	conn, _, err := dialer.Dial(s.url, nil)
	return conn, err
}

func (s *StateStream) readLoop(conn *websocket.Conn, logger *slog.Logger) {
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		var msg stateMessage
		if err := conn.ReadJSON(&msg); err != nil {
			logger.Debug("state stream read failed", "err", err)
			return
		}

		s.mu.Lock()
		s.latest = msg.State()
		s.at = time.Now()
		s.mu.Unlock()
	}
}
