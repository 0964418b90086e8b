package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// session is the write side of one websocket connection. Events are queued by
// the room and written in order by writePump.
type session struct {
	conn         *websocket.Conn
	logger       *slog.Logger
	writeWait    time.Duration
	pingInterval time.Duration
	queue        chan Output
	stop         chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
	// set before stop is closed
	reason string
}

func (c controller) newSession(conn *websocket.Conn, logger *slog.Logger) *session {
	return &session{
		conn:         conn,
		logger:       logger,
		writeWait:    c.writeWait,
		pingInterval: (c.pongWait * 9) / 10,
		queue:        make(chan Output, c.sendQueueSize),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Send queues event without blocking. A session whose queue is full is closed.
func (s *session) Send(event service.Event) bool {
	select {
	case <-s.stop:
		return false
	default:
	}

	select {
	case s.queue <- Output{Type: event.Type(), Payload: event}:
		return true
	default:
		s.logger.Warn("send queue is full, dropping session", "event", event.Type())
		s.Close("slow consumer")
		return false
	}
}

// Close flushes queued events, sends a close frame with reason and closes
// the connection. Only the first call has an effect.
func (s *session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.reason = reason
		close(s.stop)
	})
}

func (s *session) isClosed() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case out := <-s.queue:
			if err := s.write(out); err != nil {
				s.logger.Info("failed to write message", "error", err)
				s.Close("")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				s.Close("")
				return
			}
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *session) flush() {
	for {
		select {
		case out := <-s.queue:
			if err := s.write(out); err != nil {
				return
			}
		default:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, s.reason)
			if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeWait)); err != nil {
				s.logger.Debug("failed to write close frame", "error", err)
			}
			return
		}
	}
}

func (s *session) write(out Output) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}

	return s.conn.WriteJSON(out)
}
