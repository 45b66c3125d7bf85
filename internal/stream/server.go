// Package stream serves session patch sets to remote viewports over
// websockets and accepts edit commands from them.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/terrasync/internal/control"
	"github.com/Faultbox/terrasync/internal/heightfield"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	outQueue     = 16
)

// Server exposes the sessions of a registry.
type Server struct {
	registry *control.Registry
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server for the sessions in reg.
func NewServer(reg *control.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		registry: reg,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local tool
		},
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", s.listSessions)
	mux.HandleFunc("GET /sessions/{id}/ws", s.serveSession)
	return mux
}

func (s *Server) listSessions(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string][]string{"sessions": s.registry.IDs()})
}

func (s *Server) serveSession(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.registry.Get(id)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.log.With(zap.String("session", id), zap.String("remote", r.RemoteAddr))
	log.Info("viewer connected")
	defer log.Info("viewer disconnected")

	sets, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	field := sess.Field()
	hello := HelloMsg{
		Type:       TypeHello,
		SessionID:  id,
		Rows:       field.Rows(),
		Cols:       field.Cols(),
		Generation: sess.Generation(),
	}
	if err := writeJSON(conn, hello); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan any, outQueue)

	// Writer goroutine; the only writer on conn after the hello.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case set, ok := <-sets:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
						time.Now().Add(time.Second))
					cancel()
					return
				}
				if err := writeJSON(conn, patchesMsg(set)); err != nil {
					log.Debug("write patches failed", zap.Error(err))
					cancel()
					return
				}
			case msg := <-out:
				if err := writeJSON(conn, msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		reply := s.handle(ctx, sess, raw, log)
		select {
		case out <- reply:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	cancel()
	<-writerDone
}

func (s *Server) handle(ctx context.Context, sess *control.Session, raw []byte, log *zap.Logger) any {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		log.Debug("rejected command", zap.Error(err))
		return ErrorMsg{Type: TypeError, Message: err.Error()}
	}

	fail := func(err error) any {
		return ErrorMsg{Type: TypeError, Command: cmd.Type, Message: err.Error()}
	}
	ack := func(r *heightfield.Rect) any {
		return AckMsg{Type: TypeAck, Command: cmd.Type, Rect: r}
	}

	switch cmd.Type {
	case TypeBrush:
		b, err := cmd.Brush()
		if err != nil {
			return fail(err)
		}
		d, err := sess.ApplyBrush(b)
		if err != nil {
			return fail(err)
		}
		return ack(&d.Rect)
	case TypeCommit:
		if err := sess.Commit(ctx); err != nil {
			if pmf, ok := control.IsPartialMeshFailure(err); ok {
				log.Warn("commit meshed partially", zap.Int("failed", len(pmf.Failed)))
			}
			return fail(err)
		}
		return ack(nil)
	case TypeUndo:
		d, err := sess.Undo()
		if err != nil {
			return fail(err)
		}
		return ack(&d.Rect)
	case TypeRedo:
		d, err := sess.Redo()
		if err != nil {
			return fail(err)
		}
		return ack(&d.Rect)
	}
	return fail(errors.New("unknown command"))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
