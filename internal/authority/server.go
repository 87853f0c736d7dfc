package authority

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Handler serves the authority over WebSocket, one envelope per binary
// message. Pings from clients are answered by the websocket library.
type Handler struct {
	authority *Authority
	upgrader  websocket.Upgrader
	logger    *slog.Logger

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHandler creates a WebSocket handler for a.
func NewHandler(a *Authority, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		authority: a,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:       logger,
		WriteTimeout: 5 * time.Second,
		conns:        make(map[*websocket.Conn]struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	sess := h.authority.Attach()
	defer func() {
		h.authority.Detach(sess)
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	h.logger.Info("ws client connected", "session_id", sess.ID(), "remote", r.RemoteAddr)

	go h.downstreamLoop(conn, sess)
	h.upstreamLoop(conn, sess)
}

// CloseAll sends a going-away close to every client and drops it.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "authority shutting down")
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.WriteTimeout))
		c.Close()
	}
}

// Connections returns the number of open WebSocket connections.
func (h *Handler) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) downstreamLoop(conn *websocket.Conn, sess *Session) {
	defer conn.Close()
	for {
		select {
		case env := <-sess.Outbound():
			data, err := wire.EncodeEnvelope(env)
			if err != nil {
				h.logger.Error("encode envelope", "session_id", sess.ID(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				h.logger.Warn("ws write failed", "session_id", sess.ID(), "error", err)
				return
			}
		case <-sess.Done():
			return
		}
	}
}

func (h *Handler) upstreamLoop(conn *websocket.Conn, sess *Session) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read error", "session_id", sess.ID(), "error", err)
			}
			h.logger.Info("ws client disconnected", "session_id", sess.ID())
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			h.logger.Warn("dropping invalid envelope", "session_id", sess.ID(), "error", err)
			continue
		}
		h.authority.Receive(sess, env)
	}
}

// Server runs a Handler on a TCP listener.
type Server struct {
	Handler *Handler

	// Path the handler is mounted on (default: /ws).
	Path string

	listener net.Listener
	server   *http.Server
}

// NewServer creates a server for a.
func NewServer(a *Authority, logger *slog.Logger) *Server {
	return &Server{Handler: NewHandler(a, logger), Path: "/ws"}
}

// Listen binds addr. Use ":0" for an ephemeral port.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.Handle(s.Path, s.Handler)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return nil
}

// Port returns the bound TCP port, or 0 before Listen.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Serve accepts connections until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Handler.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(s.listener); err != http.ErrServerClosed {
		return err
	}
	return nil
}
