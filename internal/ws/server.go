package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"parlor/internal/hub"

	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to websocket connections and hands them to
// the hub.
type Server struct {
	hub      *hub.Hub
	upgrader *websocket.Upgrader
}

func NewServer(h *hub.Hub, allowedOrigins []string) *Server {
	allowed, allowAll := normalizeOrigins(allowedOrigins)

	return &Server{
		hub: h,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := allowed[strings.ToLower(origin)]
				return ok
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := NewConnection(s.hub, conn)
	if err := c.Handle(r.Context()); err != nil {
		slog.Info("connection closed", "error", err)
	}
}

func normalizeOrigins(origins []string) (map[string]struct{}, bool) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(strings.TrimSuffix(trimmed, "/"))] = struct{}{}
	}
	return allowed, allowAll
}
