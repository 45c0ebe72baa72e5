package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"parlor/internal/api"
	"parlor/internal/ws"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(handlers *api.API, wsServer *ws.Server, allowedOrigins []string, addr string) *APIServer {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", handlers.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", handlers.LoginHandler)
	mux.HandleFunc("GET /api/chat/rooms", handlers.RoomsHandler)
	mux.HandleFunc("GET /api/chat/users", handlers.UsersHandler)
	mux.HandleFunc("GET /api/chat/messages/{roomId}", handlers.MessagesHandler)
	mux.HandleFunc("PUT /api/users/update", handlers.RequireAuth(handlers.UpdateProfileHandler))

	// WebSocket endpoint
	mux.HandleFunc("GET /api/chat/ws", wsServer.HandleConnections)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Chat backend is running."))
	})

	if addr == "" {
		addr = ":10000"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: api.CORS(allowedOrigins, mux),
		},
	}
}

func (s *APIServer) Start() error {
	log.Printf("Server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
