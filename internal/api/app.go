package api

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/roomchat/internal/chat"
	"github.com/npezzotti/roomchat/internal/config"
	"github.com/npezzotti/roomchat/internal/server"
)

type Pinger interface {
	Ping() error
}

type ChatApp struct {
	log            *log.Logger
	svc            *chat.Service
	db             Pinger
	cs             *server.ChatServer
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
	templates      map[string]*template.Template
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, svc *chat.Service, db Pinger, cfg *config.Config) (*ChatApp, error) {
	tc, err := NewTemplateCache()
	if err != nil {
		return nil, fmt.Errorf("template cache: %w", err)
	}

	s := &ChatApp{
		log:            logger,
		svc:            svc,
		db:             db,
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		templates:      tc,
	}

	mux.HandleFunc("GET /{$}", s.publicPage("index"))
	mux.HandleFunc("GET /login", s.publicPage("login"))
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /register", s.publicPage("register"))
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("GET /fail", s.publicPage("fail"))
	mux.HandleFunc("GET /chat", s.pageMiddleware(s.chatPage))
	mux.HandleFunc("GET /logout", s.pageMiddleware(s.logout))
	mux.HandleFunc("POST /adduser", s.sessionMiddleware(s.addUser))
	mux.HandleFunc("POST /addroom", s.sessionMiddleware(s.addRoom))
	mux.HandleFunc("GET /connections", s.sessionMiddleware(s.getConnections))
	mux.HandleFunc("POST /getroommessages", s.sessionMiddleware(s.getRoomMessages))
	mux.HandleFunc("POST /saveroommessages", s.sessionMiddleware(s.saveMessage))
	mux.HandleFunc("POST /saveprivateroommessages", s.sessionMiddleware(s.saveMessage))
	mux.HandleFunc("GET /ws", s.sessionMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.Handle("GET /public/", publicHandler())
	mux.HandleFunc("/", s.invalidRoute)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = noStore(h)
	h = s.errorHandler(h)
	h = handlers.LoggingHandler(logger.Writer(), h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s, nil
}

func (s *ChatApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
