package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexflow/backend/llm"
	"github.com/lexflow/backend/pipeline"
	"github.com/lexflow/backend/repository"
	"github.com/lexflow/backend/vectorstore"
	ws "github.com/lexflow/backend/websocket"
	"gorm.io/gorm"
)

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	rawDB  *gorm.DB
	pool   *pgxpool.Pool

	registry   *llm.Registry
	retriever  *vectorstore.Retriever
	generation *GenerationService
	chat       *ChatService

	authService       *AuthService
	authEndpoints     *AuthEndpoints
	agentEndpoints    *AgentEndpoints
	profileEndpoints  *ProfileEndpoints
	agentSetEndpoints *AgentSetEndpoints
	sessionEndpoints  *SessionEndpoints
	documentEndpoints *DocumentEndpoints
	chatEndpoints     *ChatEndpoints
	calendarEndpoints *CalendarEndpoints
	websocketHandler  *WebSocketHandler

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the relational database handles.
func (s *Server) SetDatabase(repo *repository.GORMRepository, rawDB *gorm.DB) {
	s.repo = repo
	s.rawDB = rawDB
}

// SetVectorPool sets the pgx pool backing the vector store.
func (s *Server) SetVectorPool(pool *pgxpool.Pool) {
	s.pool = pool
}

// InitializeServices wires every service the routes need. Database handles
// must be set first.
func (s *Server) InitializeServices() error {
	var clients []llm.Client
	if s.config.AI.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(s.config.AI.GeminiAPIKey)
		if err != nil {
			slog.Error("Failed to initialize Gemini client", "error", err)
		} else {
			clients = append(clients, gemini)
			slog.Info("Gemini client initialized")
		}
	}
	if s.config.AI.OllamaURL != "" {
		clients = append(clients, llm.NewOllamaClient(s.config.AI.OllamaURL))
		slog.Info("Ollama client initialized", "url", s.config.AI.OllamaURL)
	}
	s.registry = llm.NewRegistry(clients...)

	if s.pool != nil {
		store := vectorstore.NewStore(s.pool)
		if err := store.InitSchema(context.Background()); err != nil {
			slog.Error("Failed to initialize vector store schema", "error", err)
		}
		embedder := vectorstore.NewOllamaEmbedder(s.config.AI.OllamaURL, s.config.VectorStore.EmbedModel)
		s.retriever = vectorstore.NewRetriever(store, embedder, s.config.VectorStore.TopK)
		slog.Info("Vector store initialized", "embed_model", s.config.VectorStore.EmbedModel, "top_k", s.config.VectorStore.TopK)
	} else {
		slog.Warn("Vector store pool not configured, retrieval disabled")
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	if s.repo != nil {
		executor := pipeline.NewExecutor(s.repo, s.registry, s.retriever, &HubNotifier{Hub: s.wsHub})
		s.generation = NewGenerationService(s.repo, executor, s.config.Pipeline.Workers)

		chatRepo := repository.NewChatRepository(s.rawDB)
		s.chat = NewChatService(chatRepo, s.repo, s.registry, s.retriever, s.config.AI.ChatProvider, s.config.AI.ChatModel)

		if s.config.JWT.Secret != "" {
			s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
			s.authEndpoints = NewAuthEndpoints(s.authService)
		}

		s.agentEndpoints = NewAgentEndpoints(s.repo)
		s.profileEndpoints = NewProfileEndpoints(s.repo)
		s.agentSetEndpoints = NewAgentSetEndpoints(s.repo)
		s.sessionEndpoints = NewSessionEndpoints(s.repo, s.generation)
		s.documentEndpoints = NewDocumentEndpoints(s.repo, s.retriever)
		s.chatEndpoints = NewChatEndpoints(chatRepo, s.chat)
		s.calendarEndpoints = NewCalendarEndpoints(s.repo)
		s.websocketHandler = NewWebSocketHandler(s.chat, s.repo)
	}

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		if s.authEndpoints != nil {
			r.Route("/auth", func(r chi.Router) {
				// Public auth routes
				r.Post("/login", s.authEndpoints.LoginHandler)
				r.Post("/signup", s.authEndpoints.SignupHandler)
				r.Post("/refresh", s.authEndpoints.RefreshHandler)

				// Protected auth routes
				r.Group(func(r chi.Router) {
					r.Use(s.authService.Middleware)
					r.Post("/logout", s.authEndpoints.LogoutHandler)
					r.Get("/me", s.authEndpoints.MeHandler)
				})
			})
		}

		if s.authService != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)

				r.Get("/ws", s.websocketHandlerFunc)

				s.agentEndpoints.RegisterRoutes(r)
				s.profileEndpoints.RegisterRoutes(r)
				s.agentSetEndpoints.RegisterRoutes(r)
				s.sessionEndpoints.RegisterRoutes(r)
				s.documentEndpoints.RegisterRoutes(r)
				s.chatEndpoints.RegisterRoutes(r)
				s.calendarEndpoints.RegisterRoutes(r)
			})
		}
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF
// attacks. An empty allow-list denies everything.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if sqlDB, err := s.rawDB.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		slog.Error("WebSocket connection failed - user not found in context")
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "email", user.Email)

	client := s.wsHub.RegisterClient(conn, user.ID)
	if s.websocketHandler != nil {
		client.MessageHandler = s.websocketHandler.HandleMessage
	}

	go client.WritePump()
	client.ReadPump()
}
