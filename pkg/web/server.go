// pkg/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/model"
	"github.com/tablebot/tablebot/pkg/pipeline"
	"github.com/tablebot/tablebot/pkg/storage"
)

// PipelineRunner is the cleaning pipeline as the transport sees it.
type PipelineRunner interface {
	Run(ctx context.Context, up pipeline.Upload) (*model.CleaningResult, error)
}

// ChatService is the chat subsystem as the transport sees it.
type ChatService interface {
	Respond(ctx context.Context, userID int64, text string) (string, error)
}

// Server is the HTTP transport adapter. It owns the upload size policy
// and relays structured errors; everything else belongs to the core.
type Server struct {
	runner    PipelineRunner
	chat      ChatService
	records   storage.RecordStore
	maxUpload int64
	logger    *zap.Logger
}

// NewServer wires the HTTP surface.
func NewServer(runner PipelineRunner, chat ChatService, records storage.RecordStore, maxUpload int64, logger *zap.Logger) *Server {
	if maxUpload <= 0 {
		maxUpload = 100 << 20
	}
	return &Server{runner: runner, chat: chat, records: records, maxUpload: maxUpload, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/mode", s.handleMode)
	return r
}

// requestLogger logs one line per request with the chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
