package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"manualqa/internal/answer"
	"manualqa/internal/config"
	"manualqa/internal/embedding"
	"manualqa/internal/extract"
	"manualqa/internal/ingest"
	"manualqa/internal/providers"
	"manualqa/internal/retrieval"
	"manualqa/internal/storage"
	"manualqa/internal/util"
)

type Server struct {
	cfg          config.Config
	db           *storage.DB
	docRepo      *storage.DocumentRepo
	controller   *ingest.Controller
	orchestrator *answer.Orchestrator
	log          *slog.Logger
}

func NewServer(cfg config.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	client, err := providers.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	embedder := embedding.NewService(client, cfg.CompletionModel, cfg.EmbedDim, log)
	engine := extract.NewEngine(cfg, log)
	controller := ingest.NewController(docRepo, chunkRepo, engine, embedder, cfg, log)
	orchestrator := answer.NewOrchestrator(embedder, retrieval.NewIndex(chunkRepo), client, cfg.CompletionModel, cfg.TopK, log)

	return &Server{
		cfg:          cfg,
		db:           db,
		docRepo:      docRepo,
		controller:   controller,
		orchestrator: orchestrator,
		log:          log,
	}, nil
}

func (s *Server) Close() {
	s.db.Close()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /ask", s.handleAsk)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("file field is required: %w", err))
		return
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".txt", ".pdf":
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("upload %s: %w", header.Filename, util.ErrUnsupportedType))
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	sink := ingest.SinkFunc(func(ev ingest.ProgressEvent) {
		s.log.Debug("ingest progress",
			"stage", ev.Stage.String(), "percent", ev.Percent, "message", ev.Message)
	})
	doc, err := s.controller.Ingest(r.Context(), extract.SourceFile{Name: header.Filename, Data: data}, userID, sink)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	docs, err := s.docRepo.ListDocuments(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	documentID := r.PathValue("id")
	if err := s.docRepo.DeleteOwnedDocument(r.Context(), documentID, userID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
		Question   string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.Question = strings.TrimSpace(req.Question)
	if req.DocumentID == "" || req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("document_id and question are required"))
		return
	}
	text, err := s.orchestrator.Answer(r.Context(), req.Question, req.DocumentID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": text})
}

func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("X-User-ID header is required"))
	}
	return userID
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, util.ErrUnsupportedType),
		errors.Is(err, util.ErrEmptyFile),
		errors.Is(err, util.ErrPasswordProtected),
		errors.Is(err, util.ErrCorrupted),
		errors.Is(err, util.ErrNoReadableText),
		errors.Is(err, util.ErrCancelled):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrGenerationFailed), errors.Is(err, util.ErrNetwork):
		return http.StatusBadGateway
	}
	switch providers.ClassifyError(err) {
	case providers.ErrorRate, providers.ErrorTransient, providers.ErrorQuota:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": util.UserMessage(err)})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
