// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jeranaias/orchat/internal/chat"
	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/media"
	"github.com/jeranaias/orchat/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address (loopback only).
	DefaultAddr = "127.0.0.1:8080"

	// MaxRequestBodySize bounds JSON request bodies. Messages may carry
	// several inline data URIs, so this is well above MaxImageBytes.
	MaxRequestBodySize = 32 * 1024 * 1024

	// MaxUploadBodySize bounds multipart image uploads.
	MaxUploadBodySize = media.MaxImageBytes + 1024*1024

	// UploadField is the multipart form field carrying the image.
	UploadField = "image"

	// Version is the API version reported by /healthz.
	Version = "0.1.0"

	// shutdownTimeout bounds graceful shutdown in Serve.
	shutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// KeyStore persists an API key submitted through PUT /api/key.
type KeyStore interface {
	Save(key string) error
}

// Server exposes one chat session over HTTP.
type Server struct {
	addr    string
	session *chat.Session
	encoder media.Encoder
	keys    KeyStore
	logger  *zap.Logger

	handlerOnce sync.Once
	handler     http.Handler

	server *http.Server
	mu     sync.Mutex
}

// NewServer creates a Server for session. Images are encoded with encoder.
// An empty addr means DefaultAddr.
func NewServer(addr string, session *chat.Session, encoder media.Encoder) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if encoder == nil {
		encoder = media.NewInlineEncoder()
	}
	return &Server{
		addr:    addr,
		session: session,
		encoder: encoder,
		logger:  zap.NewNop(),
	}
}

// WithKeyStore enables PUT /api/key.
func (s *Server) WithKeyStore(keys KeyStore) *Server {
	s.keys = keys
	return s
}

// WithLogger sets the logger used for access logs and failures.
func (s *Server) WithLogger(logger *zap.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// ROUTES
// ============================================================================

// Handler returns the router with its middleware chain.
// It is built on first use, so all With* calls must come before it.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		r := chi.NewRouter()
		r.Use(
			RequestIDMiddleware(),
			RecoveryMiddleware(s.logger),
			SecurityHeadersMiddleware(),
			LoggingMiddleware(s.logger),
		)

		r.Get("/healthz", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/models", s.handleModels)
			r.Put("/model", s.handleSelectModel)
			r.Get("/conversation", s.handleConversation)
			r.Post("/images", s.handleImageUpload)
			r.Post("/messages", s.handleSendMessage)
			r.Put("/key", s.handleSetKey)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		s.handler = r
	})
	return s.handler
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Model   string `json:"model"`
	Pending bool   `json:"pending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Model:   s.session.Model().ID,
		Pending: s.session.Pending(),
	})
}

// ============================================================================
// MODEL HANDLERS
// ============================================================================

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models   []model.ModelDescriptor `json:"models"`
	Selected model.ModelDescriptor   `json:"selected"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:   model.Catalog,
		Selected: s.session.Model(),
	})
}

// SelectModelRequest is the body of PUT /api/model.
type SelectModelRequest struct {
	ID string `json:"id"`
}

// SelectModelResponse reports the selected model and whether it is in the
// built-in catalog.
type SelectModelResponse struct {
	Model model.ModelDescriptor `json:"model"`
	Known bool                  `json:"known"`
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req SelectModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "model id is required")
		return
	}

	m, known := s.session.SelectModel(req.ID)
	writeJSON(w, http.StatusOK, SelectModelResponse{Model: m, Known: known})
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

// ConversationResponse is the body of GET /api/conversation.
type ConversationResponse struct {
	ID       string          `json:"id"`
	Messages []model.Message `json:"messages"`
	Pending  bool            `json:"pending"`
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv := s.session.Conversation()
	writeJSON(w, http.StatusOK, ConversationResponse{
		ID:       conv.ID(),
		Messages: conv.Messages(),
		Pending:  conv.Pending(),
	})
}

// ContentResponse carries content items ready to be sent in a message.
type ContentResponse struct {
	Content model.Contents `json:"content"`
}

func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBodySize)

	part, header, err := r.FormFile(UploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", UploadField))
		return
	}
	defer part.Close()

	f, err := media.ReadFrom(header.Filename, part, declaredType(header.Header.Get("Content-Type")))
	if err == nil {
		var ref model.ImageRef
		if ref, err = s.encoder.Encode(r.Context(), f); err == nil {
			writeJSON(w, http.StatusOK, ContentResponse{Content: model.Contents{ref}})
			return
		}
	}

	status := statusForMediaError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("image encoding failed",
			zap.String("name", header.Filename),
			zap.Error(err),
			zap.String("req_id", RequestIDFromContext(r.Context())),
		)
	}
	writeError(w, status, err.Error())
}

// declaredType returns the part's media type, or "" when it should be
// sniffed from the bytes instead.
func declaredType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

// SendMessageRequest is the body of POST /api/messages.
type SendMessageRequest struct {
	Content model.Contents `json:"content"`
}

// SendMessageResponse carries the assistant reply.
type SendMessageResponse struct {
	Message model.Message `json:"message"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := s.session.Send(r.Context(), req.Content)
	if err != nil {
		status, message := statusForSendError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("send failed",
				zap.Int("status", status),
				zap.Error(err),
				zap.String("req_id", RequestIDFromContext(r.Context())),
			)
		}
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, SendMessageResponse{Message: reply})
}

// ============================================================================
// KEY HANDLER
// ============================================================================

// SetKeyRequest is the body of PUT /api/key.
type SetKeyRequest struct {
	Key string `json:"key"`
}

// SetKeyResponse identifies the stored key without revealing it.
type SetKeyResponse struct {
	Fingerprint string `json:"fingerprint"`
	LooksValid  bool   `json:"looks_valid"`
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	if s.keys == nil {
		writeError(w, http.StatusNotImplemented, "the configured credential source cannot store keys")
		return
	}

	var req SetKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := strings.TrimSpace(req.Key)

	if err := s.keys.Save(key); err != nil {
		if errors.Is(err, credential.ErrEmptyKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Warn("failed to store API key", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}

	s.logger.Info("API key stored", zap.String("key", credential.Fingerprint(key)))
	writeJSON(w, http.StatusOK, SetKeyResponse{
		Fingerprint: credential.Fingerprint(key),
		LooksValid:  credential.LooksValid(key),
	})
}

// ============================================================================
// ERROR MAPPING
// ============================================================================

// statusForSendError maps a Session.Send error to a status and a message
// safe to show the user.
func statusForSendError(err error) (int, string) {
	var remote *cloud.RemoteError
	switch {
	case errors.Is(err, chat.ErrEmptyDraft):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, chat.ErrRequestPending):
		return http.StatusConflict, err.Error()
	case errors.Is(err, cloud.ErrMissingCredential):
		return http.StatusPreconditionFailed, cloud.ErrMissingCredential.Error()
	case errors.As(err, &remote):
		return http.StatusBadGateway, remote.Message
	case errors.Is(err, cloud.ErrMalformedResponse):
		return http.StatusBadGateway, cloud.FallbackErrorMessage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request cancelled"
	default:
		return http.StatusInternalServerError, cloud.FallbackErrorMessage
	}
}

// statusForMediaError maps an encoding failure to a status.
func statusForMediaError(err error) int {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, media.ErrDecodeFailed):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("server started", zap.String("addr", ln.Addr().String()), zap.String("version", Version))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Message: message, Code: status}})
}

// decodeJSON reads a bounded JSON body into v. It writes the error response
// itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
