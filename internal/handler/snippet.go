package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/1525164075/code-spark-snippets/internal/auth"
	"github.com/1525164075/code-spark-snippets/internal/metrics"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
	"github.com/1525164075/code-spark-snippets/internal/secret"
	"github.com/1525164075/code-spark-snippets/internal/service"
)

// SnippetHandler exposes snippet creation, listing, gated reads, secret
// verification, and deletion.
type SnippetHandler struct {
	snippets *service.SnippetService
	gate     *service.AccessGate
	metrics  *metrics.ServerMetrics
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler with its dependencies.
func NewSnippetHandler(
	snippets *service.SnippetService,
	gate *service.AccessGate,
	m *metrics.ServerMetrics,
	logger *slog.Logger,
) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		gate:     gate,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type codeFileRequest struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

type createSnippetRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Files       []codeFileRequest `json:"files" validate:"required,min=1"`
	Tags        []string          `json:"tags"`
	Visibility  string            `json:"visibility" validate:"required,oneof=public private"`
	Secret      string            `json:"secret"`
	// ExpiresInHours takes precedence over ExpiresAt when both are set.
	ExpiresInHours int        `json:"expiresInHours" validate:"min=0"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

type verifySecretRequest struct {
	Password string `json:"password" validate:"required"`
}

// accessResponse is the envelope around gated reads. Snippet is full for
// granted, partial for password_required, absent otherwise.
type accessResponse struct {
	Status  string         `json:"status"`
	Snippet *model.Snippet `json:"snippet,omitempty"`
}

// HandleCreate creates a snippet.
//
// HTTP: POST /api/snippets (auth optional; required for private visibility)
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "title, files, and a valid visibility are required"})
		return
	}

	files := make([]model.CodeFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = model.CodeFile{Filename: f.Filename, Language: f.Language, Content: f.Content}
	}

	ownerID, _ := auth.UserIDFromContext(r.Context())

	expiresAt := req.ExpiresAt
	if req.ExpiresInHours > 0 {
		t := time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	snippet, err := h.snippets.Create(r.Context(), service.CreateParams{
		Title:       req.Title,
		Files:       files,
		Description: req.Description,
		Tags:        req.Tags,
		Visibility:  model.Visibility(req.Visibility),
		Secret:      req.Secret,
		ExpiresAt:   expiresAt,
		OwnerID:     ownerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.metrics.IncSnippetCreated(string(snippet.Visibility))
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleGet reads a snippet through the access gate. A secret for private
// snippets may be supplied as the "secret" query parameter; most clients
// instead fetch, receive 401 with prompt metadata, and POST to /verify.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	suppliedSecret := r.URL.Query().Get("secret")
	ownerID, _ := auth.UserIDFromContext(r.Context())

	h.respondGated(w, r, id, suppliedSecret, ownerID)
}

// HandleVerify checks a secret against a private snippet and, on success,
// returns the full snippet.
//
// HTTP: POST /api/snippets/{id}/verify
func (h *SnippetHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifySecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "password is required"})
		return
	}

	id := chi.URLParam(r, "id")
	ownerID, _ := auth.UserIDFromContext(r.Context())

	h.respondGated(w, r, id, req.Password, ownerID)
}

// respondGated runs the access gate and writes the mapped response:
// granted → 200 with the full snippet, password_required → 401 with prompt
// metadata, expired and denied → the same generic 404.
func (h *SnippetHandler) respondGated(w http.ResponseWriter, r *http.Request, id, suppliedSecret, ownerID string) {
	result, err := h.gate.Evaluate(r.Context(), id, suppliedSecret, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.metrics.IncAccess(string(result.Status))

	switch result.Status {
	case service.StatusGranted:
		writeJSON(w, http.StatusOK, accessResponse{
			Status:  string(result.Status),
			Snippet: result.Snippet,
		})
	case service.StatusPasswordRequired:
		writeJSON(w, http.StatusUnauthorized, accessResponse{
			Status:  string(result.Status),
			Snippet: result.Snippet,
		})
	default:
		writeNotFound(w)
	}
}

// HandleListPublic lists public snippet summaries.
//
// HTTP: GET /api/snippets?sort=created_desc|title_asc
func (h *SnippetHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	order := repository.SortOrder(r.URL.Query().Get("sort"))

	summaries, err := h.snippets.ListPublic(r.Context(), order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleListMine lists all snippets owned by the authenticated user.
//
// HTTP: GET /api/snippets/mine (auth required)
func (h *SnippetHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	summaries, err := h.snippets.ListOwned(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleDelete removes a snippet owned by the authenticated user.
//
// HTTP: DELETE /api/snippets/{id} (auth required)
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	if err := h.snippets.Delete(r.Context(), chi.URLParam(r, "id"), ownerID); err != nil {
		writeError(w, err)
		return
	}

	h.metrics.IncSnippetDeleted()
	writeJSON(w, http.StatusOK, map[string]string{"message": "snippet deleted"})
}

// HandleGenerateSecret returns a fresh random secret clients can offer as a
// default when creating a private snippet. Nothing is stored.
//
// HTTP: GET /api/snippets/secret
func (h *SnippetHandler) HandleGenerateSecret(w http.ResponseWriter, r *http.Request) {
	s, err := secret.GenerateRandom()
	if err != nil {
		h.logger.Error("failed to generate secret", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "an internal error occurred"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": s})
}
