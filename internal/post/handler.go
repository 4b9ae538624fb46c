package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/redmonkez12/go-blog-api/internal/auth"
	"github.com/redmonkez12/go-blog-api/internal/httputil"
	"github.com/redmonkez12/go-blog-api/internal/logging"
)

const (
	minTitleLength   = 3
	minContentLength = 10
)

// ListCache caches the marshaled list response. Get returns (nil, nil) on a
// miss; failures degrade to the database and never fail the request.
type ListCache interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, payload []byte) error
	Invalidate(ctx context.Context) error
}

// Handler contains HTTP handlers for the /posts routes.
type Handler struct {
	repo          Repository
	cache         ListCache
	group         singleflight.Group
	isDevelopment bool
}

func NewHandler(repo Repository, cache ListCache, isDevelopment bool) *Handler {
	return &Handler{
		repo:          repo,
		cache:         cache,
		isDevelopment: isDevelopment,
	}
}

// CreatePostRequest is the POST /posts request body
type CreatePostRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Description *string `json:"description"`
}

// UpdatePostRequest is the PUT /posts/:id request body
type UpdatePostRequest struct {
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	Description *string `json:"description"`
}

// ListResponse is the GET /posts success body
type ListResponse struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}

// List returns all posts
// @Summary      List posts
// @Description  Return all posts with their authors, newest first
// @Tags         posts
// @Produce      json
// @Success      200 {object} ListResponse
// @Router       /posts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if cached, err := h.cache.Get(r.Context()); err != nil {
		logger.Warn("post list cache read failed", "error", err.Error())
	} else if cached != nil {
		writeRawJSON(w, cached)
		return
	}

	// Coalesce concurrent misses into a single database load
	payload, err, _ := h.group.Do("posts:list", func() (any, error) {
		posts, err := h.repo.List(context.WithoutCancel(r.Context()))
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(ListResponse{Posts: posts, Total: len(posts)})
		if err != nil {
			return nil, err
		}

		if err := h.cache.Set(context.WithoutCancel(r.Context()), body); err != nil {
			logger.Warn("post list cache write failed", "error", err.Error())
		}

		return body, nil
	})
	if err != nil {
		logger.Error("failed to list posts", "error", err.Error())
		h.respondInternal(w, "Failed to fetch posts", err)
		return
	}

	writeRawJSON(w, payload.([]byte))
}

// Get returns a single post
// @Summary      Get post
// @Description  Return a single post by numeric id
// @Tags         posts
// @Produce      json
// @Param        id path int true "Post ID"
// @Success      200 {object} Post
// @Failure      400 {object} httputil.ErrorResponse "Non-numeric id"
// @Failure      404 {object} httputil.ErrorResponse "Post not found"
// @Router       /posts/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := parsePostID(r)
	if err != nil {
		httputil.RespondError(w, "Validation error", "Invalid post ID", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Post not found", "Post with this ID does not exist", http.StatusNotFound)
			return
		}
		logger.Error("failed to get post", "error", err.Error())
		h.respondInternal(w, "Failed to fetch post", err)
		return
	}

	httputil.RespondJSON(w, p, http.StatusOK)
}

// Create creates a new post owned by the caller
// @Summary      Create post
// @Description  Create a post. The authenticated caller becomes the immutable author.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePostRequest true "Post fields"
// @Success      201 {object} Post
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Router       /posts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Authentication required", "You must be logged in to create a post", http.StatusUnauthorized)
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" || req.Content == "" {
		httputil.RespondError(w, "Validation error", "Title and content are required", http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(req.Title)
	if len(title) < minTitleLength {
		httputil.RespondError(w, "Validation error", "Title must be at least 3 characters long", http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(req.Content)
	if len(content) < minContentLength {
		httputil.RespondError(w, "Validation error", "Content must be at least 10 characters long", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), identity.UserID, title, content, trimDescription(req.Description))
	if err != nil {
		logger.Error("failed to create post", "error", err.Error())
		h.respondInternal(w, "Failed to create post", err)
		return
	}

	h.invalidateCache(r.Context(), logger)

	logger.Info("post created", "post_id", created.ID, "author_id", identity.UserID)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// UpdateByID updates a post owned by the caller
// @Summary      Update post
// @Description  Partially update a post. Only the post's author may update it.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Post ID"
// @Param        request body UpdatePostRequest true "Fields to update"
// @Success      200 {object} Post
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Failure      403 {object} httputil.ErrorResponse "Not the author"
// @Failure      404 {object} httputil.ErrorResponse "Post not found"
// @Router       /posts/{id} [put]
func (h *Handler) UpdateByID(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Authentication required", "You must be logged in to update a post", http.StatusUnauthorized)
		return
	}

	id, err := parsePostID(r)
	if err != nil {
		httputil.RespondError(w, "Validation error", "Invalid post ID", http.StatusBadRequest)
		return
	}

	// Existence is checked before ownership so a missing post is 404, not 403
	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Post not found", "Post with this ID does not exist", http.StatusNotFound)
			return
		}
		logger.Error("failed to get post", "error", err.Error())
		h.respondInternal(w, "Failed to update post", err)
		return
	}

	if existing.AuthorID != identity.UserID {
		logger.Warn("post update rejected: not the author", "post_id", id, "caller_id", identity.UserID)
		httputil.RespondError(w, "Forbidden", "You can only update your own posts", http.StatusForbidden)
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	var update Update

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < minTitleLength {
			httputil.RespondError(w, "Validation error", "Title must be at least 3 characters long", http.StatusBadRequest)
			return
		}
		update.Title = &title
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if len(content) < minContentLength {
			httputil.RespondError(w, "Validation error", "Content must be at least 10 characters long", http.StatusBadRequest)
			return
		}
		update.Content = &content
	}

	if req.Description != nil {
		update.SetDescription = true
		update.Description = trimDescription(req.Description)
	}

	updated, err := h.repo.Update(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Post not found", "Post with this ID does not exist", http.StatusNotFound)
			return
		}
		logger.Error("failed to update post", "error", err.Error())
		h.respondInternal(w, "Failed to update post", err)
		return
	}

	h.invalidateCache(r.Context(), logger)

	logger.Info("post updated", "post_id", id)

	httputil.RespondJSON(w, updated, http.StatusOK)
}

func (h *Handler) invalidateCache(ctx context.Context, logger *logging.Logger) {
	if err := h.cache.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate post cache", "error", err.Error())
	}
}

func (h *Handler) respondInternal(w http.ResponseWriter, message string, err error) {
	if h.isDevelopment {
		message = err.Error()
	}
	httputil.RespondError(w, "Internal server error", message, http.StatusInternalServerError)
}

func parsePostID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func trimDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func writeRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
