package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-blog-api/internal/auth"
	"github.com/redmonkez12/go-blog-api/internal/config"
	"github.com/redmonkez12/go-blog-api/internal/logging"
	"github.com/redmonkez12/go-blog-api/internal/post"
	"github.com/redmonkez12/go-blog-api/internal/user"
)

// memStore is an in-memory stand-in for the Postgres repositories. Account
// deletion cascades to owned posts, mirroring the foreign key.
type memStore struct {
	mu         sync.Mutex
	users      map[int64]user.User
	posts      map[int64]post.Post
	nextUserID int64
	nextPostID int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]user.User),
		posts: make(map[int64]post.Post),
	}
}

func (s *memStore) Create(ctx context.Context, email, passwordHash string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}

	s.nextUserID++
	now := time.Now()
	u := user.User{
		ID:           s.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *memStore) Update(ctx context.Context, id int64, update user.Update) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}

	if update.Email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *update.Email {
				return nil, user.ErrDuplicateEmail
			}
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = update.Name
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	u.UpdatedAt = time.Now()

	s.users[id] = u
	return &u, nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)

	for postID, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, postID)
		}
	}
	return nil
}

func (s *memStore) CreatePost(ctx context.Context, authorID int64, title, content string, description *string) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	now := time.Now()
	p := post.Post{
		ID:          s.nextPostID,
		Title:       title,
		Content:     content,
		Description: description,
		AuthorID:    authorID,
		Author:      s.authorSummary(authorID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.posts[p.ID] = p
	return &p, nil
}

func (s *memStore) GetPostByID(ctx context.Context, id int64) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	p.Author = s.authorSummary(p.AuthorID)
	return &p, nil
}

func (s *memStore) ListPosts(ctx context.Context) ([]post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		p.Author = s.authorSummary(p.AuthorID)
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (s *memStore) UpdatePost(ctx context.Context, id int64, update post.Update) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, post.ErrNotFound
	}

	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.SetDescription {
		p.Description = update.Description
	}
	p.UpdatedAt = time.Now()

	s.posts[id] = p
	p.Author = s.authorSummary(p.AuthorID)
	return &p, nil
}

func (s *memStore) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) authorSummary(id int64) *post.Author {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return &post.Author{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// postRepo adapts memStore's post methods to the post.Repository interface
// (the names differ because both repositories share one receiver here).
type postRepo struct{ *memStore }

func (r postRepo) Create(ctx context.Context, authorID int64, title, content string, description *string) (*post.Post, error) {
	return r.CreatePost(ctx, authorID, title, content, description)
}

func (r postRepo) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	return r.GetPostByID(ctx, id)
}

func (r postRepo) List(ctx context.Context) ([]post.Post, error) {
	return r.ListPosts(ctx)
}

func (r postRepo) Update(ctx context.Context, id int64, update post.Update) (*post.Post, error) {
	return r.UpdatePost(ctx, id, update)
}

// noopCache disables caching in tests
type noopCache struct{}

func (noopCache) Get(ctx context.Context) ([]byte, error)      { return nil, nil }
func (noopCache) Set(ctx context.Context, payload []byte) error { return nil }
func (noopCache) Invalidate(ctx context.Context) error          { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "dev"
	cfg.Auth.TokenDuration = 24 * time.Hour

	store := newMemStore()
	logger := logging.NewLogger(true)

	hasher := auth.NewHasher()
	tokenService, err := auth.NewPasetoService([]byte("0123456789abcdef0123456789abcdef"), cfg.Auth.TokenDuration)
	require.NoError(t, err)
	authMiddleware := auth.NewMiddleware(tokenService)

	userService := user.NewService(store, postRepo{store}, hasher, tokenService)
	userHandler := user.NewHandler(userService, noopCache{}, true)
	postHandler := post.NewHandler(postRepo{store}, noopCache{}, true)

	return NewRouter(cfg, userHandler, postHandler, authMiddleware, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func registerUser(t *testing.T, router http.Handler, email, password string) (int64, string) {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	userObj, _ := body["user"].(map[string]any)
	require.NotNil(t, userObj)
	return int64(userObj["id"].(float64)), token
}

func uniqueEmail() string {
	return fmt.Sprintf("%s@example.com", uuid.NewString()[:8])
}

func TestRegisterLoginFlow(t *testing.T) {
	router := newTestRouter(t)
	email := uniqueEmail()

	userID, token := registerUser(t, router, email, "secret1")
	assert.Positive(t, userID)

	// The issued token works immediately
	rec := doJSON(t, router, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)
	assert.Equal(t, email, profile["email"])
	assert.Equal(t, float64(0), profile["postCount"])

	// Duplicate email is a conflict
	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password is rejected without detail
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decodeBody(t, rec)["message"])

	// Correct credentials log in
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["token"])
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing password", map[string]string{"email": "u@x.com"}},
		{"missing email", map[string]string{"password": "secret1"}},
		{"short password", map[string]string{"email": "u@x.com", "password": "12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPostLifecycle(t *testing.T) {
	router := newTestRouter(t)

	authorID, authorToken := registerUser(t, router, uniqueEmail(), "secret1")
	_, otherToken := registerUser(t, router, uniqueEmail(), "secret1")

	// Unauthenticated creation is rejected
	rec := doJSON(t, router, http.MethodPost, "/posts", "", map[string]string{
		"title":   "Hi there",
		"content": "0123456789",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Field validation happens after authentication
	rec = doJSON(t, router, http.MethodPost, "/posts", authorToken, map[string]string{
		"title":   "Hi",
		"content": "0123456789",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/posts", authorToken, map[string]string{
		"title":   "Hi there",
		"content": "too short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The caller becomes the author
	rec = doJSON(t, router, http.MethodPost, "/posts", authorToken, map[string]string{
		"title":   "Hi there",
		"content": "0123456789",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	postID := int64(created["id"].(float64))
	assert.Equal(t, float64(authorID), created["authorId"])

	// Reads are public
	rec = doJSON(t, router, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeBody(t, rec)
	assert.Equal(t, float64(1), listing["total"])

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/posts/%d", postID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/posts/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Only the author may update; a missing post outranks ownership
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/posts/%d", postID), otherToken, map[string]string{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/posts/99999", otherToken, map[string]string{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/posts/%d", postID), authorToken, map[string]string{
		"title": "Updated title",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated title", decodeBody(t, rec)["title"])

	// The profile reflects the post count
	rec = doJSON(t, router, http.MethodGet, "/users/me", authorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["postCount"])
}

func TestProfileUpdate(t *testing.T) {
	router := newTestRouter(t)

	takenEmail := uniqueEmail()
	registerUser(t, router, takenEmail, "secret1")
	_, token := registerUser(t, router, uniqueEmail(), "secret1")

	// No fields at all
	rec := doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Name
	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{"name": "  Ada  "})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Ada", updated["name"])

	// Email
	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{"email": takenEmail})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Password change requires the current password
	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{"password": "newsecret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{
		"password":        "newsecret",
		"currentPassword": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/me", token, map[string]string{
		"password":        "newsecret",
		"currentPassword": "secret1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountDeletion(t *testing.T) {
	router := newTestRouter(t)

	email := uniqueEmail()
	_, token := registerUser(t, router, email, "secret1")

	rec := doJSON(t, router, http.MethodPost, "/posts", token, map[string]string{
		"title":   "Hi there",
		"content": "0123456789",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Missing then wrong password confirmation
	rec = doJSON(t, router, http.MethodDelete, "/users/me", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/users/me", token, map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/users/me", token, map[string]string{"password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The token outlives the account; the lookup behind it does not
	rec = doJSON(t, router, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Owned posts were cascaded away
	rec = doJSON(t, router, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["total"])
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Route not found", body["error"])
}
