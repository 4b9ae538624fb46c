package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redmonkez12/go-blog-api/internal/auth"
)

var (
	ErrMissingCredentials       = errors.New("email and password are required")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrNoFieldsToUpdate         = errors.New("at least one field (name, email, or password) must be provided")
	ErrNameTooShort             = errors.New("name must be at least 2 characters long")
	ErrInvalidEmail             = errors.New("please provide a valid email address")
	ErrCurrentPasswordRequired  = errors.New("current password is required to set a new password")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrPasswordIncorrect        = errors.New("password is incorrect")
)

// PostCounter reports how many posts a user owns. Implemented by the post
// repository; declared here so the user package stays independent of it.
type PostCounter interface {
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
}

// ProfileUpdate is the partial payload of PUT /users/me. Nil means the field
// was not submitted.
type ProfileUpdate struct {
	Name            *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

// Service handles account business logic: registration, login, and profile
// management. Plaintext passwords only pass through here on their way into
// the hasher; they are never stored or logged.
type Service struct {
	repo   Repository
	posts  PostCounter
	hasher *auth.Hasher
	tokens auth.TokenService
}

func NewService(repo Repository, posts PostCounter, hasher *auth.Hasher, tokens auth.TokenService) *Service {
	return &Service{
		repo:   repo,
		posts:  posts,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new account and returns it along with a fresh token.
func (s *Service) Register(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	passwordHash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.repo.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(newUser.ID, newUser.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return newUser, token, nil
}

// Login authenticates credentials and returns the user and a fresh token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, existing.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(existing.ID, existing.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return existing, token, nil
}

// Profile returns the user and their post count.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, int, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.posts.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return u, count, nil
}

// UpdateProfile applies a partial profile update. Validation order is fixed:
// at least one field, then name, then email (format before uniqueness), then
// password (current required, current correct, new long enough).
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*User, int, error) {
	if upd.Name == nil && upd.Email == nil && upd.Password == nil {
		return nil, 0, ErrNoFieldsToUpdate
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var update Update

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if len(name) < 2 {
			return nil, 0, ErrNameTooShort
		}
		update.Name = &name
	}

	if upd.Email != nil {
		if !strings.Contains(*upd.Email, "@") {
			return nil, 0, ErrInvalidEmail
		}

		email := strings.ToLower(strings.TrimSpace(*upd.Email))

		// Check uniqueness up front for a clean conflict error; the unique
		// constraint still backstops races.
		if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing.ID != userID {
			return nil, 0, ErrDuplicateEmail
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, 0, fmt.Errorf("failed to check email: %w", err)
		}

		update.Email = &email
	}

	if upd.Password != nil {
		if upd.CurrentPassword == nil || *upd.CurrentPassword == "" {
			return nil, 0, ErrCurrentPasswordRequired
		}

		ok, err := s.hasher.Verify(ctx, *upd.CurrentPassword, current.PasswordHash)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to verify password: %w", err)
		}
		if !ok {
			return nil, 0, ErrCurrentPasswordIncorrect
		}

		if err := auth.ValidatePassword(*upd.Password); err != nil {
			return nil, 0, err
		}

		hash, err := s.hasher.Hash(ctx, *upd.Password)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to hash password: %w", err)
		}
		update.PasswordHash = &hash
	}

	updated, err := s.repo.Update(ctx, userID, update)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.posts.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return updated, count, nil
}

// DeleteAccount removes the account after confirming the password. Owned
// posts go with it. Tokens already issued stay valid until they expire; a
// later lookup of the deleted account yields not-found.
func (s *Service) DeleteAccount(ctx context.Context, userID int64, password string) error {
	if password == "" {
		return auth.ErrPasswordRequired
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, password, current.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrPasswordIncorrect
	}

	return s.repo.Delete(ctx, userID)
}
