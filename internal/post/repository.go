package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-blog-api/internal/database"
)

// Repository handles post data persistence.
type Repository interface {
	Create(ctx context.Context, authorID int64, title, content string, description *string) (*Post, error)
	GetByID(ctx context.Context, id int64) (*Post, error)
	List(ctx context.Context) ([]Post, error)
	Update(ctx context.Context, id int64, update Update) (*Post, error)
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
}

// PGRepository is the Postgres-backed Repository.
type PGRepository struct {
	db *bun.DB
}

func NewPGRepository(db *bun.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Create inserts a new post and returns it with the author loaded
func (r *PGRepository) Create(ctx context.Context, authorID int64, title, content string, description *string) (*Post, error) {
	dbPost := &database.Post{
		Title:       title,
		Content:     content,
		Description: description,
		AuthorID:    authorID,
	}

	_, err := r.db.NewInsert().
		Model(dbPost).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return r.GetByID(ctx, dbPost.ID)
}

// GetByID retrieves a post with its author
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	dbPost := new(database.Post)
	err := r.db.NewSelect().
		Model(dbPost).
		Relation("Author").
		Where("p.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}

	return mapDBPostToModel(dbPost), nil
}

// List retrieves all posts with their authors, newest first
func (r *PGRepository) List(ctx context.Context) ([]Post, error) {
	var dbPosts []database.Post
	err := r.db.NewSelect().
		Model(&dbPosts).
		Relation("Author").
		Order("p.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]Post, 0, len(dbPosts))
	for i := range dbPosts {
		posts = append(posts, *mapDBPostToModel(&dbPosts[i]))
	}

	return posts, nil
}

// Update applies a partial update and returns the updated post
func (r *PGRepository) Update(ctx context.Context, id int64, update Update) (*Post, error) {
	q := r.db.NewUpdate().
		Model((*database.Post)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	if update.Title != nil {
		q = q.Set("title = ?", *update.Title)
	}
	if update.Content != nil {
		q = q.Set("content = ?", *update.Content)
	}
	if update.SetDescription {
		q = q.Set("description = ?", update.Description)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// CountByAuthor returns how many posts the given user owns
func (r *PGRepository) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*database.Post)(nil)).
		Where("author_id = ?", authorID).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return count, nil
}

// mapDBPostToModel converts database model to domain model
func mapDBPostToModel(dbp *database.Post) *Post {
	p := &Post{
		ID:          dbp.ID,
		Title:       dbp.Title,
		Content:     dbp.Content,
		Description: dbp.Description,
		AuthorID:    dbp.AuthorID,
		CreatedAt:   dbp.CreatedAt,
		UpdatedAt:   dbp.UpdatedAt,
	}

	if dbp.Author != nil {
		p.Author = &Author{
			ID:        dbp.Author.ID,
			Name:      dbp.Author.Name,
			Email:     dbp.Author.Email,
			CreatedAt: dbp.Author.CreatedAt,
		}
	}

	return p
}
