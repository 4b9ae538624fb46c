package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the users table row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	Name         *string   `bun:"name"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Post is the posts table row. The author_id foreign key carries
// ON DELETE CASCADE so account deletion removes the user's posts.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Content     string    `bun:"content,notnull"`
	Description *string   `bun:"description"`
	AuthorID    int64     `bun:"author_id,notnull"`
	Author      *User     `bun:"rel:belongs-to,join:author_id=id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
