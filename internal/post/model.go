package post

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("post not found")

// Author is the post's embedded author summary.
type Author struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description *string   `json:"description"`
	AuthorID    int64     `json:"authorId"`
	Author      *Author   `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Update describes a partial post update. Nil fields are left untouched.
// The author reference is immutable and never part of an update.
type Update struct {
	Title   *string
	Content *string
	// Description distinguishes "not submitted" (SetDescription false) from
	// "submitted empty" (SetDescription true, Description nil), which clears
	// the field.
	Description    *string
	SetDescription bool
}
