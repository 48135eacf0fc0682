package article

import (
	"errors"
	"time"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound  = errors.New("article not found")
	ErrSlugTaken = errors.New("slug already exists")
)

type Article struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Content       string     `json:"content"`
	FeaturedImage *string    `json:"featuredImage,omitempty"`
	Tags          []string   `json:"tags"`
	Status        Status     `json:"status"`
	AuthorID      string     `json:"authorId"`
	Views         int        `json:"views"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Status   *Status
	AuthorID *string
	Tag      *string
	Query    *string // matches title, excerpt or content
	Limit    int
	Offset   int
}

type CreateRequest struct {
	Title         string   `json:"title" binding:"required,min=1,max=200"`
	// Slug is optional; when empty it is minted from the title.
	Slug          string   `json:"slug" binding:"omitempty,min=1,max=200"`
	Excerpt       string   `json:"excerpt" binding:"omitempty,max=500"`
	Content       string   `json:"content" binding:"required"`
	FeaturedImage string   `json:"featuredImage" binding:"omitempty,url"`
	Tags          []string `json:"tags" binding:"omitempty,dive,min=1,max=50"`
	Status        Status   `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
}

// a full update payload, might switch to a patch which optionally provides means for partial updates.
type UpdateRequest struct {
	Title         string   `json:"title" binding:"required,min=1,max=200"`
	Excerpt       string   `json:"excerpt" binding:"omitempty,max=500"`
	Content       string   `json:"content" binding:"required"`
	FeaturedImage string   `json:"featuredImage" binding:"omitempty,url"`
	Tags          []string `json:"tags" binding:"omitempty,dive,min=1,max=50"`
	Status        Status   `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
}
