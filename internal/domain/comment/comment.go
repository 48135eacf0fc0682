package comment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("comment not found")

type CreateRequest struct {
	ArticleID string `json:"-"`
	AuthorID  string `json:"-"`
	Body      string `json:"body" binding:"required,min=1,max=2000"`
}

// A factory to build a Comment from the incoming DTO

func NewFromCreateRequest(req CreateRequest) Comment {
	now := time.Now().UTC()
	return Comment{
		ID:        uuid.NewString(),
		ArticleID: req.ArticleID,
		AuthorID:  req.AuthorID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
