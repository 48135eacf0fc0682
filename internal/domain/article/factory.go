package article

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRequest, authorID string) Article {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	var featured *string
	if req.FeaturedImage != "" {
		featured = &req.FeaturedImage
	}

	var publishedAt *time.Time
	if status == StatusPublished {
		publishedAt = &now
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return Article{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Slug:          req.Slug,
		Excerpt:       req.Excerpt,
		Content:       req.Content,
		FeaturedImage: featured,
		Tags:          tags,
		Status:        status,
		AuthorID:      authorID,
		PublishedAt:   publishedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
