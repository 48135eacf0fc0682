package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/article"
	"github.com/geocoder89/inkhub/internal/domain/comment"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type CommentsRepo interface {
	Create(ctx context.Context, c comment.Comment) (comment.Comment, error)
	GetByID(ctx context.Context, id string) (comment.Comment, error)
	ListByArticle(ctx context.Context, articleID string, limit, offset int) ([]comment.Comment, int, error)
	Delete(ctx context.Context, id string) error
}

type CommentArticleReader interface {
	GetBySlug(ctx context.Context, slug string) (article.Article, error)
}

type CommentsHandler struct {
	repo     CommentsRepo
	articles CommentArticleReader
}

func NewCommentsHandler(repo CommentsRepo, articles CommentArticleReader) *CommentsHandler {
	return &CommentsHandler{repo: repo, articles: articles}
}

// GET /articles/:slug/comments
func (h *CommentsHandler) ListByArticle(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 50)
	if limit < 1 || limit > 200 {
		RespondBadRequest(ctx, "limit must be between 1 and 200", nil)
		return
	}
	offset := parseIntDefault(ctx.Query("offset"), 0)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	a, err := h.articles.GetBySlug(cctx, ctx.Param("slug"))
	if err != nil {
		RespondNotFound(ctx, "Article not found")
		return
	}

	items, total, err := h.repo.ListByArticle(cctx, a.ID, limit, offset)
	if err != nil {
		RespondInternal(ctx, "Could not list comments")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// POST /articles/:slug/comments (authenticated)
func (h *CommentsHandler) Create(ctx *gin.Context) {
	authorID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || authorID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req comment.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// comments only land on published articles
	a, err := h.articles.GetBySlug(cctx, ctx.Param("slug"))
	if err != nil || a.Status != article.StatusPublished {
		RespondNotFound(ctx, "Article not found")
		return
	}

	req.ArticleID = a.ID
	req.AuthorID = authorID

	c, err := h.repo.Create(cctx, comment.NewFromCreateRequest(req))
	if err != nil {
		RespondInternal(ctx, "Could not create comment")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

// DELETE /comments/:id (author or admin)
func (h *CommentsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	callerID, _ := middlewares.UserIDFromContext(ctx)
	roleStr, _ := middlewares.RoleFromContext(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, "Comment not found")
			return
		}
		RespondInternal(ctx, "Could not delete comment")
		return
	}

	if c.AuthorID != callerID && !user.Role(roleStr).Satisfies(user.RoleAdmin) {
		RespondForbidden(ctx, "forbidden", "You may only delete your own comments")
		return
	}

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, "Comment not found")
			return
		}
		RespondInternal(ctx, "Could not delete comment")
		return
	}

	ctx.Status(http.StatusNoContent)
}
