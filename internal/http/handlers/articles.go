package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/cache"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/article"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ArticlesRepo interface {
	Create(ctx context.Context, a article.Article) (article.Article, error)
	GetByID(ctx context.Context, id string) (article.Article, error)
	GetBySlug(ctx context.Context, slug string) (article.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter article.ListFilter) ([]article.Article, int, error)
	Update(ctx context.Context, id string, req article.UpdateRequest) (article.Article, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

type ArticlesHandler struct {
	repo      ArticlesRepo
	listCache *cache.Cache
}

func NewArticlesHandler(repo ArticlesRepo, listCache *cache.Cache) *ArticlesHandler {
	return &ArticlesHandler{repo: repo, listCache: listCache}
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}

	return n
}

// how many numbered slug candidates to try before giving up
const maxSlugAttempts = 50

// mintSlug finds a free slug: the base first, then base-1, base-2 and so
// on. The unique index still backs this up for the race window.
func (h *ArticlesHandler) mintSlug(ctx context.Context, base string) (string, error) {
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := utils.SlugCandidate(base, n)

		exists, err := h.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", article.ErrSlugTaken
}

// POST /articles (editor+)
func (h *ArticlesHandler) Create(ctx *gin.Context) {
	authorID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || authorID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req article.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	base := req.Slug
	if base == "" {
		base = utils.Slugify(req.Title)
	}
	if base == "" {
		RespondBadRequest(ctx, "Title does not yield a usable slug", nil)
		return
	}

	slug, err := h.mintSlug(cctx, base)
	if err != nil {
		if errors.Is(err, article.ErrSlugTaken) {
			RespondConflict(ctx, "slug_taken", "Could not find a free slug for this title.")
			return
		}
		RespondInternal(ctx, "Could not create article")
		return
	}
	req.Slug = slug

	a, err := h.repo.Create(cctx, article.NewFromCreateRequest(req, authorID))

	if err != nil {
		if errors.Is(err, article.ErrSlugTaken) {
			// lost the race on the unique index
			RespondConflict(ctx, "slug_taken", "Slug is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create article")
		return
	}

	h.listCache.Clear()

	ctx.JSON(http.StatusCreated, a)
}

// GET /articles
//
// Anonymous callers only ever see published articles; editors may ask for
// drafts with ?status=DRAFT.
func (h *ArticlesHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}
	offset := parseIntDefault(ctx.Query("offset"), 0)

	filter := article.ListFilter{Limit: limit, Offset: offset}

	if tag := ctx.Query("tag"); tag != "" {
		filter.Tag = &tag
	}
	if q := ctx.Query("q"); q != "" {
		filter.Query = &q
	}
	if aid := ctx.Query("authorId"); aid != "" {
		if !utils.IsUUID(aid) {
			RespondBadRequest(ctx, "authorId must be a UUID", nil)
			return
		}
		filter.AuthorID = &aid
	}

	published := article.StatusPublished
	filter.Status = &published

	requestedStatus := article.Status(ctx.Query("status"))
	isEditor := false
	if roleStr, ok := middlewares.RoleFromContext(ctx); ok {
		isEditor = user.Role(roleStr).Satisfies(user.RoleEditor)
	}

	if requestedStatus != "" {
		if !requestedStatus.IsValid() {
			RespondBadRequest(ctx, "status must be DRAFT or PUBLISHED", nil)
			return
		}
		if requestedStatus != article.StatusPublished && !isEditor {
			RespondForbidden(ctx, "forbidden", "Only editors may list drafts")
			return
		}
		filter.Status = &requestedStatus
	}

	// cache only the anonymous published listing
	cacheable := !isEditor && *filter.Status == article.StatusPublished
	cacheKey := utils.BuildArticlesListCacheKey(limit, offset, filter.Tag, filter.Query)

	if cacheable {
		if v, ok := h.listCache.Get(cacheKey); ok {
			RespondJSONWithETag(ctx, http.StatusOK, v)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not list articles")
		return
	}

	resp := gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}

	if cacheable {
		h.listCache.Set(cacheKey, resp)
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

// GET /articles/:slug
func (h *ArticlesHandler) GetBySlug(ctx *gin.Context) {
	slug := ctx.Param("slug")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	a, err := h.repo.GetBySlug(cctx, slug)

	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not fetch article")
		return
	}

	if a.Status != article.StatusPublished {
		// drafts are invisible unless the caller may edit
		roleStr, _ := middlewares.RoleFromContext(ctx)
		if !user.Role(roleStr).Satisfies(user.RoleEditor) {
			RespondNotFound(ctx, "Article not found")
			return
		}
	} else {
		// fire-and-forget; a lost increment is fine
		_ = h.repo.IncrementViews(cctx, a.ID)
	}

	RespondJSONWithETag(ctx, http.StatusOK, a)
}

// resolveBySlug loads the article addressed in the URL. The slug is the
// public identifier everywhere, including the editor surface.
func (h *ArticlesHandler) resolveBySlug(ctx *gin.Context, cctx context.Context) (article.Article, bool) {
	slug := ctx.Param("slug")

	a, err := h.repo.GetBySlug(cctx, slug)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
		} else {
			RespondInternal(ctx, "Could not fetch article")
		}
		return article.Article{}, false
	}

	return a, true
}

// canModify enforces author-or-admin ownership on mutations: editors
// only touch their own articles, admins touch any.
func canModify(ctx *gin.Context, a article.Article) bool {
	roleStr, _ := middlewares.RoleFromContext(ctx)
	if user.Role(roleStr).Satisfies(user.RoleAdmin) {
		return true
	}

	callerID, _ := middlewares.UserIDFromContext(ctx)
	return callerID != "" && callerID == a.AuthorID
}

// PUT /articles/:slug (author or admin)
func (h *ArticlesHandler) Update(ctx *gin.Context) {
	var req article.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, ok := h.resolveBySlug(ctx, cctx)
	if !ok {
		return
	}

	if !canModify(ctx, a) {
		RespondForbidden(ctx, "forbidden", "You can only modify your own articles")
		return
	}

	updated, err := h.repo.Update(cctx, a.ID, req)

	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not update article")
		return
	}

	h.listCache.Clear()

	ctx.JSON(http.StatusOK, updated)
}

// DELETE /articles/:slug (author or admin)
func (h *ArticlesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, ok := h.resolveBySlug(ctx, cctx)
	if !ok {
		return
	}

	if !canModify(ctx, a) {
		RespondForbidden(ctx, "forbidden", "You can only modify your own articles")
		return
	}

	if err := h.repo.Delete(cctx, a.ID); err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not delete article")
		return
	}

	h.listCache.Clear()

	ctx.Status(http.StatusNoContent)
}

// GET /admin/articles
//
// The moderation listing sees every status unless ?status narrows it.
func (h *ArticlesHandler) AdminList(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}
	offset := parseIntDefault(ctx.Query("offset"), 0)

	filter := article.ListFilter{Limit: limit, Offset: offset}

	if s := article.Status(ctx.Query("status")); s != "" {
		if !s.IsValid() {
			RespondBadRequest(ctx, "status must be DRAFT or PUBLISHED", nil)
			return
		}
		filter.Status = &s
	}
	if q := ctx.Query("q"); q != "" {
		filter.Query = &q
	}
	if aid := ctx.Query("authorId"); aid != "" {
		if !utils.IsUUID(aid) {
			RespondBadRequest(ctx, "authorId must be a UUID", nil)
			return
		}
		filter.AuthorID = &aid
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not list articles")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// DELETE /admin/articles/:id
//
// Moderation removal addresses by id: the slug may have been reused by
// a newer article since the report came in.
func (h *ArticlesHandler) AdminDelete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "id must be a UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, article.ErrNotFound) {
			RespondNotFound(ctx, "Article not found")
			return
		}
		RespondInternal(ctx, "Could not delete article")
		return
	}

	h.listCache.Clear()

	ctx.Status(http.StatusNoContent)
}
