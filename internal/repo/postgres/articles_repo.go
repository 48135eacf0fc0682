package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/inkhub/internal/domain/article"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const articleColumns = `id, title, slug, excerpt, content, featured_image, tags, status, author_id, views, published_at, created_at, updated_at`

type ArticlesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewArticlesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ArticlesRepo {
	return &ArticlesRepo{pool: pool, prom: prom}
}

func (r *ArticlesRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func scanArticle(row pgx.Row) (article.Article, error) {
	var a article.Article
	var status string

	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content,
		&a.FeaturedImage, &a.Tags, &status, &a.AuthorID, &a.Views,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return article.Article{}, article.ErrNotFound
		}
		return article.Article{}, err
	}

	a.Status = article.Status(status)

	if a.Tags == nil {
		a.Tags = []string{}
	}

	return a, nil
}

func (r *ArticlesRepo) Create(ctx context.Context, a article.Article) (article.Article, error) {
	err := r.observe("articles.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO articles (id, title, slug, excerpt, content, featured_image, tags, status, author_id, views, published_at, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			a.ID, a.Title, a.Slug, a.Excerpt, a.Content, a.FeaturedImage, a.Tags,
			string(a.Status), a.AuthorID, a.Views, a.PublishedAt, a.CreatedAt, a.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return article.Article{}, article.ErrSlugTaken
		}
		return article.Article{}, err
	}

	return a, nil
}

func (r *ArticlesRepo) GetByID(ctx context.Context, id string) (article.Article, error) {
	var a article.Article
	var err error

	err = r.observe("articles.get_by_id", func() error {
		a, err = scanArticle(r.pool.QueryRow(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
		return err
	})

	return a, err
}

func (r *ArticlesRepo) GetBySlug(ctx context.Context, slug string) (article.Article, error) {
	var a article.Article
	var err error

	err = r.observe("articles.get_by_slug", func() error {
		a, err = scanArticle(r.pool.QueryRow(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE slug = $1`, slug))
		return err
	})

	return a, err
}

func (r *ArticlesRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.observe("articles.slug_exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)`, slug).Scan(&exists)
	})
	return exists, err
}

func (r *ArticlesRepo) List(ctx context.Context, filter article.ListFilter) ([]article.Article, int, error) {
	baseQuery := `SELECT ` + articleColumns + `, COUNT(*) OVER() AS total FROM articles`

	var conds []string
	var args []interface{}

	argsPosition := 1

	// filtered conditional checks.
	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*filter.Status))
		argsPosition++
	}

	if filter.AuthorID != nil {
		conds = append(conds, fmt.Sprintf("author_id = $%d", argsPosition))
		args = append(args, *filter.AuthorID)
		argsPosition++
	}

	if filter.Tag != nil {
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", argsPosition))
		args = append(args, *filter.Tag)
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR excerpt ILIKE $%d OR content ILIKE $%d)", argsPosition, argsPosition, argsPosition))
		args = append(args, "%"+*filter.Query+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var out []article.Article
	total := 0

	err := r.observe("articles.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]article.Article, 0, filter.Limit)

		for rows.Next() {
			var a article.Article
			var status string
			var t int

			err = rows.Scan(
				&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content,
				&a.FeaturedImage, &a.Tags, &status, &a.AuthorID, &a.Views,
				&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt, &t,
			)

			if err != nil {
				return err
			}

			a.Status = article.Status(status)
			if a.Tags == nil {
				a.Tags = []string{}
			}

			total = t
			out = append(out, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *ArticlesRepo) Update(ctx context.Context, id string, req article.UpdateRequest) (article.Article, error) {
	var a article.Article
	var err error

	var featured *string
	if req.FeaturedImage != "" {
		featured = &req.FeaturedImage
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	err = r.observe("articles.update", func() error {
		a, err = scanArticle(r.pool.QueryRow(ctx,
			`UPDATE articles
			 SET title = $2,
			     excerpt = $3,
			     content = $4,
			     featured_image = $5,
			     tags = $6,
			     status = COALESCE(NULLIF($7, ''), status),
			     published_at = CASE WHEN $7 = 'PUBLISHED' AND published_at IS NULL THEN NOW() ELSE published_at END,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+articleColumns,
			id, req.Title, req.Excerpt, req.Content, featured, tags, string(req.Status),
		))
		return err
	})

	return a, err
}

func (r *ArticlesRepo) Delete(ctx context.Context, id string) error {
	return r.observe("articles.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return article.ErrNotFound
		}

		return nil
	})
}

// IncrementViews is fire-and-forget from the read path.
func (r *ArticlesRepo) IncrementViews(ctx context.Context, id string) error {
	return r.observe("articles.increment_views", func() error {
		_, err := r.pool.Exec(ctx, `UPDATE articles SET views = views + 1 WHERE id = $1`, id)
		return err
	})
}

func (r *ArticlesRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}

	err := r.observe("articles.count_by_status", func() error {
		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM articles GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			out[status] = n
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
