package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/inkhub/internal/domain/comment"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func (r *CommentsRepo) Create(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	err := r.observe("comments.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO comments (id, article_id, author_id, body, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			c.ID, c.ArticleID, c.AuthorID, c.Body, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	var c comment.Comment

	err := r.observe("comments.get_by_id", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT id, article_id, author_id, body, created_at, updated_at
			 FROM comments WHERE id = $1`, id,
		).Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return comment.ErrNotFound
			}
			return err
		}
		return nil
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) ListByArticle(ctx context.Context, articleID string, limit, offset int) ([]comment.Comment, int, error) {
	var out []comment.Comment
	total := 0

	err := r.observe("comments.list_by_article", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, article_id, author_id, body, created_at, updated_at, COUNT(*) OVER() AS total
			 FROM comments
			 WHERE article_id = $1
			 ORDER BY created_at ASC, id ASC
			 LIMIT $2 OFFSET $3`,
			articleID, limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]comment.Comment, 0, limit)

		for rows.Next() {
			var c comment.Comment
			var t int

			if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt, &t); err != nil {
				return err
			}

			total = t
			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *CommentsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("comments.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return comment.ErrNotFound
		}

		return nil
	})
}

func (r *CommentsRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.observe("comments.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	})
	return n, err
}
