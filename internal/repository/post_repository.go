package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// PostFilter captures list query parameters. Every field is optional;
// unknown query keys never reach this struct.
type PostFilter struct {
	ID      *int64
	Status  *domain.PostStatus
	OwnerID *int64
	Search  *string
	Limit   int
	Offset  int
}

// PostRepository encapsulates post persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	ListWithFilter(ctx context.Context, filter PostFilter) ([]domain.Post, error)
}

type postRepository struct {
	db DBTX
}

// NewPostRepository instantiates repository.
func NewPostRepository(db DBTX) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (name, description, status, owner_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		post.Name,
		post.Description,
		post.Status,
		post.OwnerID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	const query = `
        UPDATE posts SET name=$1, description=$2, status=$3, owner_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		post.Name,
		post.Description,
		post.Status,
		post.OwnerID,
		post.ID,
	).Scan(&post.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	const query = `
        SELECT id, name, description, status, owner_id, created_at, updated_at
        FROM posts WHERE id=$1`
	var post domain.Post
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID,
		&post.Name,
		&post.Description,
		&post.Status,
		&post.OwnerID,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListWithFilter(ctx context.Context, filter PostFilter) ([]domain.Post, error) {
	base := `SELECT id, name, description, status, owner_id, created_at, updated_at FROM posts`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ID != nil {
		args = append(args, *filter.ID)
		clauses = append(clauses, fmt.Sprintf("id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Descending creation time with an id tie-break keeps pagination stable.
	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	var result []domain.Post
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(
			&post.ID,
			&post.Name,
			&post.Description,
			&post.Status,
			&post.OwnerID,
			&post.CreatedAt,
			&post.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, rows.Err()
}
