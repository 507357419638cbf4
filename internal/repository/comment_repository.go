package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// CommentFilter captures comment list parameters. ParentOwnerID restricts the
// result to comments whose parent post belongs to that user; it is how
// non-staff visibility scoping reaches SQL.
type CommentFilter struct {
	PostID        *int64
	ParentOwnerID *int64
	Limit         int
	Offset        int
}

// CommentRepository encapsulates comment persistence.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListWithFilter(ctx context.Context, filter CommentFilter) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository instantiates repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (post_id, author_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		comment.PostID,
		comment.AuthorID,
		comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	const query = `
        UPDATE comments SET content=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, comment.Content, comment.ID).Scan(&comment.UpdatedAt)
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	const query = `
        SELECT id, post_id, author_id, content, created_at, updated_at
        FROM comments WHERE id=$1`
	var comment domain.Comment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListWithFilter(ctx context.Context, filter CommentFilter) ([]domain.Comment, error) {
	base := `SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, c.updated_at FROM comments c`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ParentOwnerID != nil {
		base += ` JOIN posts p ON p.id = c.post_id`
		args = append(args, *filter.ParentOwnerID)
		clauses = append(clauses, fmt.Sprintf("p.owner_id=$%d", len(args)))
	}
	if filter.PostID != nil {
		args = append(args, *filter.PostID)
		clauses = append(clauses, fmt.Sprintf("c.post_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY c.created_at ASC, c.id ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
