package repository

import (
	"context"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// HistoryRepository stores the append-only audit trail. There is no update
// or delete: entries are written once and kept forever.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByResource(ctx context.Context, resourceType domain.ResourceType, resourceID int64) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	db DBTX
}

// NewHistoryRepository instantiates repository.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO history (resource_type, resource_id, change_kind, changed_by_id, snapshot)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, recorded_at`
	return r.db.QueryRow(ctx, query,
		entry.ResourceType,
		entry.ResourceID,
		entry.ChangeKind,
		entry.ChangedByID,
		entry.Snapshot,
	).Scan(&entry.ID, &entry.RecordedAt)
}

func (r *historyRepository) ListByResource(ctx context.Context, resourceType domain.ResourceType, resourceID int64) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, resource_type, resource_id, change_kind, changed_by_id, snapshot, recorded_at
        FROM history WHERE resource_type=$1 AND resource_id=$2
        ORDER BY recorded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.ChangeKind,
			&entry.ChangedByID,
			&entry.Snapshot,
			&entry.RecordedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
