package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *sqlx.DB) homework.Repository {
	return &homeworkRepository{db: db}
}

type referenceRow struct {
	ID         string    `db:"id"`
	HomeworkID string    `db:"homework_id"`
	Title      string    `db:"title"`
	URL        string    `db:"url"`
	Kind       string    `db:"kind"`
	AddedBy    string    `db:"added_by"`
	CreatedAt  time.Time `db:"created_at"`
}

func (repo *homeworkRepository) QueryReferences(ctx context.Context, homeworkID string) ([]homework.Reference, error) {
	if !isUUID(homeworkID) {
		return []homework.Reference{}, nil
	}
	var rows []referenceRow
	q := `SELECT id, homework_id, title, url, kind, added_by, created_at
		FROM homework_reference WHERE homework_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, homeworkID); err != nil {
		return nil, errors.Wrap(err, "querying references")
	}
	refs := make([]homework.Reference, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, homework.Reference{
			ID:         row.ID,
			HomeworkID: row.HomeworkID,
			Title:      row.Title,
			URL:        row.URL,
			Kind:       homework.Kind(row.Kind),
			AddedBy:    row.AddedBy,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return refs, nil
}

func (repo *homeworkRepository) CreateReference(ctx context.Context, ref homework.Reference) (homework.Reference, error) {
	q := `INSERT INTO homework_reference (id, homework_id, title, url, kind, added_by, created_at)
		VALUES (:id, :homework_id, :title, :url, :kind, :added_by, :created_at)`
	row := referenceRow{
		ID:         ref.ID,
		HomeworkID: ref.HomeworkID,
		Title:      ref.Title,
		URL:        ref.URL,
		Kind:       string(ref.Kind),
		AddedBy:    ref.AddedBy,
		CreatedAt:  ref.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return homework.Reference{}, errors.Wrap(err, "inserting reference")
	}
	return ref, nil
}
