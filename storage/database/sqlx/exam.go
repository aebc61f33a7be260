package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/exam"
)

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{db: db}
}

type resultRow struct {
	ID          string          `db:"id"`
	ExamID      string          `db:"exam_id"`
	ExamName    string          `db:"exam_name"`
	StudentID   string          `db:"student_id"`
	StudentName string          `db:"student_name"`
	SubjectID   null.String     `db:"subject_id"`
	SubjectName string          `db:"subject_name"`
	Marks       decimal.Decimal `db:"marks"`
	MaxMarks    decimal.Decimal `db:"max_marks"`
	PublishedAt time.Time       `db:"published_at"`
}

func (row resultRow) toResult() exam.Result {
	return exam.Result{
		ID:          row.ID,
		ExamID:      row.ExamID,
		ExamName:    row.ExamName,
		StudentID:   row.StudentID,
		StudentName: row.StudentName,
		SubjectID:   row.SubjectID.String,
		SubjectName: row.SubjectName,
		Marks:       row.Marks,
		MaxMarks:    row.MaxMarks,
		PublishedAt: row.PublishedAt.UTC(),
	}
}

const resultQuery = `SELECT r.id, r.exam_id, r.exam_name, r.student_id, u.name AS student_name, r.subject_id,
	r.subject_name, r.marks, r.max_marks, r.published_at
	FROM exam_result r JOIN "user" u ON u.id = r.student_id`

func (repo *examRepository) query(ctx context.Context, cond, id string) ([]exam.Result, error) {
	if !isUUID(id) {
		return []exam.Result{}, nil
	}
	var rows []resultRow
	q := resultQuery + ` WHERE ` + cond + ` = $1 ORDER BY r.published_at, u.name, r.subject_name`
	if err := repo.db.SelectContext(ctx, &rows, q, id); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]exam.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toResult())
	}
	return results, nil
}

func (repo *examRepository) QueryExamResults(ctx context.Context, examID string) ([]exam.Result, error) {
	return repo.query(ctx, "r.exam_id", examID)
}

func (repo *examRepository) QueryStudentResults(ctx context.Context, studentID string) ([]exam.Result, error) {
	return repo.query(ctx, "r.student_id", studentID)
}

func (repo *examRepository) SaveResult(ctx context.Context, r exam.Result) (exam.Result, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var existingID string
		q := `SELECT id FROM exam_result
			WHERE exam_id = $1 AND student_id = $2 AND subject_id IS NOT DISTINCT FROM $3
			FOR UPDATE`
		err := tx.GetContext(ctx, &existingID, q, r.ExamID, r.StudentID, optString(r.SubjectID))
		if err != nil && errors.Cause(err) != sql.ErrNoRows {
			return errors.Wrap(err, "finding existing result")
		}

		if existingID != "" {
			r.ID = existingID
			q = `UPDATE exam_result SET exam_name = $2, subject_name = $3, marks = $4, max_marks = $5, published_at = $6
				WHERE id = $1`
			_, err = tx.ExecContext(ctx, q, r.ID, r.ExamName, r.SubjectName, r.Marks, r.MaxMarks, r.PublishedAt.UTC())
			return errors.Wrap(err, "updating result")
		}

		q = `INSERT INTO exam_result (id, exam_id, exam_name, student_id, subject_id, subject_name, marks, max_marks, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = tx.ExecContext(ctx, q, r.ID, r.ExamID, r.ExamName, r.StudentID, optString(r.SubjectID),
			r.SubjectName, r.Marks, r.MaxMarks, r.PublishedAt.UTC())
		return errors.Wrap(err, "inserting result")
	})
	if err != nil {
		return exam.Result{}, err
	}
	return r, nil
}
