package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) query(keep func(exam.Result) bool) []exam.Result {
	tbl := repo.db.exam
	tbl.RLock()
	results := make([]exam.Result, 0)
	for _, r := range tbl.table {
		if keep(*r) {
			results = append(results, *r)
		}
	}
	tbl.RUnlock()

	for i := range results {
		results[i].StudentName = repo.db.userName(results[i].StudentID)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.SubjectName < b.SubjectName
	})
	return results
}

func (repo *examRepository) QueryExamResults(_ context.Context, examID string) ([]exam.Result, error) {
	return repo.query(func(r exam.Result) bool { return r.ExamID == examID }), nil
}

func (repo *examRepository) QueryStudentResults(_ context.Context, studentID string) ([]exam.Result, error) {
	return repo.query(func(r exam.Result) bool { return r.StudentID == studentID }), nil
}

func (repo *examRepository) SaveResult(_ context.Context, r exam.Result) (exam.Result, error) {
	tbl := repo.db.exam
	tbl.Lock()
	defer tbl.Unlock()

	for _, existing := range tbl.table {
		if existing.ExamID == r.ExamID && existing.StudentID == r.StudentID && existing.SubjectID == r.SubjectID {
			r.ID = existing.ID
			break
		}
	}
	tbl.table[r.ID] = &r
	return r, nil
}
