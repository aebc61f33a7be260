package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkRepository struct {
	db *homeworkTable
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *DB) homework.Repository {
	return &homeworkRepository{db: db.homework}
}

func (repo *homeworkRepository) QueryReferences(_ context.Context, homeworkID string) ([]homework.Reference, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	refs := make([]homework.Reference, 0)
	for _, ref := range repo.db.table {
		if ref.HomeworkID == homeworkID {
			refs = append(refs, *ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].CreatedAt.Before(refs[j].CreatedAt) })
	return refs, nil
}

func (repo *homeworkRepository) CreateReference(_ context.Context, ref homework.Reference) (homework.Reference, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[ref.ID] = &ref
	return ref, nil
}
