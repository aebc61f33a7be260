package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/idcard"
)

type idcardRepository struct {
	db *idcardTable
}

var _ idcard.Repository = (*idcardRepository)(nil) // interface compliance check

func NewIDCardRepository(db *DB) idcard.Repository {
	return &idcardRepository{db: db.idcard}
}

func (repo *idcardRepository) CreateOrder(_ context.Context, o idcard.Order) (idcard.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[o.ID] = &o
	return o, nil
}

func (repo *idcardRepository) GetOrder(_ context.Context, id string) (idcard.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if o, ok := repo.db.table[id]; ok {
		return *o, nil
	}
	return idcard.Order{}, core.ErrNotFound
}

func (repo *idcardRepository) QueryOrders(_ context.Context, filter idcard.QueryFilter) ([]idcard.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := make([]idcard.Order, 0)
	for _, o := range repo.db.table {
		if filter.InstituteIDs != nil && !core.StringInSlice(o.InstituteID, filter.InstituteIDs) {
			continue
		}
		if filter.OrderedBy != "" && o.OrderedBy != filter.OrderedBy {
			continue
		}
		if filter.StudentID != "" && o.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orders = append(orders, *o)
	}
	// newest first
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (repo *idcardRepository) UpdateOrder(_ context.Context, o idcard.Order) (idcard.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[o.ID]; !ok {
		return idcard.Order{}, core.ErrNotFound
	}
	repo.db.table[o.ID] = &o
	return o, nil
}
