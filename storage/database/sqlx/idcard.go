package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/idcard"
)

type idcardRepository struct {
	db *sqlx.DB
}

var _ idcard.Repository = (*idcardRepository)(nil) // interface compliance check

func NewIDCardRepository(db *sqlx.DB) idcard.Repository {
	return &idcardRepository{db: db}
}

type orderRow struct {
	ID              string    `db:"id"`
	StudentID       string    `db:"student_id"`
	InstituteID     string    `db:"institute_id"`
	OrderedBy       string    `db:"ordered_by"`
	CardType        string    `db:"card_type"`
	Quantity        int       `db:"quantity"`
	Status          string    `db:"status"`
	DeliveryAddress string    `db:"delivery_address"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const orderColumns = `id, student_id, institute_id, ordered_by, card_type, quantity, status, delivery_address, created_at, updated_at`

func toOrderRow(o idcard.Order) orderRow {
	return orderRow{
		ID:              o.ID,
		StudentID:       o.StudentID,
		InstituteID:     o.InstituteID,
		OrderedBy:       o.OrderedBy,
		CardType:        string(o.CardType),
		Quantity:        o.Quantity,
		Status:          string(o.Status),
		DeliveryAddress: o.DeliveryAddress,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (row orderRow) toOrder() idcard.Order {
	return idcard.Order{
		ID:              row.ID,
		StudentID:       row.StudentID,
		InstituteID:     row.InstituteID,
		OrderedBy:       row.OrderedBy,
		CardType:        idcard.CardType(row.CardType),
		Quantity:        row.Quantity,
		Status:          idcard.Status(row.Status),
		DeliveryAddress: row.DeliveryAddress,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo *idcardRepository) CreateOrder(ctx context.Context, o idcard.Order) (idcard.Order, error) {
	q := `INSERT INTO idcard_order (` + orderColumns + `) VALUES
		(:id, :student_id, :institute_id, :ordered_by, :card_type, :quantity, :status, :delivery_address, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toOrderRow(o)); err != nil {
		return idcard.Order{}, trapFKErr(err, "inserting order")
	}
	return o, nil
}

func (repo *idcardRepository) GetOrder(ctx context.Context, id string) (idcard.Order, error) {
	if !isUUID(id) {
		return idcard.Order{}, core.ErrNotFound
	}
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM idcard_order WHERE id = $1`, id); err != nil {
		return idcard.Order{}, trapNoRowsErr(err, "finding order")
	}
	return row.toOrder(), nil
}

func (repo *idcardRepository) QueryOrders(ctx context.Context, filter idcard.QueryFilter) ([]idcard.Order, error) {
	w := new(where)
	if filter.InstituteIDs != nil {
		w.add("institute_id = ANY(?)", pq.Array(filter.InstituteIDs))
	}
	if filter.OrderedBy != "" {
		w.add("ordered_by = ?", filter.OrderedBy)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	var rows []orderRow
	q := `SELECT ` + orderColumns + ` FROM idcard_order` + w.String() + ` ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	orders := make([]idcard.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toOrder())
	}
	return orders, nil
}

func (repo *idcardRepository) UpdateOrder(ctx context.Context, o idcard.Order) (idcard.Order, error) {
	q := `UPDATE idcard_order SET status = :status, quantity = :quantity, delivery_address = :delivery_address,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toOrderRow(o))
	if err != nil {
		return idcard.Order{}, errors.Wrap(err, "updating order")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return idcard.Order{}, core.ErrNotFound
	}
	return o, nil
}
