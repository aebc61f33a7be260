package idcard

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const (
	qrPayloadPrefix = "darasa:student:"
	qrSize          = 256
)

type (
	Repository interface {
		CreateOrder(ctx context.Context, o Order) (Order, error)
		GetOrder(ctx context.Context, id string) (Order, error)
		QueryOrders(ctx context.Context, filter QueryFilter) ([]Order, error)
		UpdateOrder(ctx context.Context, o Order) (Order, error)
	}

	Service interface {
		Create(ctx context.Context, by user.User, no NewOrder) (Order, error)
		Get(ctx context.Context, viewer user.User, id string) (Order, error)
		// Query lists the orders a parent placed, or the orders of the institutes of an admin.
		Query(ctx context.Context, viewer user.User, status Status) ([]Order, error)
		UpdateStatus(ctx context.Context, by user.User, id string, su StatusUpdate) (Order, error)
		// QRCode returns the PNG QR code printed on the card of the order's student.
		QRCode(ctx context.Context, viewer user.User, id string) ([]byte, error)
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &service{repo: repo}
}

// QRPayload is the content of the QR code of a student's card.
func QRPayload(studentID string) string {
	return qrPayloadPrefix + studentID
}

func canView(viewer user.User, o Order) bool {
	if viewer.IsAdmin() {
		return viewer.BelongsTo(o.InstituteID)
	}
	return viewer.IsParent() && (o.OrderedBy == viewer.ID || viewer.IsGuardianOf(o.StudentID))
}

func (svc *service) Create(ctx context.Context, by user.User, no NewOrder) (Order, error) {
	if err := no.Validate(); err != nil {
		return Order{}, err
	}
	switch {
	case by.IsParent() && by.IsGuardianOf(no.StudentID):
	case by.IsAdmin() && by.BelongsTo(no.InstituteID):
	default:
		return Order{}, core.ErrForbidden
	}

	now := core.NowFunc().UTC()
	return svc.repo.CreateOrder(ctx, Order{
		ID:              uuid.New().String(),
		StudentID:       no.StudentID,
		InstituteID:     no.InstituteID,
		OrderedBy:       by.ID,
		CardType:        no.CardType,
		Quantity:        no.Quantity,
		Status:          StatusPending,
		DeliveryAddress: no.DeliveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *service) Get(ctx context.Context, viewer user.User, id string) (Order, error) {
	o, err := svc.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !canView(viewer, o) {
		return Order{}, core.ErrNotFound
	}
	return o, nil
}

func (svc *service) Query(ctx context.Context, viewer user.User, status Status) ([]Order, error) {
	filter := QueryFilter{Status: status}
	switch {
	case viewer.Role == user.RoleSystemAdmin:
	case viewer.IsAdmin():
		if len(viewer.InstituteIDs) == 0 {
			return []Order{}, nil
		}
		filter.InstituteIDs = viewer.InstituteIDs
	case viewer.IsParent():
		filter.OrderedBy = viewer.ID
	default:
		return nil, core.ErrForbidden
	}

	orders, err := svc.repo.QueryOrders(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. Admins drive the order; parents may only cancel a pending order.
func (svc *service) UpdateStatus(ctx context.Context, by user.User, id string, su StatusUpdate) (Order, error) {
	if err := core.Validate.Struct(su); err != nil {
		return Order{}, err
	}
	o, err := svc.Get(ctx, by, id)
	if err != nil {
		return Order{}, err
	}
	if !by.IsAdmin() && !(o.Status == StatusPending && su.Status == StatusCancelled) {
		return Order{}, core.ErrForbidden
	}
	if !o.Status.CanTransition(su.Status) {
		return Order{}, ErrInvalidTransition
	}

	o.Status = su.Status
	o.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateOrder(ctx, o)
}

func (svc *service) QRCode(ctx context.Context, viewer user.User, id string) ([]byte, error) {
	o, err := svc.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(QRPayload(o.StudentID), qrcode.Medium, qrSize)
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR code")
	}
	return png, nil
}
