package idcard

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	Status   string
	CardType string
)

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPrinted    Status = "printed"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"

	CardStandard CardType = "standard"
	CardPremium  CardType = "premium"
)

// ErrInvalidTransition is returned when an order cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid order status transition")

// transitions lists the statuses an order can move to from each status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPrinted, StatusCancelled},
	StatusPrinted:    {StatusDelivered},
}

// CanTransition reports whether an order in status s can move to next.
func (s Status) CanTransition(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Final reports whether no transition leaves s.
func (s Status) Final() bool { return len(transitions[s]) == 0 }

type Order struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	InstituteID     string    `json:"institute_id"`
	OrderedBy       string    `json:"ordered_by"`
	CardType        CardType  `json:"card_type"`
	Quantity        int       `json:"quantity"`
	Status          Status    `json:"status"`
	DeliveryAddress string    `json:"delivery_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

type NewOrder struct {
	StudentID       string   `json:"student_id" validate:"required,uuid"`
	InstituteID     string   `json:"institute_id" validate:"required,uuid"`
	CardType        CardType `json:"card_type" validate:"omitempty,oneof=standard premium"`
	Quantity        int      `json:"quantity" validate:"gte=0,lte=10"`
	DeliveryAddress string   `json:"delivery_address" validate:"max=500"`
}

func (no *NewOrder) Validate() error {
	no.CardType = CardType(core.CleanString(string(no.CardType), true /* lower */))
	if no.CardType == "" {
		no.CardType = CardStandard
	}
	if no.Quantity == 0 {
		no.Quantity = 1
	}
	no.DeliveryAddress = core.CleanString(no.DeliveryAddress)
	return core.Validate.Struct(no)
}

type StatusUpdate struct {
	Status Status `json:"status" validate:"required,oneof=pending processing printed delivered cancelled"`
}

// QueryFilter narrows the listed orders; empty fields are ignored.
type QueryFilter struct {
	InstituteIDs []string
	OrderedBy    string
	StudentID    string
	Status       Status
}
