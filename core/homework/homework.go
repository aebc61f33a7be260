// Package homework manages the reference links attached to homework.
package homework

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Kind string

const (
	KindLink     Kind = "link"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

type Reference struct {
	ID         string    `json:"id"`
	HomeworkID string    `json:"homework_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Kind       Kind      `json:"kind"`
	AddedBy    string    `json:"added_by"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewReference struct {
	Title string `json:"title" validate:"required,max=255"`
	URL   string `json:"url" validate:"required,max=2048,weburl"`
	Kind  Kind   `json:"kind" validate:"omitempty,oneof=link video document"`
}

func (nr *NewReference) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.URL = core.CleanString(nr.URL)
	nr.Kind = Kind(core.CleanString(string(nr.Kind), true /* lower */))
	if nr.Kind == "" {
		nr.Kind = KindLink
	}
	return core.Validate.Struct(nr)
}

type (
	Repository interface {
		QueryReferences(ctx context.Context, homeworkID string) ([]Reference, error)
		CreateReference(ctx context.Context, ref Reference) (Reference, error)
	}

	Service interface {
		References(ctx context.Context, homeworkID string) ([]Reference, error)
		AddReference(ctx context.Context, author user.User, homeworkID string, nr NewReference) (Reference, error)
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &service{repo: repo}
}

func (svc *service) References(ctx context.Context, homeworkID string) ([]Reference, error) {
	refs, err := svc.repo.QueryReferences(ctx, homeworkID)
	if err != nil {
		return nil, errors.Wrap(err, "querying references")
	}
	if refs == nil {
		refs = []Reference{}
	}
	return refs, nil
}

// AddReference attaches a link to a homework. Only staff can add references.
func (svc *service) AddReference(ctx context.Context, author user.User, homeworkID string, nr NewReference) (Reference, error) {
	if !author.IsStaff() {
		return Reference{}, core.ErrForbidden
	}
	if err := nr.Validate(); err != nil {
		return Reference{}, err
	}
	return svc.repo.CreateReference(ctx, Reference{
		ID:         uuid.New().String(),
		HomeworkID: homeworkID,
		Title:      nr.Title,
		URL:        nr.URL,
		Kind:       nr.Kind,
		AddedBy:    author.ID,
		CreatedAt:  core.NowFunc().UTC(),
	})
}
