package user

import (
	"context"

	"github.com/trezcool/darasa/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) Create(ctx context.Context, nu NewUser) (User, error) {
	firstLogin := nu.FirstLogin
	nu.FirstLogin = false // skip the async welcome email
	usr, err := svc.service.Create(ctx, nu)
	if err != nil || !firstLogin {
		return usr, err
	}

	usr.FirstLogin = true
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return usr, err
	}
	if usr.Email != "" {
		svc.sendWelcomeMail(usr)
	}
	return usr, nil
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return core.ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
