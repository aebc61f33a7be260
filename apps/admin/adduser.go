package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(name, uname, email string, role user.Role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := core.NowFunc().UTC()

	login := uname
	if login == "" {
		login = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: login})
	isNew := false
	if err != nil {
		if errors.Cause(err) != core.ErrNotFound {
			return err
		}
		isNew = true
		usr = user.User{ID: uuid.New().String(), CreatedAt: now}
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = login
	}
	if uname != "" {
		usr.Username = uname
	}
	if email != "" {
		usr.Email = email
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		if err := cli.usrRepo.CheckUniqueness(ctx, usr.Username, usr.Email); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	if err := cli.usrRepo.CheckUniqueness(ctx, usr.Username, usr.Email, usr); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
