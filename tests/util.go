// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
)

// Password satisfies the password policy.
const Password = "Pa$$w0rd!x"

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), &core.Config{Env: "TEST", TestMode: true})
}

// UserOpts customizes the users made by CreateUser.
type UserOpts struct {
	Email        string
	Inactive     bool
	FirstLogin   bool
	ChildIDs     []string
	InstituteIDs []string
	CreatedAt    time.Time
}

func CreateUser(t *testing.T, repo user.Repository, name, uname string, role user.Role, opts ...UserOpts) user.User {
	t.Helper()

	var opt UserOpts
	if len(opts) > 0 {
		opt = opts[0]
	}
	tstamp := time.Now().UTC()
	if !opt.CreatedAt.IsZero() {
		tstamp = opt.CreatedAt.UTC()
	}
	usr := user.User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     uname,
		Email:        opt.Email,
		Role:         role,
		IsActive:     !opt.Inactive,
		FirstLogin:   opt.FirstLogin,
		ChildIDs:     opt.ChildIDs,
		InstituteIDs: opt.InstituteIDs,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// School is a small roster: one institute with one class offering one subject.
type School struct {
	Institute roster.Institute
	Class     roster.Class
	Subject   roster.Subject
}

func CreateSchool(t *testing.T, repo roster.Repository) School {
	t.Helper()
	ctx := context.Background()

	inst, err := repo.CreateInstitute(ctx, roster.Institute{ID: uuid.New().String(), Name: "Lycée Wima"})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	class, err := repo.CreateClass(ctx, roster.Class{ID: uuid.New().String(), InstituteID: inst.ID, Name: "6A", Grade: 6})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	subj, err := repo.CreateSubject(ctx, roster.Subject{ID: uuid.New().String(), InstituteID: inst.ID, Code: "MATH", Name: "Mathematics"})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	if err := repo.AddClassSubject(ctx, class.ID, subj.ID); err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return School{Institute: inst, Class: class, Subject: subj}
}

// FreezeTime sets core.NowFunc to now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}
