package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	FirstLogin   bool      `json:"first_login"`
	ChildIDs     []string  `json:"child_ids,omitempty"`     // parents only
	InstituteIDs []string  `json:"institute_ids,omitempty"` // staff memberships
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role.IsAdmin() }
func (u User) IsStaff() bool   { return u.Role.IsStaff() }
func (u User) IsParent() bool  { return u.Role == RoleParent }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// IsGuardianOf reports whether u is a parent of the student identified by studentID.
func (u User) IsGuardianOf(studentID string) bool {
	return u.IsParent() && core.StringInSlice(studentID, u.ChildIDs)
}

// BelongsTo reports whether u may act inside the given institute.
// System admins belong to every institute.
func (u User) BelongsTo(instituteID string) bool {
	return u.Role == RoleSystemAdmin || core.StringInSlice(instituteID, u.InstituteIDs)
}

// EnrollmentFinder finds the institutes a student is enrolled in.
type EnrollmentFinder interface {
	StudentInstituteIDs(ctx context.Context, studentID string) ([]string, error)
}

// CanViewStudent reports whether u may read the records (attendance, results) of the given student:
// the student, their parents, system admins, and staff of an institute the student is enrolled in.
func (u User) CanViewStudent(ctx context.Context, studentID string, enrollments EnrollmentFinder) (bool, error) {
	switch {
	case u.ID == studentID, u.IsGuardianOf(studentID), u.Role == RoleSystemAdmin:
		return true, nil
	case !u.IsStaff() || len(u.InstituteIDs) == 0:
		return false, nil
	}

	instituteIDs, err := enrollments.StudentInstituteIDs(ctx, studentID)
	if err != nil {
		return false, errors.Wrap(err, "finding student institutes")
	}
	for _, id := range instituteIDs {
		if u.BelongsTo(id) {
			return true, nil
		}
	}
	return false, nil
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Role            Role     `json:"role" validate:"required,role"`
	ChildIDs        []string `json:"child_ids" validate:"omitempty,dive,uuid"`
	InstituteIDs    []string `json:"institute_ids" validate:"omitempty,dive,uuid"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	// FirstLogin is set for accounts created by admins: the user must choose their own password.
	FirstLogin bool `json:"-"`
}

func (nu *NewUser) Validate(ctx context.Context, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name         string   `json:"name"`
	Username     string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email        string   `json:"email" validate:"omitempty,email"`
	IsActive     *bool    `json:"is_active"`
	Role         Role     `json:"role" validate:"omitempty,role"`
	ChildIDs     []string `json:"child_ids" validate:"omitempty,dive,uuid"`
	InstituteIDs []string `json:"institute_ids" validate:"omitempty,dive,uuid"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

// FirstLoginSetup is submitted once by users created with a temporary password.
type FirstLoginSetup struct {
	Name            string `json:"name,omitempty"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`

	// user attributes checked by the password policy
	username string
	email    string
}

func (fl *FirstLoginSetup) Validate(usr User) error {
	fl.Name = core.CleanString(fl.Name)
	fl.username = usr.Username
	fl.email = usr.Email
	if fl.Name == "" {
		fl.Name = usr.Name
	}
	return core.Validate.Struct(fl)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type QueryFilter struct {
	Search      string
	Roles       []Role
	IsActive    *bool
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter identifies a single User; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Email           string
	UsernameOrEmail string
}
