package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// orderable user columns
var userOrderings = map[string]bool{
	"name": true, "username": true, "email": true, "role": true, "created_at": true, "last_login": true,
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	FirstLogin   bool        `db:"first_login"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

const userColumns = `id, name, username, email, role, is_active, first_login, password_hash, created_at, updated_at, last_login`

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Role:         usr.Role.String(),
		IsActive:     usr.IsActive,
		FirstLogin:   usr.FirstLogin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Role:         user.Role(row.Role),
		IsActive:     row.IsActive,
		FirstLogin:   row.FirstLogin,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

// loadRelations fills the ChildIDs and InstituteIDs of users.
func (repo *userRepository) loadRelations(ctx context.Context, users []user.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, 0, len(users))
	idx := make(map[string]int, len(users))
	for i, usr := range users {
		ids = append(ids, usr.ID)
		idx[usr.ID] = i
	}

	var links []struct {
		OwnerID string `db:"owner_id"`
		OtherID string `db:"other_id"`
		Kind    string `db:"kind"`
	}
	q := `SELECT parent_id AS owner_id, student_id AS other_id, 'child' AS kind FROM guardian WHERE parent_id = ANY($1)
		UNION ALL
		SELECT user_id, institute_id, 'institute' FROM membership WHERE user_id = ANY($1)`
	if err := repo.db.SelectContext(ctx, &links, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "loading user relations")
	}
	for _, link := range links {
		usr := &users[idx[link.OwnerID]]
		if link.Kind == "child" {
			usr.ChildIDs = append(usr.ChildIDs, link.OtherID)
		} else {
			usr.InstituteIDs = append(usr.InstituteIDs, link.OtherID)
		}
	}
	return nil
}

func saveRelations(ctx context.Context, tx *sqlx.Tx, usr user.User) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM guardian WHERE parent_id = $1`, usr.ID); err != nil {
		return errors.Wrap(err, "clearing children")
	}
	for _, childID := range usr.ChildIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO guardian (parent_id, student_id) VALUES ($1, $2)`, usr.ID, childID); err != nil {
			return errors.Wrap(err, "saving children")
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM membership WHERE user_id = $1`, usr.ID); err != nil {
		return errors.Wrap(err, "clearing memberships")
	}
	for _, instID := range usr.InstituteIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO membership (user_id, institute_id) VALUES ($1, $2)`, usr.ID, instID); err != nil {
			return errors.Wrap(err, "saving memberships")
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	w := new(where)
	w.add("(username = ? OR email = ?)", null.NewString(username, username != ""), null.NewString(email, email != ""))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("NOT (id = ANY(?))", pq.Array(ids))
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM "user"`+w.String()+` LIMIT 2`, w.args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO "user" (` + userColumns + `) VALUES
			(:id, :name, :username, :email, :role, :is_active, :first_login, :password_hash, :created_at, :updated_at, :last_login)`
		if _, err := tx.NamedExecContext(ctx, q, toUserRow(usr)); err != nil {
			return errors.Wrap(err, "inserting user")
		}
		return saveRelations(ctx, tx, usr)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	w := new(where)
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, core.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, core.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user"`+w.String()+` LIMIT 1`, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user")
	}
	users := []user.User{row.toUser()}
	if err := repo.loadRelations(ctx, users); err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	w := new(where)
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, role.String())
			}
			w.add("role = ANY(?)", pq.Array(roles))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	orderList := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if userOrderings[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	orderList = append(orderList, "created_at ASC")

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "user"` + w.String() + ` ORDER BY ` + strings.Join(orderList, ", ")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	if err := repo.loadRelations(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE "user" SET name = :name, username = :username, email = :email, role = :role,
			is_active = :is_active, first_login = :first_login, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
			WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, q, toUserRow(usr))
		if err != nil {
			return errors.Wrap(err, "updating user")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.ErrNotFound
		}
		return saveRelations(ctx, tx, usr)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(valid)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
