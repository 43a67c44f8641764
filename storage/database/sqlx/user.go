// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lehine87/educanvas/core/user"
)

type userRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	Username      string      `db:"username"`
	Email         string      `db:"email"`
	Role          string      `db:"role"`
	TenantID      null.String `db:"tenant_id"`
	Status        string      `db:"status"`
	EmailVerified bool        `db:"email_verified"`
	IsActive      bool        `db:"is_active"`
	PasswordHash  []byte      `db:"password_hash"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
	LastLogin     null.Time   `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User(r)
}

func newUserRow(usr user.User) userRow {
	return userRow(usr)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

var _ user.Repository = (*userRepository)(nil)

const userColumns = `id, name, username, email, role, tenant_id, status, email_verified, is_active,
	password_hash, created_at, updated_at, last_login`

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}

	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += " AND id NOT IN (?)"
		var err error
		query, args, err = sqlx.In(query, username, email, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var rows []userRow
	if err := repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
		if row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	query := `
		INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :name, :username, :email, :role, :tenant_id, :status, :email_verified, :is_active,
			:password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExec(query, newUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT `+userColumns+` FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getOne(`SELECT `+userColumns+` FROM "user" WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getOne(`SELECT `+userColumns+` FROM "user" WHERE username = $1`, username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getOne(`SELECT `+userColumns+` FROM "user" WHERE email = $1`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getOne(`SELECT `+userColumns+` FROM "user" WHERE username = $1 OR email = $1`, username)
}

func (repo *userRepository) getOne(query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user"`
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []userRow
	if err := repo.db.Select(&rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

// UpdateUser only saves set fields, mirroring the service's sparse updates.
func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	sets := []string{"name = ?", "username = ?", "email = ?", "updated_at = ?"}
	args := []interface{}{usr.Name, usr.Username, usr.Email, usr.UpdatedAt}

	if usr.Role != "" {
		sets = append(sets, "role = ?")
		args = append(args, usr.Role)
	}
	if usr.TenantID.Valid {
		sets = append(sets, "tenant_id = ?")
		args = append(args, usr.TenantID)
	}
	if usr.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, usr.Status)
	}
	if usr.EmailVerified {
		sets = append(sets, "email_verified = ?")
		args = append(args, usr.EmailVerified)
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, usr.PasswordHash)
	}
	if usr.LastLogin.Valid {
		sets = append(sets, "last_login = ?")
		args = append(args, usr.LastLogin)
	}
	if isActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *isActive)
	}

	query := `UPDATE "user" SET ` + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, usr.ID)

	res, err := repo.db.Exec(repo.db.Rebind(query), args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users
}
