package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/user"
)

const (
	userColumns = `id, name, username, email, is_active, roles, student_id, subjects, password_hash, created_at, updated_at, last_login`

	userInsert = `
INSERT INTO "user" (id, name, username, email, is_active, roles, student_id, subjects, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :is_active, :roles, :student_id, :subjects, :password_hash, :created_at, :updated_at, :last_login)`

	userUpdate = `
UPDATE "user"
SET name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles,
    student_id = :student_id, subjects = :subjects, password_hash = :password_hash,
    updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
)

type userModel struct {
	ID           string         `db:"id"`
	Name         null.String    `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	StudentID    null.String    `db:"student_id"`
	Subjects     pq.StringArray `db:"subjects"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserModel(usr user.User) userModel {
	m := userModel{
		ID:           usr.ID,
		Name:         null.NewString(usr.Name, usr.Name != ""),
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Roles:        usr.Roles,
		StudentID:    null.NewString(usr.StudentID, usr.StudentID != ""),
		Subjects:     usr.Subjects,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    nullTime(usr.CreatedAt),
		UpdatedAt:    nullTime(usr.UpdatedAt),
		LastLogin:    nullTime(usr.LastLogin),
	}
	if usr.IsActive != nil {
		m.IsActive = null.BoolFrom(*usr.IsActive)
	}
	return m
}

func (m userModel) user() user.User {
	usr := user.User{
		ID:           m.ID,
		Name:         m.Name.String,
		Username:     m.Username.String,
		Email:        m.Email.String,
		Roles:        m.Roles,
		StudentID:    m.StudentID.String,
		Subjects:     m.Subjects,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.Time,
		UpdatedAt:    m.UpdatedAt.Time,
		LastLogin:    m.LastLogin.Time,
	}
	if m.IsActive.Valid {
		active := m.IsActive.Bool
		usr.IsActive = &active
	}
	return usr
}

var userOrderColumns = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	var conds []string
	var args []interface{}
	if username != "" {
		args = append(args, strings.ToLower(username))
		conds = append(conds, fmt.Sprintf("lower(username) = $%d", len(args)))
	}
	if email != "" {
		args = append(args, strings.ToLower(email))
		conds = append(conds, fmt.Sprintf("lower(email) = $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil
	}

	query := `SELECT count(id) FROM "user" WHERE (` + strings.Join(conds, " OR ") + `)`
	for _, usr := range excludedUsers {
		args = append(args, usr.ID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	var count int
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &count, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if _, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), userInsert, newUserModel(usr)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE `
	var arg string
	switch {
	case filter.ID != "":
		query += `id = $1`
		arg = filter.ID
	case filter.Username != "":
		query += `lower(username) = lower($1)`
		arg = filter.Username
	case filter.Email != "":
		query += `lower(email) = lower($1)`
		arg = filter.Email
	case filter.UsernameOrEmail != "":
		query += `(lower(username) = lower($1) OR lower(email) = lower($1))`
		arg = filter.UsernameOrEmail
	case filter.StudentID != "":
		query += `student_id = $1`
		arg = filter.StudentID
	default:
		return user.User{}, errors.New("empty user filter")
	}

	var m userModel
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &m, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return m.user(), nil
}

func (repo *userRepository) QueryUsers(
	ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor,
) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user"`

	var conds []string
	var args []interface{}
	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR username ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
		}
		if filter.Roles != nil {
			args = append(args, pq.Array(filter.Roles))
			conds = append(conds, fmt.Sprintf("roles && $%d", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, userOrderColumns, "username ASC")

	var ms []userModel
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &ms, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, len(ms))
	for i, m := range ms {
		users[i] = m.user()
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), userUpdate, newUserModel(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
