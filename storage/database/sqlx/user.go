package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const userCols = "id, username, email, first_name, last_name, status, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Status       string    `db:"status"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Status:       row.Status,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

// trapConflictErr maps psql unique violations to user.ErrUsernameExists/ErrEmailExists.
func (repo userRepository) trapConflictErr(err error, msg string) error {
	if violatesConstraint(err, "users_username_key") {
		return user.ErrUsernameExists
	}
	if violatesConstraint(err, "users_email_key") {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) getUser(ctx context.Context, exe core.DBExecutor, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := "SELECT " + userCols + " FROM users WHERE " + where
	if err := exe.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}

	usr := row.user()
	roles, err := repo.GetUserRoles(ctx, usr.ID, exe)
	if err != nil {
		return user.User{}, err
	}
	usr.Roles = roles
	return usr, nil
}

func (repo userRepository) insertRoles(ctx context.Context, exe core.DBExecutor, userID string, roles []string) error {
	for _, role := range roles {
		q := "INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING"
		if _, err := exe.ExecContext(ctx, q, userID, role); err != nil {
			return errors.Wrap(err, "assigning role")
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()

	err := inTx(ctx, repo.db, exec, func(exe core.DBExecutor) error {
		q := `
		INSERT INTO users (` + userCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := exe.ExecContext(ctx, q,
			usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.Status,
			usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		)
		if err != nil {
			return repo.trapConflictErr(err, "inserting user")
		}
		return repo.insertRoles(ctx, exe, usr.ID, usr.Roles)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, repo.getExec(exec), "id = $1", id)
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "username = $1", username)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "email = $1", email)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "username = $1 OR email = $1", username)
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)

	var qs querySet
	where := []string{"true"}

	// users with Username, Email, FirstName or LastName matching the search keyword
	if filter.Search != "" {
		val := qs.arg("%" + filter.Search + "%")
		where = append(where,
			"(username ILIKE "+val+" OR email ILIKE "+val+" OR first_name ILIKE "+val+" OR last_name ILIKE "+val+")")
	}
	// users holding any of the given roles
	if len(filter.Roles) > 0 {
		val := qs.arg(pq.Array(filter.Roles))
		where = append(where, "id IN (SELECT user_id FROM user_roles WHERE role = ANY("+val+"))")
	}
	if filter.Status != "" {
		where = append(where, "status = "+qs.arg(filter.Status))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+qs.arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= "+qs.arg(filter.CreatedTo.UTC()))
	}

	var rows []userRow
	q := "SELECT " + userCols + " FROM users WHERE " + strings.Join(where, " AND ") + " ORDER BY " + orderBy(ordering, "created_at")
	if err := exe.SelectContext(ctx, &rows, q, qs.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	if err := repo.loadRoles(ctx, exe, users); err != nil {
		return nil, err
	}
	return users, nil
}

// loadRoles fills in Roles for all given users in one query.
func (repo userRepository) loadRoles(ctx context.Context, exe core.DBExecutor, users []user.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}

	var rows []struct {
		UserID string `db:"user_id"`
		Role   string `db:"role"`
	}
	q := "SELECT user_id, role FROM user_roles WHERE user_id = ANY($1) ORDER BY role"
	if err := exe.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying user roles")
	}

	byUser := make(map[string][]string, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Role)
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
	}
	return nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var updated user.User

	err := inTx(ctx, repo.db, exec, func(exe core.DBExecutor) error {
		// only save set fields
		var qs querySet
		if usr.Username != "" {
			qs.add("username", usr.Username)
		}
		if usr.Email != "" {
			qs.add("email", usr.Email)
		}
		if usr.FirstName != "" {
			qs.add("first_name", usr.FirstName)
		}
		if usr.LastName != "" {
			qs.add("last_name", usr.LastName)
		}
		if usr.Status != "" {
			qs.add("status", usr.Status)
		}
		if usr.PasswordHash != nil {
			qs.add("password_hash", usr.PasswordHash)
		}
		qs.add("updated_at", usr.UpdatedAt.UTC())

		q := "UPDATE users SET " + strings.Join(qs.sets, ", ") + " WHERE id = " + qs.arg(usr.ID)
		res, err := exe.ExecContext(ctx, q, qs.args...)
		if err != nil {
			return repo.trapConflictErr(err, "updating user")
		}
		if cnt, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "updating user")
		} else if cnt == 0 {
			return user.ErrNotFound
		}

		// a nil Roles slice leaves role assignments untouched
		if usr.Roles != nil {
			if _, err = exe.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", usr.ID); err != nil {
				return errors.Wrap(err, "clearing roles")
			}
			if err = repo.insertRoles(ctx, exe, usr.ID, usr.Roles); err != nil {
				return err
			}
		}

		updated, err = repo.getUser(ctx, exe, "id = $1", usr.ID)
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	return updated, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	now := time.Now().UTC()
	q := "UPDATE users SET last_login = $1 WHERE id = $2"
	if _, err := repo.getExec(exec).ExecContext(ctx, q, now, usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = now
	return usr, nil
}

func (repo userRepository) AssignUserRole(ctx context.Context, userID, role string, exec ...core.DBExecutor) error {
	return repo.insertRoles(ctx, repo.getExec(exec), userID, []string{role})
}

func (repo userRepository) RemoveUserRole(ctx context.Context, userID, role string, exec ...core.DBExecutor) error {
	q := "DELETE FROM user_roles WHERE user_id = $1 AND role = $2"
	if _, err := repo.getExec(exec).ExecContext(ctx, q, userID, role); err != nil {
		return errors.Wrap(err, "removing role")
	}
	return nil
}

func (repo userRepository) GetUserRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]string, error) {
	var roles []string
	q := "SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role"
	if err := repo.getExec(exec).SelectContext(ctx, &roles, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user roles")
	}
	return roles, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	q := "DELETE FROM users WHERE id = ANY($1)"
	if _, err := repo.getExec(exec).ExecContext(ctx, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
