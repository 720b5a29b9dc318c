package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrAuthenticationFailed = errors.New("invalid username/email or password")
	ErrInvalidRole          = errors.New("unknown role")
)

type (
	Repository interface {
		// CreateUser inserts the user and its role assignments. Duplicate
		// username/email constraint violations map to ErrUsernameExists/ErrEmailExists.
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string, exec ...core.DBExecutor) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Username, Email, FirstName or LastName.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		// UpdateUser saves set fields only; a nil Roles slice leaves role assignments untouched.
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		SetLastLogin(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// AssignUserRole/RemoveUserRole are idempotent.
		AssignUserRole(ctx context.Context, userID, role string, exec ...core.DBExecutor) error
		RemoveUserRole(ctx context.Context, userID, role string, exec ...core.DBExecutor) error
		GetUserRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]string, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// trapConflictErr maps storage uniqueness conflicts to a field-level validation error.
func trapConflictErr(err error) error {
	var field string
	switch err {
	case ErrUsernameExists:
		field = "username"
	case ErrEmailExists:
		field = "email"
	default:
		return err
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// Create creates a user with the caller-provided roles (admin path).
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Status:    StatusActive,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, trapConflictErr(err)
	}
	return usr, nil
}

// Register self-registers a user; the default `student` role is assigned
// regardless of what the caller provided.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Roles = []string{RoleStudent}
	return svc.Create(ctx, nu)
}

// Authenticate verifies the given credentials against the user found by
// username OR email. Any mismatch fails with ErrAuthenticationFailed: the
// caller cannot tell whether the identifier or the password was wrong.
func (svc *Service) Authenticate(ctx context.Context, identifier, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(identifier, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive() {
		return User{}, ErrAuthenticationFailed
	}
	return svc.repo.SetLastLogin(ctx, usr)
}

// ResetPassword re-hashes and replaces the user's password.
// Existing sessions are not invalidated.
func (svc *Service) ResetPassword(ctx context.Context, id, newPwd string) error {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err = validatePassword(newPwd, usr.Username, usr.Email, usr.FirstName, usr.LastName); err != nil {
		return err
	}
	if err = usr.SetPassword(newPwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Username:  uu.Username,
		Email:     uu.Email,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Status:    uu.Status,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, trapConflictErr(err)
	}
	return usr, nil
}

// AssignRole grants a role to a user; assigning an already-held role is a no-op.
func (svc *Service) AssignRole(ctx context.Context, userID, role string) error {
	if !isKnownRole(role) {
		return ErrInvalidRole
	}
	return svc.repo.AssignUserRole(ctx, userID, role)
}

// RemoveRole revokes a role; removing a role the user does not hold is a no-op.
func (svc *Service) RemoveRole(ctx context.Context, userID, role string) error {
	if !isKnownRole(role) {
		return ErrInvalidRole
	}
	return svc.repo.RemoveUserRole(ctx, userID, role)
}

func (svc *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	return svc.repo.GetUserRoles(ctx, userID)
}

func (svc *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	roles, err := svc.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids)
}

func isKnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
