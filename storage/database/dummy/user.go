package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return user.ErrUsernameExists
		}
		if u.Email == usr.Email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	usr.ID = uuid.New().String()
	sort.Strings(usr.Roles)
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Username == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if (usr.Username == username) || (usr.Email == username) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()

	// users with search keyword matching any Username, Email, FirstName or LastName ?
	if filter.Search != "" {
		var filtered []user.User
		kw := strings.ToLower(filter.Search)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), kw) ||
				strings.Contains(strings.ToLower(u.Email), kw) ||
				strings.Contains(strings.ToLower(u.FirstName), kw) ||
				strings.Contains(strings.ToLower(u.LastName), kw) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	// users holding any of the specified roles
	if users != nil && len(filter.Roles) > 0 {
		var filtered []user.User
		for _, u := range users {
			for _, r := range filter.Roles {
				if u.HasRole(r) {
					filtered = append(filtered, u)
					break
				}
			}
		}
		users = filtered
	}
	if users != nil && filter.Status != "" {
		var filtered []user.User
		for _, u := range users {
			if u.Status == filter.Status {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedFrom.UTC()
		for _, u := range users {
			if u.CreatedAt.Equal(timeUTC) || u.CreatedAt.After(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedTo.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedTo.UTC()
		for _, u := range users {
			if u.CreatedAt.Before(timeUTC) || u.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	// only username ordering is supported here; tests need no more
	for _, ord := range ordering {
		if ord.Field == "username" {
			sort.Slice(users, func(i, j int) bool {
				if ord.Ascending {
					return users[i].Username < users[j].Username
				}
				return users[i].Username > users[j].Username
			})
		}
	}

	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if err := repo.checkUniqueness(*origUsr); err != nil {
		return user.User{}, err
	}
	if usr.FirstName != "" {
		origUsr.FirstName = usr.FirstName
	}
	if usr.LastName != "" {
		origUsr.LastName = usr.LastName
	}
	if usr.Status != "" {
		origUsr.Status = usr.Status
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if usr.Roles != nil {
		origUsr.Roles = usr.Roles
		sort.Strings(origUsr.Roles)
	}
	origUsr.UpdatedAt = usr.UpdatedAt

	repo.db.users[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.LastLogin = time.Now().UTC()
	return *origUsr, nil
}

func (repo *userRepository) AssignUserRole(_ context.Context, userID, role string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	if usr.HasRole(role) {
		return nil
	}
	usr.Roles = append(usr.Roles, role)
	sort.Strings(usr.Roles)
	return nil
}

func (repo *userRepository) RemoveUserRole(_ context.Context, userID, role string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	for i, r := range usr.Roles {
		if r == role {
			usr.Roles = append(usr.Roles[:i], usr.Roles[i+1:]...)
			break
		}
	}
	return nil
}

func (repo *userRepository) GetUserRoles(_ context.Context, userID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return nil, user.ErrNotFound
	}
	return append([]string(nil), usr.Roles...), nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
