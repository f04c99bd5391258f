package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

outer:
	for _, usr := range repo.db.users {
		for _, excl := range excludedUsers {
			if usr.ID == excl.ID {
				continue outer
			}
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUserExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrUserExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		switch {
		case filter.ID != "":
			if usr.ID == filter.ID {
				return usr, nil
			}
		case filter.Username != "":
			if strings.EqualFold(usr.Username, filter.Username) {
				return usr, nil
			}
		case filter.Email != "":
			if strings.EqualFold(usr.Email, filter.Email) {
				return usr, nil
			}
		case filter.UsernameOrEmail != "":
			if strings.EqualFold(usr.Username, filter.UsernameOrEmail) ||
				strings.EqualFold(usr.Email, filter.UsernameOrEmail) {
				return usr, nil
			}
		case filter.StudentID != "":
			if usr.StudentID == filter.StudentID {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(
	_ context.Context, filter *user.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor,
) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !filter.IsEmpty() {
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(usr.Name), search) &&
					!strings.Contains(strings.ToLower(usr.Username), search) &&
					!strings.Contains(strings.ToLower(usr.Email), search) {
					continue
				}
			}
			if filter.Roles != nil && !hasAnyRole(usr.Roles, filter.Roles) {
				continue
			}
			if filter.IsActive != nil && (usr.IsActive == nil || *usr.IsActive != *filter.IsActive) {
				continue
			}
		}
		users = append(users, usr)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func hasAnyRole(roles, wanted []string) bool {
	for _, role := range roles {
		for _, w := range wanted {
			if role == w {
				return true
			}
		}
	}
	return false
}
