package fakeuserrepo

import (
	"sync"

	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]users.User
	lock  sync.RWMutex
}

// NewFakeUserRepo returns a repo seeded with seed.
func NewFakeUserRepo(seed ...*users.User) *FakeUserRepo {
	ur := &FakeUserRepo{users: make(map[string]users.User)}
	for _, u := range seed {
		_ = ur.Upsert(u)
	}
	return ur
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.users[user.ID] = *user
	return nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}
