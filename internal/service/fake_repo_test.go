package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"agriconnect/internal/ids"
	"agriconnect/internal/model"
	"agriconnect/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository. Setting err makes every call fail.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
	// raceOnCreate makes Create report a duplicate as if a concurrent signup won
	raceOnCreate bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.raceOnCreate {
		return repository.ErrDuplicatePhone
	}
	for _, u := range f.users {
		if u.Phone == user.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Phone == phone })
}

func (f *fakeUserRepo) FindByPhoneAndRole(_ context.Context, phone string, role model.Role) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Phone == phone && u.Role == role })
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) List(_ context.Context, filters model.UserFilters) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	users := []*model.User{}
	for _, u := range f.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		if filters.Verified != nil && u.Verified != *filters.Verified {
			continue
		}
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (f *fakeUserRepo) SetVerification(_ context.Context, id string, verified bool, verifiedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Verified = verified
	u.VerifiedAt = verifiedAt
	return nil
}

func (f *fakeUserRepo) Ping(context.Context) error { return f.err }
