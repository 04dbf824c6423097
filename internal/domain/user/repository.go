package user

import "context"

type Repository interface {
	FindByLogin(ctx context.Context, login string) (User, error)
}

// StaticRepository отдает учетные записи, заданные конфигурацией.
// Семейный журнал рассчитан на одну пару, регистрации нет.
type StaticRepository struct {
	users map[string]User
}

func NewStaticRepository(users ...User) *StaticRepository {
	r := &StaticRepository{users: make(map[string]User, len(users))}
	for _, u := range users {
		r.users[u.Login] = u
	}
	return r
}

func (r *StaticRepository) FindByLogin(_ context.Context, login string) (User, error) {
	u, ok := r.users[login]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}
