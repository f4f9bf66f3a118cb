// Package identity отвечает за учётные записи: провайдер идентичности и
// администрирование пользователей с профилями клиентов и администраторов.
package identity

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 100
)

// ErrInvalidCredentials возвращается при неверном e-mail или пароле.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)

// NewUser - данные для регистрации учётной записи.
type NewUser struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Provider - внешний провайдер идентичности. Сессии и выдача токенов остаются за ним.
type Provider interface {
	CreateUser(ctx context.Context, in NewUser) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateUser меняет имя, e-mail и телефон. Роли меняются через SetRoles.
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	AssignRole(ctx context.Context, id string, role domain.Role) error
	SetRoles(ctx context.Context, id string, roles []domain.Role) error
	Roles(ctx context.Context) ([]domain.Role, error)
	CheckPassword(ctx context.Context, email, password string) (domain.User, error)
}

type userRecord struct {
	user domain.User
	hash []byte
}

// MemoryProvider хранит пользователей в памяти, пароли в виде bcrypt-хэшей.
type MemoryProvider struct {
	mu    sync.RWMutex
	users map[string]*userRecord
	cost  int
	now   func() time.Time
}

// MemoryOption настраивает MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithBcryptCost задаёт стоимость bcrypt (в тестах удобно bcrypt.MinCost).
func WithBcryptCost(cost int) MemoryOption {
	return func(p *MemoryProvider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.cost = cost
		}
	}
}

// NewMemoryProvider создаёт пустой провайдер.
func NewMemoryProvider(options ...MemoryOption) *MemoryProvider {
	p := &MemoryProvider{
		users: make(map[string]*userRecord),
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(p)
	}
	return p
}

var _ Provider = (*MemoryProvider)(nil)

// CreateUser регистрирует пользователя без ролей.
func (p *MemoryProvider) CreateUser(_ context.Context, in NewUser) (domain.User, error) {
	user := domain.User{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	v := &domain.ValidationError{}
	validateUser(v, user)
	switch n := utf8.RuneCountInString(in.Password); {
	case n < minPasswordLen:
		v.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	case n > maxPasswordLen:
		v.Add("password", fmt.Sprintf("must be at most %d characters", maxPasswordLen))
	}
	if err := v.OrNil(); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.emailTakenLocked(user.Email, "") {
		return domain.User{}, domain.ErrEmailTaken
	}
	user.ID = uuid.NewString()
	user.CreatedAt = p.now()
	p.users[user.ID] = &userRecord{user: user, hash: hash}
	return cloneUser(user), nil
}

// GetUser возвращает пользователя по идентификатору.
func (p *MemoryProvider) GetUser(_ context.Context, id string) (domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(rec.user), nil
}

// FindByEmail ищет пользователя по e-mail без учёта регистра.
func (p *MemoryProvider) FindByEmail(_ context.Context, email string) (domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec := p.byEmailLocked(normalizeEmail(email))
	if rec == nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(rec.user), nil
}

// ListUsers возвращает пользователей в порядке регистрации.
func (p *MemoryProvider) ListUsers(_ context.Context) ([]domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]domain.User, 0, len(p.users))
	for _, rec := range p.users {
		users = append(users, cloneUser(rec.user))
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

// UpdateUser меняет контактные данные пользователя.
func (p *MemoryProvider) UpdateUser(_ context.Context, user domain.User) (domain.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = normalizeEmail(user.Email)
	user.Phone = strings.TrimSpace(user.Phone)

	v := &domain.ValidationError{}
	validateUser(v, user)
	if err := v.OrNil(); err != nil {
		return domain.User{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.users[user.ID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if p.emailTakenLocked(user.Email, user.ID) {
		return domain.User{}, domain.ErrEmailTaken
	}
	rec.user.Name = user.Name
	rec.user.Email = user.Email
	rec.user.Phone = user.Phone
	return cloneUser(rec.user), nil
}

// DeleteUser удаляет учётную запись.
func (p *MemoryProvider) DeleteUser(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(p.users, id)
	return nil
}

// AssignRole добавляет роль, повторное назначение ничего не меняет.
func (p *MemoryProvider) AssignRole(_ context.Context, id string, role domain.Role) error {
	if !role.Valid() {
		return domain.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !rec.user.HasRole(role) {
		rec.user.Roles = append(rec.user.Roles, role)
	}
	return nil
}

// SetRoles заменяет набор ролей пользователя.
func (p *MemoryProvider) SetRoles(_ context.Context, id string, roles []domain.Role) error {
	for _, role := range roles {
		if !role.Valid() {
			return domain.NewValidationError("roles", fmt.Sprintf("unknown role %q", role))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	rec.user.Roles = append([]domain.Role(nil), roles...)
	return nil
}

// Roles возвращает роли, которые понимает провайдер.
func (p *MemoryProvider) Roles(context.Context) ([]domain.Role, error) {
	return domain.KnownRoles(), nil
}

// CheckPassword сверяет пароль с сохранённым хэшем.
func (p *MemoryProvider) CheckPassword(_ context.Context, email, password string) (domain.User, error) {
	p.mu.RLock()
	rec := p.byEmailLocked(normalizeEmail(email))
	var (
		user domain.User
		hash []byte
	)
	if rec != nil {
		user = cloneUser(rec.user)
		hash = rec.hash
	}
	p.mu.RUnlock()

	if rec == nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (p *MemoryProvider) byEmailLocked(email string) *userRecord {
	for _, rec := range p.users {
		if rec.user.Email == email {
			return rec
		}
	}
	return nil
}

func (p *MemoryProvider) emailTakenLocked(email, exceptID string) bool {
	rec := p.byEmailLocked(email)
	return rec != nil && rec.user.ID != exceptID
}

func validateUser(v *domain.ValidationError, user domain.User) {
	switch {
	case user.Name == "":
		v.Add("name", "is required")
	case utf8.RuneCountInString(user.Name) > 100:
		v.Add("name", "must be at most 100 characters")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil || utf8.RuneCountInString(user.Email) > 256 {
		v.Add("email", "must be a valid e-mail address")
	}
	if utf8.RuneCountInString(user.Phone) > 20 {
		v.Add("phone", "must be at most 20 characters")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u domain.User) domain.User {
	u.Roles = append([]domain.Role(nil), u.Roles...)
	return u
}
