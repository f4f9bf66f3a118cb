package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const defaultAdminTitle = "Administrador"

// CreateUserInput - учётная запись, которую заводит администратор.
type CreateUserInput struct {
	NewUser
	Role domain.Role
	// Title используется для профиля администратора.
	Title string
}

// EditUserInput - новые контактные данные и полный набор ролей.
type EditUserInput struct {
	Name  string
	Email string
	Phone string
	Roles []domain.Role
}

// ProfileInput - адрес клиента.
type ProfileInput struct {
	Address    string
	Complement string
	City       string
	State      string
	PostalCode string
}

// AdministratorInput - редактируемые поля профиля администратора.
// Нулевая HiredAt оставляет дату найма без изменений.
type AdministratorInput struct {
	Title   string
	HiredAt time.Time
}

// BootstrapInput - главный администратор, создаваемый при старте.
type BootstrapInput struct {
	Name     string
	Email    string
	Password string
}

// Accounts администрирует пользователей и их профили.
type Accounts struct {
	provider  Provider
	customers domain.CustomerRepository
	admins    domain.AdministratorRepository
	logger    *log.Entry
	now       func() time.Time
}

// NewAccounts создаёт сервис учётных записей.
func NewAccounts(provider Provider, customers domain.CustomerRepository, admins domain.AdministratorRepository, logger *log.Entry) *Accounts {
	if logger == nil {
		logger = log.WithField("component", "accounts")
	}
	return &Accounts{
		provider:  provider,
		customers: customers,
		admins:    admins,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser заводит пользователя с одной ролью и создаёт соответствующий профиль.
func (a *Accounts) CreateUser(ctx context.Context, actor domain.Actor, in CreateUserInput) (domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.User{}, err
	}
	if !in.Role.Valid() {
		return domain.User{}, domain.NewValidationError("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	user, err := a.createWithRoles(ctx, in.NewUser, in.Title, in.Role)
	if err != nil {
		return domain.User{}, err
	}
	a.logger.WithFields(log.Fields{"user_id": user.ID, "role": in.Role, "actor_id": actor.ID}).Info("user created")
	return user, nil
}

// Register - публичная самостоятельная регистрация клиента.
func (a *Accounts) Register(ctx context.Context, in NewUser) (domain.User, error) {
	user, err := a.createWithRoles(ctx, in, "", domain.RoleCustomer)
	if err != nil {
		return domain.User{}, err
	}
	a.logger.WithField("user_id", user.ID).Info("customer registered")
	return user, nil
}

// GetUser возвращает пользователя (только администратор).
func (a *Accounts) GetUser(ctx context.Context, actor domain.Actor, id string) (domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.User{}, err
	}
	return a.provider.GetUser(ctx, id)
}

// ListUsers возвращает всех пользователей (только администратор).
func (a *Accounts) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return a.provider.ListUsers(ctx)
}

// EditUser меняет контактные данные и роли. У пользователя остаётся хотя бы одна роль;
// новая роль получает профиль, профили снятых ролей сохраняются.
func (a *Accounts) EditUser(ctx context.Context, actor domain.Actor, id string, in EditUserInput) (domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.User{}, err
	}
	roles, err := normalizeRoles(in.Roles)
	if err != nil {
		return domain.User{}, err
	}

	current, err := a.provider.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	current.Name = in.Name
	current.Email = in.Email
	current.Phone = in.Phone
	if _, err := a.provider.UpdateUser(ctx, current); err != nil {
		return domain.User{}, err
	}
	if err := a.provider.SetRoles(ctx, id, roles); err != nil {
		return domain.User{}, err
	}
	for _, role := range roles {
		if err := a.ensureProfile(ctx, id, role, ""); err != nil {
			return domain.User{}, err
		}
	}

	updated, err := a.provider.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	a.logger.WithFields(log.Fields{"user_id": id, "roles": roles, "actor_id": actor.ID}).Info("user updated")
	return updated, nil
}

// DeleteUser удаляет профили пользователя (с заказами и отзывами клиента) и саму учётную запись.
func (a *Accounts) DeleteUser(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if _, err := a.provider.GetUser(ctx, id); err != nil {
		return err
	}
	if err := a.customers.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete customer profile: %w", err)
	}
	if err := a.admins.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete administrator profile: %w", err)
	}
	if err := a.provider.DeleteUser(ctx, id); err != nil {
		return err
	}
	a.logger.WithFields(log.Fields{"user_id": id, "actor_id": actor.ID}).Info("user deleted")
	return nil
}

// GetProfile возвращает профиль клиента владельцу или администратору.
func (a *Accounts) GetProfile(ctx context.Context, actor domain.Actor, customerID string) (domain.Customer, error) {
	if actor.Anonymous() {
		return domain.Customer{}, domain.ErrUnauthenticated
	}
	if !actor.CanAct(customerID) {
		return domain.Customer{}, domain.ErrForbidden
	}
	return a.customers.Get(ctx, customerID)
}

// UpdateProfile меняет адрес клиента.
func (a *Accounts) UpdateProfile(ctx context.Context, actor domain.Actor, customerID string, in ProfileInput) (domain.Customer, error) {
	if actor.Anonymous() {
		return domain.Customer{}, domain.ErrUnauthenticated
	}
	if !actor.CanAct(customerID) {
		return domain.Customer{}, domain.ErrForbidden
	}
	customer := domain.Customer{
		ID:         customerID,
		Address:    strings.TrimSpace(in.Address),
		Complement: strings.TrimSpace(in.Complement),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}
	if err := customer.Validate(); err != nil {
		return domain.Customer{}, err
	}
	if err := a.customers.Update(ctx, customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

// ListCustomers возвращает профили всех клиентов (только администратор).
func (a *Accounts) ListCustomers(ctx context.Context, actor domain.Actor) ([]domain.Customer, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return a.customers.List(ctx)
}

// GetAdministrator возвращает профиль администратора.
func (a *Accounts) GetAdministrator(ctx context.Context, actor domain.Actor, id string) (domain.Administrator, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Administrator{}, err
	}
	return a.admins.Get(ctx, id)
}

// ListAdministrators возвращает профили всех администраторов.
func (a *Accounts) ListAdministrators(ctx context.Context, actor domain.Actor) ([]domain.Administrator, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return a.admins.List(ctx)
}

// UpdateAdministrator меняет должность и дату найма администратора.
func (a *Accounts) UpdateAdministrator(ctx context.Context, actor domain.Actor, id string, in AdministratorInput) (domain.Administrator, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Administrator{}, err
	}
	profile, err := a.admins.Get(ctx, id)
	if err != nil {
		return domain.Administrator{}, err
	}
	profile.Title = strings.TrimSpace(in.Title)
	if !in.HiredAt.IsZero() {
		profile.HiredAt = in.HiredAt.UTC()
	}
	if err := profile.Validate(); err != nil {
		return domain.Administrator{}, err
	}
	if profile.HiredAt.After(a.now()) {
		return domain.Administrator{}, domain.NewValidationError("hired_at", "must not be in the future")
	}
	if err := a.admins.Update(ctx, profile); err != nil {
		return domain.Administrator{}, err
	}
	a.logger.WithFields(log.Fields{"user_id": id, "title": profile.Title, "actor_id": actor.ID}).Info("administrator profile updated")
	return profile, nil
}

// Bootstrap создаёт главного администратора с профилями администратора и клиента.
// Повторный вызов только досоздаёт недостающее.
func (a *Accounts) Bootstrap(ctx context.Context, in BootstrapInput) (domain.User, error) {
	logger := a.logger.WithField("email", in.Email)

	user, err := a.provider.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = "Administrador Principal"
		}
		user, err = a.provider.CreateUser(ctx, NewUser{Name: name, Email: in.Email, Password: in.Password})
		if err != nil {
			return domain.User{}, fmt.Errorf("create bootstrap administrator: %w", err)
		}
		logger.WithField("user_id", user.ID).Info("bootstrap administrator created")
	case err != nil:
		return domain.User{}, err
	default:
		logger.WithField("user_id", user.ID).Debug("bootstrap administrator already exists")
	}

	for _, role := range []domain.Role{domain.RoleAdministrator, domain.RoleCustomer} {
		if err := a.provider.AssignRole(ctx, user.ID, role); err != nil {
			return domain.User{}, err
		}
		if err := a.ensureProfile(ctx, user.ID, role, defaultAdminTitle); err != nil {
			return domain.User{}, err
		}
	}
	return a.provider.GetUser(ctx, user.ID)
}

func (a *Accounts) createWithRoles(ctx context.Context, in NewUser, title string, roles ...domain.Role) (domain.User, error) {
	user, err := a.provider.CreateUser(ctx, in)
	if err != nil {
		return domain.User{}, err
	}

	for _, role := range roles {
		err = a.provider.AssignRole(ctx, user.ID, role)
		if err == nil {
			err = a.ensureProfile(ctx, user.ID, role, title)
		}
		if err != nil {
			a.rollbackUser(ctx, user.ID)
			return domain.User{}, err
		}
	}
	return a.provider.GetUser(ctx, user.ID)
}

// ensureProfile создаёт профиль для роли, если его ещё нет.
func (a *Accounts) ensureProfile(ctx context.Context, userID string, role domain.Role, title string) error {
	var err error
	switch role {
	case domain.RoleCustomer:
		err = a.customers.Create(ctx, domain.Customer{ID: userID})
	case domain.RoleAdministrator:
		title = strings.TrimSpace(title)
		if title == "" {
			title = defaultAdminTitle
		}
		profile := domain.Administrator{ID: userID, Title: title, HiredAt: a.now()}
		if err := profile.Validate(); err != nil {
			return err
		}
		err = a.admins.Create(ctx, profile)
	default:
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrProfileExists) {
		return fmt.Errorf("provision %s profile: %w", role, err)
	}
	return nil
}

// rollbackUser убирает частично созданного пользователя.
func (a *Accounts) rollbackUser(ctx context.Context, userID string) {
	logger := a.logger.WithField("user_id", userID)
	if err := a.customers.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.WithError(err).Warn("failed to roll back customer profile")
	}
	if err := a.admins.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.WithError(err).Warn("failed to roll back administrator profile")
	}
	if err := a.provider.DeleteUser(ctx, userID); err != nil {
		logger.WithError(err).Warn("failed to roll back user")
	}
}

func normalizeRoles(roles []domain.Role) ([]domain.Role, error) {
	seen := make(map[domain.Role]struct{}, len(roles))
	out := make([]domain.Role, 0, len(roles))
	v := &domain.ValidationError{}
	for _, role := range roles {
		role = domain.Role(strings.TrimSpace(string(role)))
		if !role.Valid() {
			v.Add("roles", fmt.Sprintf("unknown role %q", role))
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if len(out) == 0 && v.Empty() {
		v.Add("roles", "at least one role is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
