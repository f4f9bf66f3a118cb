package domain

import "strings"

// Role - роль, выданная провайдером идентичности.
type Role string

const (
	RoleAdministrator Role = "Administrador"
	RoleCustomer      Role = "Cliente"
)

// KnownRoles перечисляет роли, которые создаются при инициализации.
func KnownRoles() []Role {
	return []Role{RoleAdministrator, RoleCustomer}
}

// Valid проверяет, что роль поддерживается.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleCustomer:
		return true
	default:
		return false
	}
}

// Actor - участник текущего запроса: идентификатор и набор ролей.
// Передаётся в каждую доменную операцию явно.
type Actor struct {
	ID    string
	Roles []Role
}

// NewActor собирает актёра из строковых ролей, отбрасывая пустые значения.
func NewActor(id string, roles ...string) Actor {
	actor := Actor{ID: strings.TrimSpace(id)}
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		actor.Roles = append(actor.Roles, Role(role))
	}
	return actor
}

// Anonymous сообщает, что запрос не аутентифицирован.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// HasRole проверяет наличие роли.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin - сокращение для роли администратора.
func (a Actor) IsAdmin() bool {
	return !a.Anonymous() && a.HasRole(RoleAdministrator)
}

// CanAct проверяет, что актёр может работать с записью владельца ownerID.
func (a Actor) CanAct(ownerID string) bool {
	if a.Anonymous() {
		return false
	}
	return a.IsAdmin() || a.ID == ownerID
}

// RequireAdmin возвращает ErrForbidden для всех, кроме администраторов.
func (a Actor) RequireAdmin() error {
	if a.Anonymous() {
		return ErrUnauthenticated
	}
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireAnyRole требует хотя бы одну из ролей.
func (a Actor) RequireAnyRole(roles ...Role) error {
	if a.Anonymous() {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if a.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}
