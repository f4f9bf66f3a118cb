package domain

import "time"

// User - учётная запись у провайдера идентичности.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Roles     []Role
	CreatedAt time.Time
}

// HasRole проверяет наличие роли у пользователя.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
