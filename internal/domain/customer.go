package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Customer - профиль клиента. Ключ совпадает с идентификатором пользователя.
type Customer struct {
	ID         string
	Address    string
	Complement string
	City       string
	State      string
	PostalCode string
}

// Validate проверяет длины необязательных полей адреса.
func (c *Customer) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(c.ID) == "" {
		v.Add("id", "is required")
	}
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"address", c.Address, 200},
		{"complement", c.Complement, 100},
		{"city", c.City, 100},
		{"state", c.State, 50},
		{"postal_code", c.PostalCode, 20},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			v.Add(l.field, "is too long")
		}
	}
	return v.OrNil()
}

// Administrator - профиль сотрудника с ролью администратора.
type Administrator struct {
	ID      string
	Title   string
	HiredAt time.Time
}

// Validate проверяет должность администратора.
func (a *Administrator) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(a.ID) == "" {
		v.Add("id", "is required")
	}
	title := strings.TrimSpace(a.Title)
	switch {
	case title == "":
		v.Add("title", "is required")
	case utf8.RuneCountInString(title) > 100:
		v.Add("title", "must be at most 100 characters")
	}
	return v.OrNil()
}
