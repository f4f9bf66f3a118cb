package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Category группирует товары меню.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Validate проверяет поля категории.
func (c *Category) Validate() error {
	v := &ValidationError{}
	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		v.Add("name", "is required")
	case utf8.RuneCountInString(name) > 100:
		v.Add("name", "must be at most 100 characters")
	}
	if utf8.RuneCountInString(c.Description) > 500 {
		v.Add("description", "must be at most 500 characters")
	}
	return v.OrNil()
}

// Product - позиция меню.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Available   bool
	CategoryID  int64
}

// Validate проверяет поля товара. Существование категории проверяет сервис.
func (p *Product) Validate() error {
	v := &ValidationError{}
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		v.Add("name", "is required")
	case utf8.RuneCountInString(name) > 200:
		v.Add("name", "must be at most 200 characters")
	}
	checkMoney(v, "price", p.Price)
	if utf8.RuneCountInString(p.ImageURL) > 500 {
		v.Add("image_url", "must be at most 500 characters")
	}
	if p.CategoryID <= 0 {
		v.Add("category_id", "is required")
	}
	return v.OrNil()
}
