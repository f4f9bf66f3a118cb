package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
)

// Запросы. Теги binding проверяют форму; доменные правила проверяют сервисы.

type orderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gte=1,lte=1000"`
}

type paymentRequest struct {
	Method                string `json:"method" binding:"required,max=50"`
	ExternalTransactionID string `json:"external_transaction_id" binding:"max=100"`
}

type createOrderRequest struct {
	DeliveryType    domain.DeliveryType `json:"delivery_type" binding:"required"`
	DeliveryAddress string              `json:"delivery_address"`
	Notes           string              `json:"notes"`
	CouponID        *int64              `json:"coupon_id"`
	Items           []orderItemRequest  `json:"items" binding:"required,min=1,dive"`
	Payment         *paymentRequest     `json:"payment"`
}

type editOrderRequest struct {
	Version         int64               `json:"version"`
	DeliveryType    domain.DeliveryType `json:"delivery_type" binding:"required"`
	DeliveryAddress string              `json:"delivery_address"`
	Notes           string              `json:"notes"`
	CustomerID      string              `json:"customer_id"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type recordPaymentRequest struct {
	Method                string          `json:"method" binding:"required"`
	Amount                decimal.Decimal `json:"amount"`
	ExternalTransactionID string          `json:"external_transaction_id"`
}

type reviewRequest struct {
	ProductID int64  `json:"product_id"`
	Version   int64  `json:"version"`
	Score     int    `json:"score" binding:"required"`
	Comment   string `json:"comment"`
}

type resolveRequest struct {
	Action domain.ResolveAction `json:"action" binding:"required"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Available   bool            `json:"available"`
	CategoryID  int64           `json:"category_id" binding:"required"`
}

type couponRequest struct {
	Code          string              `json:"code" binding:"required"`
	DiscountType  domain.DiscountType `json:"discount_type" binding:"required"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	StartsAt      time.Time           `json:"starts_at" binding:"required"`
	EndsAt        time.Time           `json:"ends_at" binding:"required"`
	Active        bool                `json:"active"`
	MaxUses       *int                `json:"max_uses"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"max=20"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type createUserRequest struct {
	registerRequest
	Role  domain.Role `json:"role" binding:"required"`
	Title string      `json:"title"`
}

type editUserRequest struct {
	Name  string        `json:"name" binding:"required,max=100"`
	Email string        `json:"email" binding:"required,email"`
	Phone string        `json:"phone" binding:"max=20"`
	Roles []domain.Role `json:"roles" binding:"required,min=1"`
}

type administratorRequest struct {
	Title   string    `json:"title" binding:"required,max=100"`
	HiredAt time.Time `json:"hired_at"`
}

type profileRequest struct {
	Address    string `json:"address"`
	Complement string `json:"complement"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Ответы. Деньги отдаются строкой с двумя знаками.

type orderItemResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type paymentResponse struct {
	ID                    int64     `json:"id"`
	OrderID               int64     `json:"order_id"`
	Method                string    `json:"method"`
	Amount                string    `json:"amount"`
	PaidAt                time.Time `json:"paid_at"`
	Status                string    `json:"status"`
	ExternalTransactionID string    `json:"external_transaction_id,omitempty"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	CustomerID      string              `json:"customer_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Status          string              `json:"status"`
	Total           string              `json:"total"`
	DeliveryType    string              `json:"delivery_type"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CouponID        *int64              `json:"coupon_id,omitempty"`
	Items           []orderItemResponse `json:"items"`
	Payment         *paymentResponse    `json:"payment,omitempty"`
	Version         int64               `json:"version"`
}

type timelineResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	ActorID  string    `json:"actor_id,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

type reviewResponse struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	CustomerID string    `json:"customer_id"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Reported   bool      `json:"reported"`
	Status     string    `json:"status"`
	Version    int64     `json:"version"`
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type productResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Available   bool   `json:"available"`
	CategoryID  int64  `json:"category_id"`
}

type couponResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Active        bool      `json:"active"`
	MaxUses       *int      `json:"max_uses,omitempty"`
}

type couponCheckResponse struct {
	Coupon     couponResponse `json:"coupon"`
	Uses       int            `json:"uses"`
	Applicable bool           `json:"applicable"`
	Reason     string         `json:"reason,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

type profileResponse struct {
	ID         string `json:"id"`
	Address    string `json:"address,omitempty"`
	Complement string `json:"complement,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type administratorResponse struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	HiredAt time.Time `json:"hired_at"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		Method:                p.Method,
		Amount:                money(p.Amount),
		PaidAt:                p.PaidAt,
		Status:                string(p.Status),
		ExternalTransactionID: p.ExternalTransactionID,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Status:          string(o.Status),
		Total:           money(o.Total),
		DeliveryType:    string(o.DeliveryType),
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		CouponID:        o.CouponID,
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		Version:         o.Version,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: money(item.UnitPrice),
		})
	}
	if o.Payment != nil {
		payment := toPaymentResponse(*o.Payment)
		resp.Payment = &payment
	}
	return resp
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:         r.ID,
		ProductID:  r.ProductID,
		CustomerID: r.CustomerID,
		Score:      r.Score,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
		Reported:   r.Reported,
		Status:     string(r.Status),
		Version:    r.Version,
	}
}

func toCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		ImageURL:    p.ImageURL,
		Available:   p.Available,
		CategoryID:  p.CategoryID,
	}
}

func toCouponResponse(c domain.Coupon) couponResponse {
	return couponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: money(c.DiscountValue),
		StartsAt:      c.StartsAt,
		EndsAt:        c.EndsAt,
		Active:        c.Active,
		MaxUses:       c.MaxUses,
	}
}

func toCouponCheckResponse(a coupon.Availability) couponCheckResponse {
	return couponCheckResponse{
		Coupon:     toCouponResponse(a.Coupon),
		Uses:       a.Uses,
		Applicable: a.Applicable,
		Reason:     a.Reason,
	}
}

func toUserResponse(u domain.User) userResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponse(c domain.Customer) profileResponse {
	return profileResponse{
		ID:         c.ID,
		Address:    c.Address,
		Complement: c.Complement,
		City:       c.City,
		State:      c.State,
		PostalCode: c.PostalCode,
	}
}

func toAdministratorResponse(a domain.Administrator) administratorResponse {
	return administratorResponse{ID: a.ID, Title: a.Title, HiredAt: a.HiredAt}
}

// mapSlice применяет конвертер к каждому элементу.
func mapSlice[T, R any](items []T, convert func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}
