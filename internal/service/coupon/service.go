// Package coupon управляет скидочными купонами и проверяет их применимость.
package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// Input - поля купона в запросах создания и изменения.
type Input struct {
	Code          string
	DiscountType  domain.DiscountType
	DiscountValue decimal.Decimal
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	MaxUses       *int
}

// Availability - результат публичной проверки купона.
type Availability struct {
	Coupon     domain.Coupon
	Uses       int
	Applicable bool
	// Reason пуст, если купон применим.
	Reason string
}

const (
	ReasonInactive   = "inactive"
	ReasonNotStarted = "not_started"
	ReasonExpired    = "expired"
	ReasonExhausted  = "exhausted"
)

// Service - сервис купонов.
type Service struct {
	coupons domain.CouponRepository
	logger  *log.Entry
}

// NewService создаёт сервис купонов.
func NewService(coupons domain.CouponRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "coupon-service")
	}
	return &Service{coupons: coupons, logger: logger}
}

// Create добавляет купон (только администратор). Код должен быть уникальным.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in Input) (domain.Coupon, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Coupon{}, err
	}
	coupon := fromInput(0, in)
	if err := coupon.Validate(); err != nil {
		return domain.Coupon{}, err
	}

	created, err := s.coupons.Create(ctx, coupon)
	if err != nil {
		return domain.Coupon{}, err
	}
	s.logger.WithFields(log.Fields{"coupon_id": created.ID, "code": created.Code}).Info("coupon created")
	return created, nil
}

// Get возвращает купон (только администратор).
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (domain.Coupon, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Coupon{}, err
	}
	return s.coupons.Get(ctx, id)
}

// List возвращает все купоны (только администратор).
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Coupon, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.coupons.List(ctx)
}

// Update заменяет поля купона (только администратор).
func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, in Input) (domain.Coupon, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Coupon{}, err
	}
	coupon := fromInput(id, in)
	if err := coupon.Validate(); err != nil {
		return domain.Coupon{}, err
	}
	return s.coupons.Update(ctx, coupon)
}

// Delete удаляет купон; заказы теряют ссылку на него, но сохраняют итог.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"coupon_id": id, "actor_id": actor.ID}).Info("coupon deleted")
	return nil
}

// Check ищет купон по коду и сообщает, можно ли применить его в момент now.
func (s *Service) Check(ctx context.Context, code string, now time.Time) (Availability, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Availability{}, domain.NewValidationError("code", "is required")
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return Availability{}, err
	}
	uses, err := s.coupons.CountUses(ctx, coupon.ID)
	if err != nil {
		return Availability{}, fmt.Errorf("count coupon uses: %w", err)
	}

	result := Availability{Coupon: coupon, Uses: uses}
	switch {
	case !coupon.Active:
		result.Reason = ReasonInactive
	case now.Before(coupon.StartsAt):
		result.Reason = ReasonNotStarted
	case now.After(coupon.EndsAt):
		result.Reason = ReasonExpired
	case coupon.Exhausted(uses):
		result.Reason = ReasonExhausted
	default:
		result.Applicable = true
	}
	return result, nil
}

func fromInput(id int64, in Input) domain.Coupon {
	return domain.Coupon{
		ID:            id,
		Code:          strings.TrimSpace(in.Code),
		DiscountType:  in.DiscountType,
		DiscountValue: domain.RoundMoney(in.DiscountValue),
		StartsAt:      in.StartsAt.UTC(),
		EndsAt:        in.EndsAt.UTC(),
		Active:        in.Active,
		MaxUses:       in.MaxUses,
	}
}
