// Package order реализует правила заказов и платежей: создание, редактирование,
// смену статуса, удаление и историю, с проверкой владельца и ролей на каждом вызове.
package order

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/outbox"
)

// Repositories - хранилища, с которыми работает сервис заказов.
type Repositories struct {
	Orders    domain.OrderRepository
	Payments  domain.PaymentRepository
	Products  domain.ProductRepository
	Coupons   domain.CouponRepository
	Customers domain.CustomerRepository
	Timeline  domain.TimelineRepository
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents включает запись доменных событий в outbox.
func WithEvents(recorder *outbox.Recorder) Option {
	return func(s *Service) {
		s.events = recorder
	}
}

// WithMetrics подключает доменные метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service - доменный сервис заказов.
type Service struct {
	orders    domain.OrderRepository
	payments  domain.PaymentRepository
	products  domain.ProductRepository
	coupons   domain.CouponRepository
	customers domain.CustomerRepository
	timeline  domain.TimelineRepository

	events  *outbox.Recorder
	metrics *metrics.Metrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService конструирует сервис заказов.
func NewService(repos Repositories, options ...Option) *Service {
	s := &Service{
		orders:    repos.Orders,
		payments:  repos.Payments,
		products:  repos.Products,
		coupons:   repos.Coupons,
		customers: repos.Customers,
		timeline:  repos.Timeline,
		logger:    log.WithField("component", "order-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// loadOwned загружает заказ и проверяет, что актёр - владелец или администратор.
// Чужой заказ для клиента неотличим от несуществующего.
func (s *Service) loadOwned(ctx context.Context, actor domain.Actor, id int64) (domain.Order, error) {
	if actor.Anonymous() {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.CanAct(order.CustomerID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) appendTimeline(ctx context.Context, orderID int64, eventType, reason, actorID string) {
	if s.timeline == nil {
		return
	}
	err := s.timeline.Append(ctx, domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		ActorID:  actorID,
		Occurred: s.now(),
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"type":     eventType,
		}).Warn("failed to append timeline event")
		return
	}
	s.metrics.TimelineEvent()
}

// trackConflict учитывает конфликт версий в метриках и возвращает ошибку без изменений.
func (s *Service) trackConflict(err error) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		s.metrics.Conflict(conflict.Entity, string(conflict.Reason))
		s.logger.WithFields(log.Fields{
			"entity": conflict.Entity,
			"id":     conflict.ID,
			"reason": conflict.Reason,
		}).Info("concurrent modification detected")
	}
	return err
}
