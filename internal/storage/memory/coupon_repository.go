package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type couponRepositoryInMemory struct {
	s *Store
}

func (r *couponRepositoryInMemory) Create(_ context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	coupon.Code = strings.TrimSpace(coupon.Code)
	if r.s.codeTakenLocked(coupon.Code, 0) {
		return domain.Coupon{}, domain.ErrCouponCodeTaken
	}
	coupon.ID = r.s.nextID("coupons")
	r.s.coupons[coupon.ID] = cloneCoupon(coupon)
	return cloneCoupon(coupon), nil
}

func (r *couponRepositoryInMemory) Get(_ context.Context, id int64) (domain.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	coupon, ok := r.s.coupons[id]
	if !ok {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	return cloneCoupon(coupon), nil
}

func (r *couponRepositoryInMemory) GetByCode(_ context.Context, code string) (domain.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	code = strings.TrimSpace(code)
	for _, coupon := range r.s.coupons {
		if coupon.Code == code {
			return cloneCoupon(coupon), nil
		}
	}
	return domain.Coupon{}, domain.ErrCouponNotFound
}

func (r *couponRepositoryInMemory) List(_ context.Context) ([]domain.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Coupon, 0, len(r.s.coupons))
	for _, coupon := range r.s.coupons {
		result = append(result, cloneCoupon(coupon))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *couponRepositoryInMemory) Update(_ context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[coupon.ID]; !ok {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	coupon.Code = strings.TrimSpace(coupon.Code)
	if r.s.codeTakenLocked(coupon.Code, coupon.ID) {
		return domain.Coupon{}, domain.ErrCouponCodeTaken
	}
	r.s.coupons[coupon.ID] = cloneCoupon(coupon)
	return cloneCoupon(coupon), nil
}

// Delete удаляет купон и обнуляет ссылки на него в заказах (SET NULL).
func (r *couponRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return domain.ErrCouponNotFound
	}
	for orderID, order := range r.s.orders {
		if order.CouponID != nil && *order.CouponID == id {
			order.CouponID = nil
			r.s.orders[orderID] = order
		}
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *couponRepositoryInMemory) CountUses(_ context.Context, id int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.coupons[id]; !ok {
		return 0, domain.ErrCouponNotFound
	}
	return r.s.couponUsesLocked(id), nil
}

func (s *Store) couponUsesLocked(id int64) int {
	uses := 0
	for _, order := range s.orders {
		if order.CouponID != nil && *order.CouponID == id {
			uses++
		}
	}
	return uses
}

func (s *Store) codeTakenLocked(code string, exceptID int64) bool {
	for _, existing := range s.coupons {
		if existing.ID != exceptID && existing.Code == code {
			return true
		}
	}
	return false
}

func cloneCoupon(c domain.Coupon) domain.Coupon {
	if c.MaxUses != nil {
		uses := *c.MaxUses
		c.MaxUses = &uses
	}
	return c
}

var _ domain.CouponRepository = (*couponRepositoryInMemory)(nil)
