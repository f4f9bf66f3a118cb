package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
)

func couponInput(req couponRequest) coupon.Input {
	return coupon.Input{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Active:        req.Active,
		MaxUses:       req.MaxUses,
	}
}

func (h *handler) listCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(coupons, toCouponResponse))
}

func (h *handler) getCoupon(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.coupons.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCouponResponse(found))
}

func (h *handler) createCoupon(c *gin.Context) {
	var req couponRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.coupons.Create(c.Request.Context(), actorFrom(c), couponInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCouponResponse(created))
}

func (h *handler) updateCoupon(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req couponRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := h.coupons.Update(c.Request.Context(), actorFrom(c), id, couponInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCouponResponse(updated))
}

func (h *handler) deleteCoupon(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.coupons.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) checkCoupon(c *gin.Context) {
	result, err := h.coupons.Check(c.Request.Context(), c.Param("code"), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCouponCheckResponse(result))
}
