package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/order"
)

func (h *handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if !h.bind(c, &req) {
		return
	}

	in := order.CreateOrderInput{
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		CouponID:        req.CouponID,
		Items:           make([]order.ItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, order.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if req.Payment != nil {
		in.Payment = &order.PaymentInput{
			Method:                req.Payment.Method,
			ExternalTransactionID: req.Payment.ExternalTransactionID,
		}
	}

	created, err := h.orders.CreateOrder(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(created))
}

func (h *handler) listOrders(c *gin.Context) {
	orders, err := h.orders.GetAllOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(orders, toOrderResponse))
}

func (h *handler) listCustomerOrders(c *gin.Context) {
	orders, err := h.orders.GetOrdersForCustomer(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(orders, toOrderResponse))
}

func (h *handler) getOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.orders.GetOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(found))
}

func (h *handler) editOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req editOrderRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.orders.EditOrder(c.Request.Context(), actorFrom(c), id, order.EditOrderInput{
		Version:         req.Version,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		CustomerID:      req.CustomerID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

func (h *handler) updateOrderStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.orders.UpdateOrderStatus(c.Request.Context(), actorFrom(c), id, domain.OrderStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

func (h *handler) deleteOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) orderTimeline(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.orders.GetTimeline(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(events, func(e domain.TimelineEvent) timelineResponse {
		return timelineResponse{Type: e.Type, Reason: e.Reason, ActorID: e.ActorID, Occurred: e.Occurred}
	}))
}

func (h *handler) recordPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !h.bind(c, &req) {
		return
	}

	payment, err := h.orders.RecordPayment(c.Request.Context(), actorFrom(c), id, order.RecordPaymentInput{
		Method:                req.Method,
		Amount:                req.Amount,
		ExternalTransactionID: req.ExternalTransactionID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

func (h *handler) getPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	payment, err := h.orders.GetPayment(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *handler) updatePaymentStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.orders.UpdatePaymentStatus(c.Request.Context(), actorFrom(c), id, domain.PaymentStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
