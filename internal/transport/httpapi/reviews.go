package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/review"
)

func (h *handler) createReview(c *gin.Context) {
	var req reviewRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.reviews.CreateReview(c.Request.Context(), actorFrom(c), review.CreateReviewInput{
		ProductID: req.ProductID,
		Score:     req.Score,
		Comment:   req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReviewResponse(created))
}

func (h *handler) listReviews(c *gin.Context) {
	reviews, err := h.reviews.ListReviews(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reviews, toReviewResponse))
}

func (h *handler) listProductReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListProductReviews(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reviews, toReviewResponse))
}

func (h *handler) getReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.reviews.GetReview(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(found))
}

func (h *handler) editReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := h.reviews.EditReview(c.Request.Context(), actorFrom(c), id, review.EditReviewInput{
		Version: req.Version,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(updated))
}

func (h *handler) deleteReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) reportReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reported, err := h.reviews.ReportReview(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(reported))
}

func (h *handler) listReportedReviews(c *gin.Context) {
	reviews, err := h.reviews.ListReportedReviews(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(reviews, toReviewResponse))
}

func (h *handler) resolveReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.reviews.ResolveReview(c.Request.Context(), actorFrom(c), id, req.Action); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) setReviewStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := h.reviews.SetModerationStatus(c.Request.Context(), actorFrom(c), id, domain.ModerationStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviewResponse(updated))
}
