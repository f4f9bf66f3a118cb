package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/service/catalog"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/order"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/review"
)

type handler struct {
	orders   *order.Service
	reviews  *review.Service
	catalog  *catalog.Service
	coupons  *coupon.Service
	accounts *identity.Accounts

	logger *log.Entry
	now    func() time.Time
}

// fail - общий выход из обработчика при ошибке.
func (h *handler) fail(c *gin.Context, err error) {
	respondError(c, h.logger, err)
}

func (h *handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, bindError(err))
		return false
	}
	return true
}

func (h *handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name))
		return 0, false
	}
	return id, true
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
