package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/idempotency"
)

// errorResponse - единый формат ошибок API.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

var (
	// errBadRequest помечает тела запросов, которые не удалось разобрать.
	errBadRequest = errors.New("malformed request")
	// errBodyTooLarge - тело запроса больше допустимого размера.
	errBodyTooLarge = errors.New("request body too large")
)

// respondError переводит доменную ошибку в HTTP-ответ. Неизвестные ошибки логируются
// и отдаются как 500 без подробностей.
func respondError(c *gin.Context, logger *log.Entry, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		verr     *domain.ValidationError
		conflict *domain.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorResponse{Error: conflict.Error()}
	case errors.Is(err, idempotency.ErrRequestInProgress), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

// bindError переводит ошибку ShouldBindJSON: нарушения тегов binding становятся
// ошибками полей, всё остальное считается некорректным телом.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := &domain.ValidationError{}
		for _, fe := range verrs {
			out.Add(fieldPath(fe), describeTag(fe))
		}
		return out
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: request body is empty", errBadRequest)
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("%w: invalid JSON at offset %d", errBadRequest, syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Errorf("%w: field %q has wrong type", errBadRequest, typeErr.Field)
	default:
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
}

// fieldPath убирает имя корневой структуры: "createOrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid e-mail address"
	case "dive":
		return "is invalid"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
