package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/idempotency"
)

// Заголовки, которые выставляет доверенный шлюз идентичности.
const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRoles      = "X-User-Roles"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotency-Replayed"
)

const actorKey = "actor"

// maxIdempotentBody ограничивает тело запроса, которое читается целиком для hash.
const maxIdempotentBody = 1 << 20

// panicResponseBody сохраняется под ключом, если обработчик упал с panic.
var panicResponseBody = []byte(`{"error":"internal server error"}`)

// actorMiddleware собирает актёра из заголовков шлюза. Отсутствие заголовков означает
// анонимный запрос; доступ проверяют сами операции.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := domain.NewActor(c.GetHeader(HeaderUserID), strings.Split(c.GetHeader(HeaderUserRoles), ",")...)
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}

// requestLogger пишет строку access-лога на каждый запрос.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"actor_id":   actorFrom(c).ID,
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request completed")
		case status >= http.StatusBadRequest:
			entry.Info("request completed")
		default:
			entry.Debug("request completed")
		}
	}
}

// recovery превращает panic в 500 и пишет его в лог.
func recovery(logger *log.Entry) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithFields(log.Fields{
			"panic":  recovered,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("panic while handling request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	})
}

// bodyRecorder дублирует тело ответа, чтобы сохранить его под ключом идемпотентности.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotent повторяет сохранённый ответ для уже обработанного Idempotency-Key.
// Ключи принадлежат пользователю из заголовков шлюза. Запросы без заголовка
// обрабатываются как обычно.
func idempotent(guard *idempotency.Guard, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if guard == nil || strings.TrimSpace(key) == "" {
			c.Next()
			return
		}
		scope, err := domain.NewIdempotencyScope(actorFrom(c).ID, key)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBody+1))
		if err != nil {
			respondError(c, logger, bindError(err))
			return
		}
		if len(body) > maxIdempotentBody {
			respondError(c, logger, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxIdempotentBody))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := idempotency.RequestHash(c.Request.Method, c.Request.URL.Path, body)
		replay, err := guard.Begin(c.Request.Context(), scope, hash)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if replay != nil {
			c.Header(HeaderReplayed, "true")
			c.Data(replay.HTTPStatus, "application/json; charset=utf-8", replay.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		defer func() {
			// Ключ закрывается и после обрыва соединения клиентом, и после panic.
			ctx := context.WithoutCancel(c.Request.Context())
			if recovered := recover(); recovered != nil {
				guard.Finish(ctx, scope, domain.IdempotencyOutcome{HTTPStatus: http.StatusInternalServerError, Body: panicResponseBody})
				panic(recovered)
			}
			guard.Finish(ctx, scope, domain.IdempotencyOutcome{HTTPStatus: recorder.Status(), Body: recorder.body.Bytes()})
		}()
		c.Next()
	}
}
