package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ModerationStatus - статус модерации отзыва.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "Pendente"
	ModerationApproved ModerationStatus = "Aprovado"
	ModerationRejected ModerationStatus = "Rejeitado"
)

// Valid проверяет статус модерации.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	default:
		return false
	}
}

// ResolveAction - решение администратора по жалобе на отзыв.
type ResolveAction string

const (
	ResolveRemove ResolveAction = "remove"
	ResolveKeep   ResolveAction = "keep"
)

// Valid проверяет действие.
func (a ResolveAction) Valid() bool {
	return a == ResolveRemove || a == ResolveKeep
}

const (
	MinReviewScore      = 1
	MaxReviewScore      = 5
	maxReviewCommentLen = 1000
)

// Review - отзыв клиента о товаре.
type Review struct {
	ID         int64
	ProductID  int64
	CustomerID string
	Score      int
	Comment    string
	CreatedAt  time.Time
	Reported   bool
	Status     ModerationStatus
	Version    int64
}

// Validate проверяет оценку и комментарий до сохранения.
func (r *Review) Validate() error {
	v := &ValidationError{}

	if r.ProductID <= 0 {
		v.Add("product_id", "is required")
	}
	if r.CustomerID == "" {
		v.Add("customer_id", "is required")
	}
	if r.Score < MinReviewScore || r.Score > MaxReviewScore {
		v.Add("score", fmt.Sprintf("must be between %d and %d", MinReviewScore, MaxReviewScore))
	}
	if utf8.RuneCountInString(r.Comment) > maxReviewCommentLen {
		v.Add("comment", fmt.Sprintf("must be at most %d characters", maxReviewCommentLen))
	}
	if !r.Status.Valid() {
		v.Add("status", "is unknown")
	}

	return v.OrNil()
}
