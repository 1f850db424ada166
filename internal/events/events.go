// Package events публикует доменные события погашения для внешних потребителей
// (push/SMS-уведомления, аналитика). Источник истины — коммит в хранилище:
// ошибка публикации не отменяет операцию.
package events

//go:generate mockgen -destination=../../mocks/publisher.go -package=mocks github.com/pribylovaa/go-loyalty-redemption/internal/events Publisher

import (
	"context"
	"time"
)

// Типы событий.
const (
	TypeTokenIssued         = "token.issued"
	TypeRedemptionCompleted = "redemption.completed"
)

// TokenIssued — выдан токен погашения. Секреты (PIN, подпись, display-код) не публикуются.
type TokenIssued struct {
	Nonce      string    `json:"nonce"`
	UserID     string    `json:"userId"`
	OfferID    string    `json:"offerId"`
	MerchantID string    `json:"merchantId"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// RedemptionCompleted — погашение зафиксировано, баллы списаны.
type RedemptionCompleted struct {
	RedemptionID string    `json:"redemptionId"`
	UserID       string    `json:"userId"`
	OfferID      string    `json:"offerId"`
	MerchantID   string    `json:"merchantId"`
	StaffID      string    `json:"staffId,omitempty"`
	PointsCost   int64     `json:"pointsCost"`
	RedeemedAt   time.Time `json:"redeemedAt"`
}

// Publisher — контракт публикации событий.
type Publisher interface {
	TokenIssued(ctx context.Context, e TokenIssued) error
	RedemptionCompleted(ctx context.Context, e RedemptionCompleted) error
	Close() error
}

// NopPublisher отбрасывает события (kafka.brokers не заданы).
type NopPublisher struct{}

func (NopPublisher) TokenIssued(context.Context, TokenIssued) error                 { return nil }
func (NopPublisher) RedemptionCompleted(context.Context, RedemptionCompleted) error { return nil }
func (NopPublisher) Close() error                                                   { return nil }
