package models

import "time"

// RedemptionStatusCompleted — единственный статус погашения в протоколе.
const RedemptionStatusCompleted = "completed"

// Redemption — неизменяемая запись о погашении (аудит и расчёт баллов).
type Redemption struct {
	ID         string
	UserID     string
	OfferID    string
	MerchantID string
	// StaffID — сотрудник мерчанта, проводивший погашение (может быть пустым).
	StaffID    string
	TokenNonce string
	// PointsCost копируется из предложения в момент погашения.
	PointsCost int64
	Status     string
	RedeemedAt time.Time
	// ActorID и IdempotencyKey позволяют безопасно повторять Finalize.
	ActorID        string
	IdempotencyKey string
}

// RateLimitCounter — счётчик попыток операции в скользящем часовом окне.
type RateLimitCounter struct {
	Key             string
	AttemptCount    int
	WindowStartedAt time.Time
	LastAttemptAt   time.Time
}
