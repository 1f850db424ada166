package models

import "time"

// Статусы подписки клиента и мерчанта.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Customer — клиент программы лояльности (read-only представление для ядра;
// изменяется только баланс и только относительным списанием).
type Customer struct {
	ID                 string
	Name               string
	PointsBalance      int64
	SubscriptionStatus string
	SubscriptionExpiry time.Time
}

// HasActiveSubscription сообщает, активна ли подписка клиента на момент now.
func (c *Customer) HasActiveSubscription(now time.Time) bool {
	return c.SubscriptionStatus == SubscriptionActive && c.SubscriptionExpiry.After(now)
}

// Offer — предложение мерчанта, за которое списываются баллы.
type Offer struct {
	ID         string
	MerchantID string
	Title      string
	PointsCost int64
	Active     bool
}

// Merchant — партнёр, принимающий погашения.
type Merchant struct {
	ID                 string
	Name               string
	SubscriptionStatus string
	// GracePeriodEnd — конец льготного периода после просрочки оплаты (nil — периода нет).
	GracePeriodEnd *time.Time
}

// CanTransact сообщает, может ли мерчант проводить погашения на момент now:
// подписка активна либо просрочена, но льготный период ещё не закончился.
func (m *Merchant) CanTransact(now time.Time) bool {
	switch m.SubscriptionStatus {
	case SubscriptionActive:
		return true
	case SubscriptionPastDue:
		return m.GracePeriodEnd != nil && now.Before(*m.GracePeriodEnd)
	default:
		return false
	}
}
