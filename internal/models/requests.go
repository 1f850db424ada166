package models

import "time"

// IssueRequest — запрос на выдачу токена погашения.
// RequesterID — аутентифицированный субъект, выставляется транспортом.
type IssueRequest struct {
	RequesterID string
	UserID      string
	OfferID     string
	MerchantID  string
	DeviceHash  string
	GeoLat      *float64
	GeoLng      *float64
	PartySize   *int
}

// IssueResult — выданный токен.
type IssueResult struct {
	Token       string
	DisplayCode string
	ExpiresAt   time.Time
	// OneTimePin возвращается только владельцу токена (клиенту), мерчант его не видит.
	OneTimePin string
}

// VerifyPinRequest — проверка PIN сотрудником мерчанта.
type VerifyPinRequest struct {
	ActorID     string
	MerchantID  string
	DisplayCode string
	Pin         string
}

// VerifyPinResult — данные для отображения после успешной проверки PIN.
type VerifyPinResult struct {
	TokenNonce   string
	OfferTitle   string
	CustomerName string
	PointsCost   int64
}

// FinalizeRequest — финальное погашение по подписанному токену или display-коду.
type FinalizeRequest struct {
	ActorID        string
	Token          string
	DisplayCode    string
	MerchantID     string
	StaffID        string
	IdempotencyKey string
}

// FinalizeResult — результат погашения.
type FinalizeResult struct {
	RedemptionID  string
	OfferTitle    string
	CustomerName  string
	PointsAwarded int64
	// Replayed — ответ восстановлен по ключу идемпотентности, повторного списания не было.
	Replayed bool
}
