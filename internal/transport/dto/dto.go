// dto описывает JSON-формы запросов и ответов, общие для HTTP и gRPC (JSON-кодек)
// транспортов: каждый ответ несёт success и либо полезную нагрузку, либо error.
package dto

import (
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
)

// IssueRequest — тело запроса Issue.
type IssueRequest struct {
	UserID     string   `json:"userId"`
	OfferID    string   `json:"offerId"`
	MerchantID string   `json:"merchantId"`
	DeviceHash string   `json:"deviceHash"`
	GeoLat     *float64 `json:"geoLat,omitempty"`
	GeoLng     *float64 `json:"geoLng,omitempty"`
	PartySize  *int     `json:"partySize,omitempty"`
}

// ToModel собирает запрос сервиса; actorID — аутентифицированный субъект.
func (r IssueRequest) ToModel(actorID string) models.IssueRequest {
	return models.IssueRequest{
		RequesterID: actorID,
		UserID:      r.UserID,
		OfferID:     r.OfferID,
		MerchantID:  r.MerchantID,
		DeviceHash:  r.DeviceHash,
		GeoLat:      r.GeoLat,
		GeoLng:      r.GeoLng,
		PartySize:   r.PartySize,
	}
}

// IssueResponse — выданный токен. oneTimePin адресован только клиенту.
type IssueResponse struct {
	Success     bool      `json:"success"`
	Token       string    `json:"token"`
	DisplayCode string    `json:"displayCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
	OneTimePin  string    `json:"oneTimePin"`
}

func IssueResponseFrom(res *models.IssueResult) IssueResponse {
	return IssueResponse{
		Success:     true,
		Token:       res.Token,
		DisplayCode: res.DisplayCode,
		ExpiresAt:   res.ExpiresAt,
		OneTimePin:  res.OneTimePin,
	}
}

// VerifyPinRequest — тело запроса VerifyPin.
type VerifyPinRequest struct {
	MerchantID  string `json:"merchantId"`
	DisplayCode string `json:"displayCode"`
	Pin         string `json:"pin"`
}

func (r VerifyPinRequest) ToModel(actorID string) models.VerifyPinRequest {
	return models.VerifyPinRequest{
		ActorID:     actorID,
		MerchantID:  r.MerchantID,
		DisplayCode: r.DisplayCode,
		Pin:         r.Pin,
	}
}

type VerifyPinResponse struct {
	Success      bool   `json:"success"`
	TokenNonce   string `json:"tokenNonce"`
	OfferTitle   string `json:"offerTitle"`
	CustomerName string `json:"customerName"`
	PointsCost   int64  `json:"pointsCost"`
}

func VerifyPinResponseFrom(res *models.VerifyPinResult) VerifyPinResponse {
	return VerifyPinResponse{
		Success:      true,
		TokenNonce:   res.TokenNonce,
		OfferTitle:   res.OfferTitle,
		CustomerName: res.CustomerName,
		PointsCost:   res.PointsCost,
	}
}

// FinalizeRequest — тело запроса Finalize: token или displayCode.
type FinalizeRequest struct {
	Token          string `json:"token,omitempty"`
	DisplayCode    string `json:"displayCode,omitempty"`
	MerchantID     string `json:"merchantId"`
	StaffID        string `json:"staffId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

func (r FinalizeRequest) ToModel(actorID string) models.FinalizeRequest {
	return models.FinalizeRequest{
		ActorID:        actorID,
		Token:          r.Token,
		DisplayCode:    r.DisplayCode,
		MerchantID:     r.MerchantID,
		StaffID:        r.StaffID,
		IdempotencyKey: r.IdempotencyKey,
	}
}

type FinalizeResponse struct {
	Success       bool   `json:"success"`
	RedemptionID  string `json:"redemptionId"`
	OfferTitle    string `json:"offerTitle"`
	CustomerName  string `json:"customerName"`
	PointsAwarded int64  `json:"pointsAwarded"`
	Replayed      bool   `json:"replayed,omitempty"`
}

func FinalizeResponseFrom(res *models.FinalizeResult) FinalizeResponse {
	return FinalizeResponse{
		Success:       true,
		RedemptionID:  res.RedemptionID,
		OfferTitle:    res.OfferTitle,
		CustomerName:  res.CustomerName,
		PointsAwarded: res.PointsAwarded,
		Replayed:      res.Replayed,
	}
}
