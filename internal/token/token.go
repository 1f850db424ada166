// Package token реализует проводной формат подписанного токена погашения:
//
//	base64(JSON{userId, offerId, merchantId, deviceHash, geoLat?, geoLng?, partySize?,
//	            timestamp, expiresAt, nonce, signature})
//
// signature = hex(HMAC-SHA256(secret, JSON(все поля, кроме signature))).
// Порядок полей фиксирован структурой Payload, поэтому сериализация детерминирована.
// Проверка подписи не обращается к хранилищу.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformed — токен не декодируется (base64/JSON) или в нём нет подписи.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature — подпись не совпадает с пересчитанной.
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Payload — подписываемая часть токена. Время в Unix-миллисекундах.
type Payload struct {
	UserID     string   `json:"userId"`
	OfferID    string   `json:"offerId"`
	MerchantID string   `json:"merchantId"`
	DeviceHash string   `json:"deviceHash"`
	GeoLat     *float64 `json:"geoLat,omitempty"`
	GeoLng     *float64 `json:"geoLng,omitempty"`
	PartySize  *int     `json:"partySize,omitempty"`
	Timestamp  int64    `json:"timestamp"`
	ExpiresAt  int64    `json:"expiresAt"`
	Nonce      string   `json:"nonce"`
}

// signed — Payload с подписью, порядок полей совпадает.
type signed struct {
	Payload
	Signature string `json:"signature"`
}

// IssuedAt возвращает момент выдачи.
func (p Payload) IssuedAt() time.Time { return time.UnixMilli(p.Timestamp).UTC() }

// Expiry возвращает момент истечения.
func (p Payload) Expiry() time.Time { return time.UnixMilli(p.ExpiresAt).UTC() }

// Expired сообщает, что now > expiresAt.
func (p Payload) Expired(now time.Time) bool { return now.UnixMilli() > p.ExpiresAt }

// Sign возвращает hex(HMAC-SHA256(secret, JSON(p))).
func Sign(secret []byte, p Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("token.Sign: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Encode подписывает payload и упаковывает его в проводной формат.
func Encode(secret []byte, p Payload) (string, error) {
	sig, err := Sign(secret, p)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(signed{Payload: p, Signature: sig})
	if err != nil {
		return "", fmt.Errorf("token.Encode: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode распаковывает токен без проверки подписи.
func Decode(tok string) (Payload, string, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return Payload{}, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var s signed
	if err := json.Unmarshal(raw, &s); err != nil {
		return Payload{}, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if s.Signature == "" || s.Nonce == "" {
		return Payload{}, "", ErrMalformed
	}

	return s.Payload, s.Signature, nil
}

// Verify распаковывает токен и сверяет подпись за постоянное время.
// Срок действия не проверяется: это решает вызывающий.
func Verify(secret []byte, tok string) (Payload, error) {
	p, sig, err := Decode(tok)
	if err != nil {
		return Payload{}, err
	}

	want, err := Sign(secret, p)
	if err != nil {
		return Payload{}, err
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return Payload{}, ErrInvalidSignature
	}
	exp, _ := hex.DecodeString(want)

	if !hmac.Equal(got, exp) {
		return Payload{}, ErrInvalidSignature
	}

	return p, nil
}
