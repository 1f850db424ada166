// handlers — HTTP-обработчики протокола погашения. Тела разбираются строго
// (неизвестные поля запрещены), актор берётся из контекста, ошибки уходят
// через apierrors.WriteError.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
)

// Redemption — операции сервиса, которые обслуживает HTTP-слой.
//
//go:generate mockgen -destination=../../../../mocks/redemption.go -package=mocks github.com/pribylovaa/go-loyalty-redemption/internal/transport/http/handlers Redemption
type Redemption interface {
	Issue(ctx context.Context, in models.IssueRequest) (*models.IssueResult, error)
	VerifyPin(ctx context.Context, in models.VerifyPinRequest) (*models.VerifyPinResult, error)
	Finalize(ctx context.Context, in models.FinalizeRequest) (*models.FinalizeResult, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc Redemption
}

func New(svc Redemption) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый JSON-ответ с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
