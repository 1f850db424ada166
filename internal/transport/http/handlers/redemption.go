package handlers

import (
	"fmt"
	"net/http"

	"github.com/pribylovaa/go-loyalty-redemption/internal/auth"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/dto"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/http/apierrors"
)

// Issue — POST /v1/redemption-tokens: клиент получает токен, display-код и PIN.
func (h *Handlers) Issue(w http.ResponseWriter, r *http.Request) {
	var in dto.IssueRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %v", apierrors.ErrInvalidBody, err))
		return
	}

	res, err := h.svc.Issue(r.Context(), in.ToModel(auth.ActorFrom(r.Context())))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IssueResponseFrom(res))
}

// VerifyPin — POST /v1/redemption-tokens/verify-pin: сотрудник мерчанта проверяет PIN.
func (h *Handlers) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var in dto.VerifyPinRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %v", apierrors.ErrInvalidBody, err))
		return
	}

	res, err := h.svc.VerifyPin(r.Context(), in.ToModel(auth.ActorFrom(r.Context())))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerifyPinResponseFrom(res))
}

// Finalize — POST /v1/redemptions: погашение и списание баллов.
func (h *Handlers) Finalize(w http.ResponseWriter, r *http.Request) {
	var in dto.FinalizeRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %v", apierrors.ErrInvalidBody, err))
		return
	}

	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	res, err := h.svc.Finalize(r.Context(), in.ToModel(auth.ActorFrom(r.Context())))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FinalizeResponseFrom(res))
}
