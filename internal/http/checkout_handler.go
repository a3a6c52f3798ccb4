package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/omega-fast-coder/panoptikon/internal/checkout"
	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// CheckoutFlow is what the checkout endpoints need from the checkout state
// machine.
type CheckoutFlow interface {
	Current(ctx context.Context, sessionID string) (*checkout.Session, error)
	SetCustomerInfo(ctx context.Context, sessionID string, info domain.CustomerInfo) (*checkout.Session, error)
	SetPaymentInfo(ctx context.Context, sessionID string, info domain.PaymentInfo) (*checkout.Session, error)
	Advance(ctx context.Context, sessionID string) (*checkout.Session, error)
	Back(ctx context.Context, sessionID string) (*checkout.Session, error)
	Reset(sessionID string)
}

type CheckoutHandler struct {
	flow CheckoutFlow
}

func NewCheckoutHandler(flow CheckoutFlow) *CheckoutHandler {
	return &CheckoutHandler{flow: flow}
}

type AdvanceRequestDTO struct {
	CustomerInfo *domain.CustomerInfo `json:"customer_info,omitempty"`
	PaymentInfo  *domain.PaymentInfo  `json:"payment_info,omitempty"`
}

func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	session, err := h.flow.Current(r.Context(), sessionID)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Advance optionally stores customer and payment info from the request body
// before attempting the stage transition, so a client can submit a form and
// move forward in one call.
func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	var req AdvanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.CustomerInfo != nil {
		if _, err := h.flow.SetCustomerInfo(r.Context(), sessionID, *req.CustomerInfo); err != nil {
			respondCheckoutError(w, err)
			return
		}
	}
	if req.PaymentInfo != nil {
		if _, err := h.flow.SetPaymentInfo(r.Context(), sessionID, *req.PaymentInfo); err != nil {
			respondCheckoutError(w, err)
			return
		}
	}

	session, err := h.flow.Advance(r.Context(), sessionID)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	session, err := h.flow.Back(r.Context(), sessionID)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *CheckoutHandler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	h.flow.Reset(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidationError(w, verr.Fields)
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrOrderInProgress):
		respondError(w, http.StatusConflict, "order_in_progress", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
