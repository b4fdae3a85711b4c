// Package http exposes the rewards API over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/service"
	apperrors "github.com/lumistore/rewards/pkg/errors"
	"github.com/lumistore/rewards/pkg/validator"
)

// RewardsHandler handles HTTP requests for the rewards endpoints.
type RewardsHandler struct {
	spins   *service.SpinService
	coupons *service.CouponService
	rules   *service.RuleService
	logger  *slog.Logger
}

// NewRewardsHandler creates a new rewards HTTP handler.
func NewRewardsHandler(spins *service.SpinService, coupons *service.CouponService, rules *service.RuleService, logger *slog.Logger) *RewardsHandler {
	return &RewardsHandler{
		spins:   spins,
		coupons: coupons,
		rules:   rules,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SpinRequest is the JSON request body for performing a spin.
type SpinRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Kind       string `json:"kind" validate:"omitempty,oneof=FREE POINTS_EXCHANGE"`
}

// ValidateCouponRequest is the JSON request body for validating a coupon.
// Subtotal is a decimal string to keep money exact on the wire.
type ValidateCouponRequest struct {
	Code     string `json:"code" validate:"required,max=50"`
	Subtotal string `json:"subtotal" validate:"required"`
}

// RedeemCouponRequest is the JSON request body for redeeming a coupon.
type RedeemCouponRequest struct {
	Code     string `json:"code" validate:"required,max=50"`
	OrderID  string `json:"order_id" validate:"required"`
	Subtotal string `json:"subtotal" validate:"required"`
}

// EvaluateEventRequest is the JSON request body for an event trigger.
type EvaluateEventRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- Handlers ---

// GetWheel handles GET /api/v1/wheel
func (h *RewardsHandler) GetWheel(w http.ResponseWriter, r *http.Request) {
	wheel, err := h.spins.GetWheel(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: wheel})
}

// GetSpinStatus handles GET /api/v1/wheel/status/{customerID}
func (h *RewardsHandler) GetSpinStatus(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "customer id is required"},
		})
		return
	}

	status, err := h.spins.GetSpinStatus(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: status})
}

// Spin handles POST /api/v1/wheel/spin
func (h *RewardsHandler) Spin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req SpinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	kind := domain.SpinKind(req.Kind)
	if req.Kind == "" {
		kind = domain.SpinFree
	}

	result, err := h.spins.Spin(r.Context(), &service.SpinInput{
		CustomerID: req.CustomerID,
		Kind:       kind,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

// ListCustomerCoupons handles GET /api/v1/customers/{customerID}/coupons
func (h *RewardsHandler) ListCustomerCoupons(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "customer id is required"},
		})
		return
	}

	coupons, err := h.coupons.ListCustomerCoupons(r.Context(), customerID, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: coupons})
}

// ValidateCoupon handles POST /api/v1/coupons/validate
func (h *RewardsHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	subtotal, ok := h.parseSubtotal(w, req.Subtotal)
	if !ok {
		return
	}

	result, err := h.coupons.Validate(r.Context(), &service.ValidateInput{
		Code:     req.Code,
		Subtotal: subtotal,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

// RedeemCoupon handles POST /api/v1/coupons/redeem
func (h *RewardsHandler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req RedeemCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	subtotal, ok := h.parseSubtotal(w, req.Subtotal)
	if !ok {
		return
	}

	result, err := h.coupons.Redeem(r.Context(), &service.RedeemInput{
		Code:     req.Code,
		OrderID:  req.OrderID,
		Subtotal: subtotal,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

// EvaluateEvent handles POST /api/v1/events/evaluate
func (h *RewardsHandler) EvaluateEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req EvaluateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	issued, err := h.rules.EvaluateEvent(r.Context(), &service.EvaluateEventInput{
		CustomerID: req.CustomerID,
		Kind:       domain.EventKind(req.Kind),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: issued})
}

// --- Helpers ---

func (h *RewardsHandler) parseSubtotal(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	subtotal, err := decimal.NewFromString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "subtotal must be a decimal string"},
		})
		return decimal.Decimal{}, false
	}
	return subtotal, true
}

func (h *RewardsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func (h *RewardsHandler) writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
