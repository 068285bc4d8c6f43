package purchase

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-topup-wallet/internal/vendor"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

type PurchaseRequest struct {
	Request
	Pin string `json:"pin"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	var req PurchaseRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}
	req.Service = vendor.ServiceType(mux.Vars(r)["service"])

	mainWallet, err := h.Service.Wallets.GetWallet(r.Context(), userID, wallet.KindMain)
	if err != nil {
		h.purchaseError(w, r, err)
		return
	}
	if err := wallet.VerifyPin(mainWallet, req.Pin); err != nil {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid transaction PIN", nil)
		return
	}

	result, err := h.Service.Purchase(r.Context(), userID, req.Request)
	if err != nil {
		h.purchaseError(w, r, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Purchase successful", result)
}

func (h *Handler) ValidateSmartCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customer, err := h.Service.ValidateSmartCard(r.Context(), q.Get("plan_id"), q.Get("smart_card_number"))
	if err != nil {
		h.purchaseError(w, r, err)
		return
	}
	utils.BuildSuccessResponse(w, http.StatusOK, "Smart card validated", customer)
}

func (h *Handler) ValidateMeter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customer, err := h.Service.ValidateMeter(r.Context(), q.Get("disco_id"), q.Get("meter_type"), q.Get("meter_number"))
	if err != nil {
		h.purchaseError(w, r, err)
		return
	}
	utils.BuildSuccessResponse(w, http.StatusOK, "Meter validated", customer)
}

func (h *Handler) purchaseError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		perr *ParamError
		verr *vendor.Error
	)
	switch {
	case errors.As(err, &perr):
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Missing required parameters", perr.Fields)
	case errors.Is(err, ErrUnsupportedService):
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Unsupported service", nil)
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidAmount):
		utils.BuildErrorResponse(w, http.StatusBadRequest, ErrInvalidAmount.Error(), nil)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Insufficient balance", nil)
	case errors.Is(err, wallet.ErrWalletNotFound):
		utils.BuildErrorResponse(w, http.StatusNotFound, "Wallet not found", nil)
	case errors.As(err, &verr):
		utils.BuildErrorResponse(w, http.StatusPaymentRequired, verr.Message, nil)
	default:
		logger.Error("Purchase request failed", logger.Merge(logger.WithError(err), logger.Fields{
			logger.RequestIDKey: utils.RequestIDFromContext(r.Context()),
		}))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Purchase could not be completed", nil)
	}
}
