package cashback

import (
	"errors"
	"net/http"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	result, err := h.Service.Withdraw(r.Context(), userID)
	switch {
	case err == nil:
		utils.BuildSuccessResponse(w, http.StatusOK, "Cashback withdrawn successfully", result)
	case errors.Is(err, ErrNotFound):
		utils.BuildErrorResponse(w, http.StatusNotFound, "Wallet not found", nil)
	case errors.Is(err, ErrBelowMinimum):
		utils.BuildErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrTransferFailed):
		utils.BuildErrorResponse(w, http.StatusConflict, "Cashback transfer failed, please try again", nil)
	default:
		logger.Error("Cashback withdrawal failed", logger.Merge(logger.WithError(err), logger.Fields{
			logger.UserIdKey: userID.String(),
		}))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to withdraw cashback", nil)
	}
}
