package deposit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zjoart/go-topup-wallet/internal/provider"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/pkg/events"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

const maxWebhookBytes = 1 << 20

type Handler struct {
	Service  *Service
	Accounts *AccountService
	Queue    Queue
}

func NewHandler(service *Service, accounts *AccountService, queue Queue) *Handler {
	return &Handler{Service: service, Accounts: accounts, Queue: queue}
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Unable to read body", nil)
		return
	}

	signature := r.Header.Get(provider.SignatureHeader)
	result, err := h.Service.HandleNotification(r.Context(), raw, signature)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidSignature):
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Invalid signature", nil)
		return
	case errors.Is(err, ErrInvalidPayload):
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid notification", nil)
		return
	case errors.Is(err, ErrUnknownAccount):
		utils.BuildErrorResponse(w, http.StatusNotFound, "Unknown receiving account", nil)
		return
	case errors.Is(err, ErrWalletUpdateFailed):
		// a bad signature is rejected above, so a present one was verified
		h.enqueue(r, raw, signature != "", err)
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to credit wallet", nil)
		return
	default:
		logger.Error("Deposit webhook failed", logger.Merge(logger.WithError(err), logger.Fields{
			logger.RequestIDKey: utils.RequestIDFromContext(r.Context()),
		}))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to process notification", nil)
		return
	}

	msg := "Deposit credited"
	switch result.Outcome {
	case OutcomeAlreadyProcessed:
		msg = "Already processed"
	case OutcomeIgnored:
		msg = "Notification ignored"
	}
	utils.BuildSuccessResponse(w, http.StatusOK, msg, result)
}

// enqueue hands the authenticated body to the retry worker. The provider may also
// redeliver; the dedup claim keeps the two from crediting twice.
func (h *Handler) enqueue(r *http.Request, raw []byte, verified bool, cause error) {
	if h.Queue == nil {
		return
	}
	var ref struct {
		TransactionID string `json:"transaction_id"`
	}
	_ = json.Unmarshal(raw, &ref)

	err := h.Queue.PublishDeposit(r.Context(), events.DepositEvent{
		Reference: ref.TransactionID,
		Payload:   raw,
		Verified:  verified,
		Reason:    cause.Error(),
	})
	if err != nil {
		logger.Error("Failed to queue deposit for retry", logger.Merge(logger.WithError(err), logger.Fields{logger.ReferenceKey: ref.TransactionID}))
		return
	}
	logger.Info("Deposit queued for retry", logger.Fields{logger.ReferenceKey: ref.TransactionID})
}

func (h *Handler) VirtualAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	u, err := h.Accounts.VirtualAccount(r.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		utils.BuildErrorResponse(w, http.StatusNotFound, "User not found", nil)
		return
	}
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadGateway, "Failed to issue virtual account", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Virtual account", map[string]interface{}{
		"account_number": u.AccountNumber,
		"account_name":   u.AccountName,
		"bank_name":      u.BankName,
	})
}
