package wallet

import (
	"errors"
	"net/http"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

type Handler struct {
	Repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{Repo: repo}
}

type CreateWalletRequest struct {
	Pin string `json:"pin"`
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	var req CreateWalletRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request", map[string]string{"error": err.Error()})
		return
	}

	pinHash, err := HashPin(req.Pin)
	if errors.Is(err, ErrPinFormat) {
		utils.BuildErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to secure PIN", nil)
		return
	}

	wallet, err := h.Repo.CreateWallets(r.Context(), userID, pinHash)
	if errors.Is(err, ErrWalletExists) {
		utils.BuildErrorResponse(w, http.StatusConflict, "User already has a wallet", nil)
		return
	}
	if err != nil {
		logger.Error("Failed to create wallets", logger.Merge(logger.WithError(err), logger.Fields{logger.UserIdKey: userID.String()}))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to create wallet", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, "Wallet created successfully", map[string]interface{}{
		"id":      wallet.ID,
		"balance": wallet.Balance,
	})
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())

	mainWallet, err := h.Repo.GetWallet(r.Context(), userID, KindMain)
	if err != nil {
		h.walletError(w, err)
		return
	}
	cashback, err := h.Repo.GetWallet(r.Context(), userID, KindCashback)
	if err != nil {
		h.walletError(w, err)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Wallet Details", map[string]interface{}{
		"main": mainWallet,
		"cashback": map[string]interface{}{
			"balance":         cashback.Balance,
			"total_earned":    cashback.TotalEarned,
			"total_withdrawn": cashback.TotalWithdrawn,
		},
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())
	page := utils.GetPagination(r)

	txs, err := h.Repo.GetTransactions(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to fetch transactions", nil)
		return
	}

	count, _ := h.Repo.CountTransactions(r.Context(), userID)

	utils.BuildSuccessResponse(w, http.StatusOK, "Transaction History", map[string]interface{}{
		"transactions": txs,
		"meta":         page.Meta(count),
	})
}

func (h *Handler) GetCashbackTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())
	page := utils.GetPagination(r)

	txs, count, err := h.Repo.GetCashbackTransactions(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to fetch cashback history", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Cashback History", map[string]interface{}{
		"transactions": txs,
		"meta":         page.Meta(count),
	})
}

func (h *Handler) walletError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrWalletNotFound) {
		utils.BuildErrorResponse(w, http.StatusNotFound, "Wallet not found", nil)
		return
	}
	utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to load wallet", nil)
}
