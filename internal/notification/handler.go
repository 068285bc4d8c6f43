package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

type Handler struct {
	Repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())
	page := utils.GetPagination(r)

	list, count, err := h.Repo.List(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to fetch notifications", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Notifications", map[string]interface{}{
		"notifications": list,
		"meta":          page.Meta(count),
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.UserIDFromContext(r.Context())

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid notification id", nil)
		return
	}

	err = h.Repo.MarkRead(r.Context(), userID, id)
	if errors.Is(err, ErrNotFound) {
		utils.BuildErrorResponse(w, http.StatusNotFound, "Notification not found", nil)
		return
	}
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to update notification", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "Notification marked as read", nil)
}
