package key

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/zjoart/go-topup-wallet/pkg/config"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

type Handler struct {
	Config config.Config
	Repo   Repository
}

func NewHandler(cfg config.Config, repo Repository) *Handler {
	return &Handler{Config: cfg, Repo: repo}
}

type CreateKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Expiry      string   `json:"expiry"`
}

type RolloverKeyRequest struct {
	ExpiredKeyID string `json:"expired_key_id"`
	Expiry       string `json:"expiry"`
}

type RevokeKeyRequest struct {
	KeyID string `json:"key_id"`
}

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	var req CreateKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	validPerms, err := validatePermissions(req.Permissions)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	expiresAt, err := parseExpiry(req.Expiry)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid expiry format. Use 1H, 1D, 1M, 1Y", nil)
		return
	}

	h.issue(w, r, userID, req.Name, validPerms, expiresAt, "API Key created, This key will only be shown once. Please save it securely.")
}

func (h *Handler) RolloverAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	var req RolloverKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	keyID, err := uuid.Parse(req.ExpiredKeyID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid key id", nil)
		return
	}

	oldKey, err := h.Repo.GetKey(r.Context(), keyID, userID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusNotFound, "Expired key not found", nil)
		return
	}
	if oldKey.IsRevoked {
		utils.BuildErrorResponse(w, http.StatusForbidden, "Key has been revoked", nil)
		return
	}
	if time.Now().Before(oldKey.ExpiresAt) {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Key is not expired yet", nil)
		return
	}

	expiresAt, err := parseExpiry(req.Expiry)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid expiry format", nil)
		return
	}

	h.issue(w, r, userID, oldKey.Name, oldKey.Permissions, expiresAt, "API Key rolled over, This key will only be shown once. Please save it securely.")
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, userID uuid.UUID, name string, perms []string, expiresAt time.Time, msg string) {
	count, err := h.Repo.CountActiveKeys(r.Context(), userID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to count keys", nil)
		return
	}
	if count >= int64(h.Config.MaxActiveKeys) {
		utils.BuildErrorResponse(w, http.StatusForbidden, fmt.Sprintf("Maximum of %d active keys allowed", h.Config.MaxActiveKeys), nil)
		return
	}

	keyString, err := generateSecureKey()
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to generate key", nil)
		return
	}

	apiKey := APIKey{
		UserID:      userID,
		Name:        name,
		Key:         hashKey(keyString),
		MaskedKey:   maskKey(keyString),
		Permissions: pq.StringArray(perms),
		ExpiresAt:   expiresAt,
	}
	if err := h.Repo.CreateKey(r.Context(), &apiKey); err != nil {
		logger.Error("Failed to create API key", logger.Merge(logger.WithError(err), logger.Fields{logger.UserIdKey: userID.String()}))
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to create API key", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusCreated, msg, map[string]interface{}{
		"id":          apiKey.ID,
		"api_key":     keyString,
		"masked_key":  apiKey.MaskedKey,
		"permissions": apiKey.Permissions,
		"expires_at":  apiKey.ExpiresAt,
	})
}

func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	var req RevokeKeyRequest
	if status, err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.BuildErrorResponse(w, status, "Invalid request body", map[string]string{"error": err.Error()})
		return
	}

	keyID, err := uuid.Parse(req.KeyID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusBadRequest, "Invalid key id", nil)
		return
	}

	if err := h.Repo.RevokeKey(r.Context(), keyID, userID); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			utils.BuildErrorResponse(w, http.StatusNotFound, "Key not found", nil)
		} else {
			utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to revoke key", nil)
		}
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "API Key revoked successfully", nil)
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.UserIDFromContext(r.Context())
	if !ok {
		utils.BuildErrorResponse(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	keys, err := h.Repo.GetKeysByUserID(r.Context(), userID)
	if err != nil {
		utils.BuildErrorResponse(w, http.StatusInternalServerError, "Failed to fetch keys", nil)
		return
	}

	utils.BuildSuccessResponse(w, http.StatusOK, "API Keys retrieved", keys)
}

func parseExpiry(expiry string) (time.Time, error) {
	now := time.Now()
	switch strings.ToUpper(expiry) {
	case "1H":
		return now.Add(time.Hour), nil
	case "1D":
		return now.Add(24 * time.Hour), nil
	case "1M":
		return now.Add(30 * 24 * time.Hour), nil
	case "1Y":
		return now.Add(365 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid format")
	}
}

func generateSecureKey() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "sk_live_" + hex.EncodeToString(bytes), nil
}

func validatePermissions(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("at least one permission is required")
	}

	var normalized []string
	for _, p := range requested {
		upperP := Permission(strings.ToUpper(strings.TrimSpace(p)))
		isValid := false
		for _, allowed := range AllowedPermissions {
			if upperP == allowed {
				isValid = true
				break
			}
		}
		if !isValid {
			return nil, fmt.Errorf("invalid permission: %s", p)
		}
		normalized = append(normalized, string(upperP))
	}
	return normalized, nil
}

func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
