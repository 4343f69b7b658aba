package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/interfaces/http/middleware"
	"nexart.backend/internal/interfaces/http/response"
)

// KeyLifecycleService is the API key lifecycle as the dashboard drives it.
type KeyLifecycleService interface {
	Provision(ctx context.Context, account *entities.Account, input *entities.CreateApiKeyInput) (*entities.CreateApiKeyResponse, error)
	Rotate(ctx context.Context, account *entities.Account, keyID uuid.UUID) (*entities.CreateApiKeyResponse, error)
	Revoke(ctx context.Context, account *entities.Account, keyID uuid.UUID) error
	List(ctx context.Context, accountID uuid.UUID) ([]*entities.ApiKeyListItem, error)
}

// AccountService resolves the session user to an account.
type AccountService interface {
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*entities.Account, error)
	PlanSummary(ctx context.Context, userID uuid.UUID) (*entities.PlanSummary, error)
}

type ApiKeyHandler struct {
	apiKeyUsecase  KeyLifecycleService
	accountUsecase AccountService
}

func NewApiKeyHandler(apiKeyUsecase KeyLifecycleService, accountUsecase AccountService) *ApiKeyHandler {
	return &ApiKeyHandler{
		apiKeyUsecase:  apiKeyUsecase,
		accountUsecase: accountUsecase,
	}
}

// CreateApiKey mints a new key for the session user's account
// POST /api/v1/keys
func (h *ApiKeyHandler) CreateApiKey(c *gin.Context) {
	var input entities.CreateApiKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("label is required"))
		return
	}

	account, err := h.sessionAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp, err := h.apiKeyUsecase.Provision(c.Request.Context(), account, &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp)
}

// ListApiKeys lists the account's keys
// GET /api/v1/keys
func (h *ApiKeyHandler) ListApiKeys(c *gin.Context) {
	account, err := h.sessionAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.apiKeyUsecase.List(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"keys": items})
}

// RotateApiKey revokes the key and returns its replacement
// POST /api/v1/keys/:id/rotate
func (h *ApiKeyHandler) RotateApiKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid key id"))
		return
	}

	account, aerr := h.sessionAccount(c)
	if aerr != nil {
		response.Error(c, aerr)
		return
	}

	resp, err := h.apiKeyUsecase.Rotate(c.Request.Context(), account, keyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// RevokeApiKey revokes a key
// DELETE /api/v1/keys/:id
func (h *ApiKeyHandler) RevokeApiKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid key id"))
		return
	}

	account, aerr := h.sessionAccount(c)
	if aerr != nil {
		response.Error(c, aerr)
		return
	}

	if err := h.apiKeyUsecase.Revoke(c.Request.Context(), account, keyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *ApiKeyHandler) sessionAccount(c *gin.Context) (*entities.Account, error) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	return h.accountUsecase.EnsureForUser(c.Request.Context(), userID)
}
