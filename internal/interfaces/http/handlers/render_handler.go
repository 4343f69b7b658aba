package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"nexart.backend/internal/domain/entities"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/interfaces/http/middleware"
	"nexart.backend/internal/interfaces/http/response"
	"nexart.backend/internal/usecases"
)

// RenderService runs one quota-gated render.
type RenderService interface {
	Execute(ctx context.Context, account *entities.Account, key *entities.ApiKey, spec json.RawMessage) (*usecases.RenderResult, error)
}

type RenderHandler struct {
	renderUsecase RenderService
}

func NewRenderHandler(renderUsecase RenderService) *RenderHandler {
	return &RenderHandler{renderUsecase: renderUsecase}
}

// CreateRender runs one metered render for the authenticated API key
// POST /api/v1/renders
func (h *RenderHandler) CreateRender(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("not authenticated"))
		return
	}
	key, ok := middleware.GetApiKey(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("not authenticated"))
		return
	}

	var input struct {
		Spec json.RawMessage `json:"spec" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("render spec is required"))
		return
	}

	result, err := h.renderUsecase.Execute(c.Request.Context(), account, key, input.Spec)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result.StatusCode, result)
}
