package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "nexart.backend/internal/domain/errors"
	"nexart.backend/internal/interfaces/http/middleware"
	"nexart.backend/internal/interfaces/http/response"
)

type AccountHandler struct {
	accountUsecase AccountService
}

func NewAccountHandler(accountUsecase AccountService) *AccountHandler {
	return &AccountHandler{accountUsecase: accountUsecase}
}

// GetPlan returns the account's plan, usage, and key slots
// GET /api/v1/account/plan
func (h *AccountHandler) GetPlan(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Error(c, domainerrors.Unauthorized("not authenticated"))
		return
	}

	summary, err := h.accountUsecase.PlanSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
