package handlers

import (
	"errors"
	"net/http"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/common"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/labstack/echo/v4"
)

// AccountHandlers handles HTTP requests for account registration and lookup.
type AccountHandlers struct {
	accountService services.AccountService
}

// NewAccountHandlers creates a new account handlers instance
func NewAccountHandlers(accountService services.AccountService) *AccountHandlers {
	return &AccountHandlers{accountService: accountService}
}

// CreateAccount handles POST /accounts
func (h *AccountHandlers) CreateAccount(c echo.Context) error {
	var req services.CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	account, err := h.accountService.Create(c.Request().Context(), &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return common.SendClientError(c, verr.Error())
		}
		var cerr *services.ConflictError
		if errors.As(err, &cerr) {
			return common.SendConflictError(c, cerr.Error())
		}
		return common.SendServerError(c, "Failed to create account")
	}
	return c.JSON(http.StatusCreated, account)
}

// GetMe handles GET /accounts/me
func (h *AccountHandlers) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	account, err := h.accountService.GetByID(ctx, accountID)
	if err != nil {
		var nferr *services.NotFoundError
		if errors.As(err, &nferr) {
			return common.SendNotFoundError(c, "account")
		}
		return common.SendServerError(c, "Failed to load account")
	}
	return c.JSON(http.StatusOK, account)
}
