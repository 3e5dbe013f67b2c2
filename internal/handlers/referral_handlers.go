package handlers

import (
	"net/http"
	"strconv"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/common"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/labstack/echo/v4"
)

// ReferralHandlers exposes the caller's referral list and lifetime stats.
type ReferralHandlers struct {
	referralService services.ReferralService
	accountService  services.AccountService
}

// NewReferralHandlers creates a new referral handlers instance
func NewReferralHandlers(referralService services.ReferralService, accountService services.AccountService) *ReferralHandlers {
	return &ReferralHandlers{
		referralService: referralService,
		accountService:  accountService,
	}
}

// ListReferrals handles GET /referrals
func (h *ReferralHandlers) ListReferrals(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	referrals, stats, err := h.referralService.ListForReferrer(ctx, accountID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list referrals")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"referrals": referrals,
		"stats":     stats,
	})
}

// MyReferralCode handles GET /referrals/code
func (h *ReferralHandlers) MyReferralCode(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	account, err := h.accountService.GetByID(ctx, accountID)
	if err != nil {
		return common.SendServerError(c, "Failed to load account")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"referral_code": account.ReferralCode,
	})
}
