package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/common"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/labstack/echo/v4"
)

// ResellerHandlers exposes the reseller surface: branding and caps, customer
// listing, the commission tier table, and the period lifecycle.
type ResellerHandlers struct {
	resellerService   services.ResellerService
	commissionService services.CommissionService
	accountService    services.AccountService
	statementStore    services.StatementStore
}

// NewResellerHandlers creates a new reseller handlers instance
func NewResellerHandlers(
	resellerService services.ResellerService,
	commissionService services.CommissionService,
	accountService services.AccountService,
	statementStore services.StatementStore,
) *ResellerHandlers {
	return &ResellerHandlers{
		resellerService:   resellerService,
		commissionService: commissionService,
		accountService:    accountService,
		statementStore:    statementStore,
	}
}

// GetSettings handles GET /reseller/settings
func (h *ResellerHandlers) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	settings, err := h.resellerService.GetSettings(ctx, accountID)
	if err != nil {
		var nferr *services.NotFoundError
		if errors.As(err, &nferr) {
			return common.SendNotFoundError(c, "reseller settings")
		}
		return common.SendServerError(c, "Failed to load reseller settings")
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /reseller/settings
func (h *ResellerHandlers) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req models.ResellerSettings
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	req.AccountID = accountID

	settings, err := h.resellerService.UpdateSettings(ctx, &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return common.SendClientError(c, verr.Error())
		}
		return common.SendServerError(c, "Failed to update reseller settings")
	}
	return c.JSON(http.StatusOK, settings)
}

// GetLimits handles GET /reseller/limits
func (h *ResellerHandlers) GetLimits(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limits, err := h.resellerService.Limits(ctx, accountID)
	if err != nil {
		return common.SendServerError(c, "Failed to load reseller limits")
	}
	return c.JSON(http.StatusOK, limits)
}

// ListCustomers handles GET /reseller/customers
func (h *ResellerHandlers) ListCustomers(c echo.Context) error {
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

	customers, err := h.accountService.ListCustomersOfReseller(ctx, accountID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list customers")
	}
	return c.JSON(http.StatusOK, customers)
}

// ListTiers handles GET /reseller/tiers
func (h *ResellerHandlers) ListTiers(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tiers, err := h.commissionService.ListTiers(ctx, accountID)
	if err != nil {
		return common.SendServerError(c, "Failed to list commission tiers")
	}
	return c.JSON(http.StatusOK, tiers)
}

// AddTier handles POST /reseller/tiers
func (h *ResellerHandlers) AddTier(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		MinimumRevenueCents int64   `json:"minimum_revenue_cents"`
		CommissionRate      float64 `json:"commission_rate"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	tier, err := h.commissionService.AddTier(ctx, accountID, req.MinimumRevenueCents, req.CommissionRate)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return common.SendClientError(c, verr.Error())
		}
		var cerr *services.ConflictError
		if errors.As(err, &cerr) {
			return common.SendConflictError(c, cerr.Error())
		}
		return common.SendServerError(c, "Failed to add commission tier")
	}
	return c.JSON(http.StatusCreated, tier)
}

// RemoveTier handles DELETE /reseller/tiers/:id
func (h *ResellerHandlers) RemoveTier(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tierID, err := common.ValidateUUID(c.Param("id"), "tier_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.commissionService.RemoveTier(ctx, accountID, tierID); err != nil {
		var nferr *services.NotFoundError
		if errors.As(err, &nferr) {
			return common.SendNotFoundError(c, "commission tier")
		}
		return common.SendServerError(c, "Failed to remove commission tier")
	}
	return c.NoContent(http.StatusNoContent)
}

// Dashboard handles GET /reseller/dashboard
func (h *ResellerHandlers) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	dashboard, err := h.commissionService.Dashboard(ctx, accountID)
	if err != nil {
		return common.SendServerError(c, "Failed to load dashboard")
	}
	return c.JSON(http.StatusOK, dashboard)
}

// ListPeriods handles GET /reseller/periods
func (h *ResellerHandlers) ListPeriods(c echo.Context) error {
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

	periods, err := h.commissionService.ListPeriods(ctx, accountID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list commission periods")
	}
	return c.JSON(http.StatusOK, periods)
}

// ClosePeriod handles POST /reseller/periods/:key/close
func (h *ResellerHandlers) ClosePeriod(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	periodKey := c.Param("key")
	if err := common.ValidatePeriodKey(periodKey, "period_key"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	period, err := h.commissionService.ClosePeriod(ctx, accountID, periodKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPeriodNotOpen):
			return common.SendConflictError(c, err.Error())
		default:
			var nferr *services.NotFoundError
			if errors.As(err, &nferr) {
				return common.SendNotFoundError(c, "commission period")
			}
			return common.SendServerError(c, "Failed to close commission period")
		}
	}
	return c.JSON(http.StatusOK, period)
}

// MarkPeriodPaid handles POST /reseller/periods/:key/pay (admin only)
func (h *ResellerHandlers) MarkPeriodPaid(c echo.Context) error {
	ctx := c.Request().Context()

	resellerID, err := common.ValidateUUID(c.QueryParam("reseller_id"), "reseller_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	periodKey := c.Param("key")
	if err := common.ValidatePeriodKey(periodKey, "period_key"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	period, err := h.commissionService.MarkPaid(ctx, resellerID, periodKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPeriodNotClosed):
			return common.SendConflictError(c, err.Error())
		default:
			var nferr *services.NotFoundError
			if errors.As(err, &nferr) {
				return common.SendNotFoundError(c, "commission period")
			}
			return common.SendServerError(c, "Failed to mark commission period paid")
		}
	}
	return c.JSON(http.StatusOK, period)
}

// RecomputePeriod handles POST /reseller/periods/:key/recompute (admin only)
func (h *ResellerHandlers) RecomputePeriod(c echo.Context) error {
	ctx := c.Request().Context()

	resellerID, err := common.ValidateUUID(c.QueryParam("reseller_id"), "reseller_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	periodKey := c.Param("key")
	if err := common.ValidatePeriodKey(periodKey, "period_key"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	audit, err := h.commissionService.Recompute(ctx, resellerID, periodKey)
	if err != nil {
		var nferr *services.NotFoundError
		if errors.As(err, &nferr) {
			return common.SendNotFoundError(c, "commission period")
		}
		return common.SendServerError(c, "Failed to recompute commission period")
	}
	return c.JSON(http.StatusOK, audit)
}

// PeriodStatement handles GET /reseller/periods/:key/statement
// Returns a short-lived download link for the archived CSV statement.
func (h *ResellerHandlers) PeriodStatement(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	periodKey := c.Param("key")
	if err := common.ValidatePeriodKey(periodKey, "period_key"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	periods, err := h.commissionService.ListPeriods(ctx, accountID, 1000, 0)
	if err != nil {
		return common.SendServerError(c, "Failed to load commission periods")
	}

	var target *models.CommissionPeriod
	for _, p := range periods {
		if p.PeriodKey == periodKey {
			target = p
			break
		}
	}
	if target == nil || target.StatementObject == nil {
		return common.SendNotFoundError(c, "statement")
	}

	url, err := h.statementStore.GetPresignedURL(*target.StatementObject, 15*time.Minute)
	if err != nil {
		return common.SendServerError(c, "Failed to generate statement link")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"url":     url,
		"expires": time.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339),
	})
}
