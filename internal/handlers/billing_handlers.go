package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/common"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/labstack/echo/v4"
)

// BillingHandlers handles HTTP requests for plans, subscriptions, and the
// caller's invoice history.
type BillingHandlers struct {
	planService         services.PlanService
	subscriptionService services.SubscriptionService
	ledgerService       services.LedgerService
}

// NewBillingHandlers creates a new billing handlers instance
func NewBillingHandlers(
	planService services.PlanService,
	subscriptionService services.SubscriptionService,
	ledgerService services.LedgerService,
) *BillingHandlers {
	return &BillingHandlers{
		planService:         planService,
		subscriptionService: subscriptionService,
		ledgerService:       ledgerService,
	}
}

// ListPlans handles GET /plans
func (h *BillingHandlers) ListPlans(c echo.Context) error {
	plans, err := h.planService.ListActive(c.Request().Context())
	if err != nil {
		return common.SendServerError(c, "Failed to list plans")
	}
	return c.JSON(http.StatusOK, plans)
}

// CreatePlan handles POST /plans (admin only)
func (h *BillingHandlers) CreatePlan(c echo.Context) error {
	var req services.CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	plan, err := h.planService.Create(c.Request().Context(), &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return common.SendClientError(c, verr.Error())
		}
		return common.SendServerError(c, "Failed to create plan")
	}
	return c.JSON(http.StatusCreated, plan)
}

// DeactivatePlan handles DELETE /plans/:id (admin only)
func (h *BillingHandlers) DeactivatePlan(c echo.Context) error {
	planID, err := common.ValidateUUID(c.Param("id"), "plan_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.planService.Deactivate(c.Request().Context(), planID); err != nil {
		var nferr *services.NotFoundError
		if errors.As(err, &nferr) {
			return common.SendNotFoundError(c, "plan")
		}
		return common.SendServerError(c, "Failed to deactivate plan")
	}
	return c.NoContent(http.StatusNoContent)
}

// Subscribe handles POST /subscriptions
func (h *BillingHandlers) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	planID, err := common.ValidateUUID(req.PlanID, "plan_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	intent, err := h.subscriptionService.SelectPlan(ctx, accountID, planID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPlan):
			return common.SendValidationError(c, "plan_id", err.Error())
		case errors.Is(err, services.ErrAlreadySubscribed):
			return common.SendConflictError(c, err.Error())
		default:
			var gerr *services.GatewayError
			if errors.As(err, &gerr) {
				return c.JSON(http.StatusBadGateway, common.CreateErrorResponse("GATEWAY_ERROR", "Payment gateway unavailable", nil))
			}
			return common.SendServerError(c, "Failed to start subscription")
		}
	}
	return c.JSON(http.StatusCreated, intent)
}

// CurrentSubscription handles GET /subscriptions/current
func (h *BillingHandlers) CurrentSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	sub, plan, err := h.subscriptionService.CurrentForAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSubscription) {
			return common.SendNotFoundError(c, "subscription")
		}
		return common.SendServerError(c, "Failed to load subscription")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscription": sub,
		"plan":         plan,
	})
}

// CancelSubscription handles POST /subscriptions/cancel
func (h *BillingHandlers) CancelSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := common.GetAccountIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	sub, err := h.subscriptionService.RequestCancellation(ctx, accountID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoActiveSubscription):
			return common.SendNotFoundError(c, "subscription")
		default:
			var gerr *services.GatewayError
			if errors.As(err, &gerr) {
				return c.JSON(http.StatusBadGateway, common.CreateErrorResponse("GATEWAY_ERROR", "Payment gateway unavailable", nil))
			}
			return common.SendServerError(c, "Failed to cancel subscription")
		}
	}
	return c.JSON(http.StatusOK, sub)
}

// ListInvoices handles GET /invoices
func (h *BillingHandlers) ListInvoices(c echo.Context) error {
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

	invoices, err := h.ledgerService.History(ctx, accountID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list invoices")
	}
	return c.JSON(http.StatusOK, invoices)
}
