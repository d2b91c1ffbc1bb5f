package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

const billingRequestTimeout = 20 * time.Second

func newOrchestrator() *billing.Orchestrator {
	return billing.NewOrchestrator(
		billing.NewRepository(database.GetDB()),
		billing.NewClientFromEnv(),
		billing.NewPortalCache(),
	)
}

func billingCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), billingRequestTimeout)
}

// HandlePlanList returns the plan catalog.
func HandlePlanList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": plancatalog.All()})
}

// HandleSubscriptionShow returns the current user's subscription.
func HandleSubscriptionShow(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := newOrchestrator().CurrentSubscription(userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

type subscribeRequest struct {
	PlanKey      string `json:"plan_key"`
	PaymentToken string `json:"payment_token"`
}

// HandleSubscribe creates a provider subscription for the requested plan.
func HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().Subscribe(ctx, userCtx.UserID, req.PlanKey, req.PaymentToken)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

type changePlanRequest struct {
	PlanKey string `json:"plan_key"`
}

// HandleChangePlan migrates the current subscription to another plan.
func HandleChangePlan(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req changePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().ChangePlan(ctx, userCtx.UserID, req.PlanKey)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

// HandleSubscriptionCancel terminates the subscription immediately.
func HandleSubscriptionCancel(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().Cancel(ctx, userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

// HandleSubscriptionDelayedCancel flags the subscription for cancellation at
// period end.
func HandleSubscriptionDelayedCancel(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().DelayedCancel(ctx, userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

// HandleSubscriptionStopDelayedCancel removes a pending end-of-period
// cancellation.
func HandleSubscriptionStopDelayedCancel(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().StopDelayedCancel(ctx, userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

// HandleSubscriptionRefresh re-derives local state from the provider.
func HandleSubscriptionRefresh(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := billingCtx()
	defer cancel()
	sub, err := newOrchestrator().Refresh(ctx, userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(sub)
}

// HandleBillingPortalLink returns a management link into the provider's
// billing portal.
func HandleBillingPortalLink(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := billingCtx()
	defer cancel()
	link, err := newOrchestrator().PortalLink(ctx, userCtx.UserID)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(link)
}

type redeemVoucherRequest struct {
	Code string `json:"code"`
}

// HandleVoucherRedeem consumes a voucher code and grants the associated plan.
func HandleVoucherRedeem(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req redeemVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	resolver := billing.NewVoucherResolver(billing.NewRepository(database.GetDB()))
	sub, err := resolver.Redeem(userCtx.UserID, req.Code)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}
