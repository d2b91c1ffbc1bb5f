package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
)

func newVoucherResolver() *billing.VoucherResolver {
	return billing.NewVoucherResolver(billing.NewRepository(database.GetDB()))
}

type createVoucherRequest struct {
	Code       string `json:"code"`
	PlanKey    string `json:"plan_key"`
	UsageLimit *int   `json:"usage_limit"`
	ValidDays  *int   `json:"valid_days"`
}

// HandleAdminVoucherCreate registers a voucher. An empty code gets a
// generated one.
func HandleAdminVoucherCreate(c *fiber.Ctx) error {
	var req createVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	code := req.Code
	if code == "" {
		code = uuid.NewString()
	}
	usageLimit := models.VoucherUnlimited
	if req.UsageLimit != nil {
		usageLimit = *req.UsageLimit
	}
	validDays := models.VoucherUnlimited
	if req.ValidDays != nil {
		validDays = *req.ValidDays
	}

	voucher, err := newVoucherResolver().Create(code, req.PlanKey, usageLimit, validDays)
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(voucher)
}

// HandleAdminVoucherList returns all vouchers.
func HandleAdminVoucherList(c *fiber.Ctx) error {
	vouchers, err := newVoucherResolver().List()
	if err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(fiber.Map{"vouchers": vouchers})
}

// HandleAdminVoucherResetAll clears consumption counters across all
// vouchers.
func HandleAdminVoucherResetAll(c *fiber.Ctx) error {
	if err := newVoucherResolver().ResetUsage(); err != nil {
		return respondBillingError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
