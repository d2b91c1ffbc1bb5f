package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/env"
)

// HandleBillingWebhook ingests one provider notification: source allow-list,
// signature verification over the exact raw bytes, structural validation,
// then ledger insert plus reconciliation in a single transaction.
func HandleBillingWebhook(c *fiber.Ctx) error {
	if !webhookSourceAllowed(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden_source"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Billing-Signature"))
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	if !billing.VerifyWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	envelope, snapshot, err := billing.ParseWebhookEnvelope(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": err.Error()})
	}

	repo := billing.NewRepository(database.GetDB())
	if err := billing.IngestWebhook(repo, envelope, snapshot, rawBody); err != nil {
		// A replayed webhook id is success from the provider's point of
		// view; anything else must surface as retryable.
		if billing.IsKind(err, billing.KindDuplicate) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		if billing.IsKind(err, billing.KindValidation) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation", "message": err.Error()})
		}
		log.Printf("billing webhook %s failed: %v", envelope.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// webhookSourceAllowed checks the caller IP against the env allow-list.
// An empty list and dev mode both allow everything.
func webhookSourceAllowed(c *fiber.Ctx) bool {
	if env.IsDev() {
		return true
	}
	allowed := strings.TrimSpace(env.GetEnv("BILLING_WEBHOOK_ALLOWED_IPS", ""))
	if allowed == "" {
		return true
	}

	clientIP := GetClientIP(c)
	for _, entry := range strings.Split(allowed, ",") {
		if strings.TrimSpace(entry) == clientIP {
			return true
		}
	}
	return false
}
