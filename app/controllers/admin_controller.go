package controllers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/statistics"
)

// HandleAdminDashboard returns platform-wide counters
func HandleAdminDashboard(c *fiber.Ctx) error {
	db := database.GetDB()

	counts := fiber.Map{}
	for name, model := range map[string]interface{}{
		"users":    &models.User{},
		"teams":    &models.Team{},
		"events":   &models.TastingEvent{},
		"notes":    &models.TastingNote{},
		"contests": &models.Contest{},
		"vouchers": &models.Voucher{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load dashboard counters")
		}
		counts[name] = n
	}

	var activeSubs int64
	if err := db.Model(&models.UserSubscription{}).
		Where("status IN ?", []string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing}).
		Count(&activeSubs).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load dashboard counters")
	}
	counts["active_subscriptions"] = activeSubs

	var webhooks int64
	if err := db.Model(&models.WebhookEvent{}).Count(&webhooks).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load dashboard counters")
	}
	counts["webhook_events"] = webhooks

	return c.JSON(fiber.Map{"counts": counts})
}

// HandleAdminUserList returns users with their activity stats, optionally
// filtered by a search query
func HandleAdminUserList(c *fiber.Ctx) error {
	users := repository.GetGlobalFactory().GetUserRepository()

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		found, err := users.Search(q)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to search users")
		}
		return c.JSON(fiber.Map{"users": found, "total": len(found)})
	}

	offset, limit := paginationParams(c, 25, 100)
	withStats, err := users.GetWithStats(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load users")
	}
	total, err := users.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load users")
	}

	return c.JSON(fiber.Map{"users": withStats, "total": total})
}

type adminUserUpdateRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// HandleAdminUserUpdate changes a user's role or status
func HandleAdminUserUpdate(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "user id must be numeric")
	}

	var req adminUserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	if req.Role != nil {
		if *req.Role != models.ROLE_USER && *req.Role != models.ROLE_ADMIN {
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_role", "role must be user or admin")
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case models.STATUS_ACTIVE, models.STATUS_INACTIVE, models.STATUS_DISABLED:
			user.Status = *req.Status
		default:
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_status", "status must be active, inactive or disabled")
		}
	}

	if err := users.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to update user")
	}

	return c.JSON(fiber.Map{"user": user})
}

// HandleAdminUserDelete removes a user account
func HandleAdminUserDelete(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "user id must be numeric")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	if _, err := users.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	if err := users.Delete(userID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete user")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminStats returns the cached platform counters together with
// per-day note and signup series for the last N days (?days, default 30)
func HandleAdminStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_days", "days must be between 1 and 365")
	}

	notes, err := statistics.NoteSeries(days)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note series")
	}
	signups, err := statistics.SignupSeries(days)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load signup series")
	}

	return c.JSON(fiber.Map{
		"statistics": statistics.GetStatisticsData(),
		"notes":      notes,
		"signups":    signups,
	})
}

// HandleAdminCacheKeys lists Redis keys with value previews and TTLs.
// An optional comma-separated "patterns" query narrows the scan.
func HandleAdminCacheKeys(c *fiber.Ctx) error {
	cacheRepo := repository.GetGlobalFactory().GetCacheRepository()

	var keys []string
	var err error
	if raw := strings.TrimSpace(c.Query("patterns")); raw != "" {
		patterns := strings.Split(raw, ",")
		for i := range patterns {
			patterns[i] = strings.TrimSpace(patterns[i])
		}
		keys, err = cacheRepo.FindKeysByPatterns(patterns)
	} else {
		keys, err = cacheRepo.GetAllKeys()
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to list cache keys")
	}

	// Cap the detail lookups so a large keyspace stays inspectable
	const maxDetails = 200
	type keyInfo struct {
		Key   string `json:"key"`
		Value string `json:"value,omitempty"`
		TTL   string `json:"ttl,omitempty"`
	}
	details := make([]keyInfo, 0, len(keys))
	for i, key := range keys {
		info := keyInfo{Key: key}
		if i < maxDetails {
			if v, err := cacheRepo.GetValue(key); err == nil {
				if len(v) > 120 {
					v = v[:120] + "..."
				}
				info.Value = v
			}
			if ttl, err := cacheRepo.GetTTL(key); err == nil && ttl > 0 {
				info.TTL = ttl.String()
			}
		}
		details = append(details, info)
	}

	return c.JSON(fiber.Map{"keys": details, "total": len(keys)})
}

// HandleAdminCacheDelete deletes the given cache keys
func HandleAdminCacheDelete(c *fiber.Ctx) error {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if len(req.Keys) == 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "missing_keys", "at least one key is required")
	}

	deleted, err := repository.GetGlobalFactory().GetCacheRepository().DeleteKeys(req.Keys)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete cache keys")
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}

// HandleAdminTransactions pulls the recent payment transactions from the
// billing provider for reconciliation checks
func HandleAdminTransactions(c *fiber.Ctx) error {
	filters := url.Values{}
	if since := c.Query("since"); since != "" {
		filters.Set("since_date", since)
	}
	if until := c.Query("until"); until != "" {
		filters.Set("until_date", until)
	}
	if kinds := c.Query("kinds"); kinds != "" {
		filters.Set("kinds[]", kinds)
	}

	ctx, cancel := billingCtx()
	defer cancel()

	txs, err := billing.NewClientFromEnv().GetSiteTransactions(ctx, filters)
	if err != nil {
		log.Errorf("[Admin] Failed to fetch provider transactions: %v", err)
		return respondBillingError(c, err)
	}

	return c.JSON(fiber.Map{"transactions": txs, "total": len(txs)})
}
