package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
)

// Shared session keys used across controllers and middlewares
const (
	AUTH_KEY      string = "authenticated"
	USER_ID       string = "user_id"
	USER_NAME     string = "username"
	USER_IS_ADMIN string = "isAdmin"
)

// FROM_PROTECTED marks requests that passed the session auth middleware
const FROM_PROTECTED string = "from_protected"

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// respondBillingError maps a billing error kind to an HTTP status. Non-billing
// errors become a generic 500.
func respondBillingError(c *fiber.Ctx, err error) error {
	var be *billing.Error
	if !errors.As(err, &be) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "record not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "billing operation failed")
	}

	status := fiber.StatusInternalServerError
	switch be.Kind {
	case billing.KindAuth:
		status = fiber.StatusUnauthorized
	case billing.KindDuplicate:
		status = fiber.StatusConflict
	case billing.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case billing.KindState:
		status = fiber.StatusConflict
	case billing.KindProvider:
		status = fiber.StatusBadGateway
	}

	resp := fiber.Map{"error": string(be.Kind), "message": be.Msg}
	if be.Field != "" {
		resp["field"] = be.Field
	}
	return c.Status(status).JSON(resp)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(v), nil
}

// paginationParams reads offset/limit query values with sane bounds.
func paginationParams(c *fiber.Ctx, defaultLimit, maxLimit int) (int, int) {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}

// GetClientIP determines the actual client IP address considering proxies.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	ip := c.IP()
	// IPv4-mapped-IPv6 addresses (::ffff:192.168.1.1)
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}
