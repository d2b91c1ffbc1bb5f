package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
	"github.com/MarcChevalier/Tastevin/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	stats, err := repo.GetStatsByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load statistics")
	}

	avatarURL := account.AvatarURL
	if avatarURL == "" {
		avatarURL = utils.GetGravatarURL(account.Email, 200)
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"bio":           account.Bio,
		"avatar_url":    avatarURL,
		"is_admin":      userCtx.IsAdmin,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"stats": fiber.Map{
			"notes":         stats.NoteCount,
			"teams":         stats.TeamCount,
			"hosted_events": stats.HostedCount,
		},
	})
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
}

// HandleUpdateUserProfile updates the editable profile fields.
func HandleUpdateUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "missing or invalid authentication")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load user")
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := user.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to save user")
	}

	return c.JSON(fiber.Map{
		"id":         user.ID,
		"name":       user.Name,
		"bio":        user.Bio,
		"avatar_url": user.AvatarURL,
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
