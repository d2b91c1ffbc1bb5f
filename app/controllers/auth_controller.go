package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/hcaptcha"
	"github.com/MarcChevalier/Tastevin/internal/pkg/jobqueue"
	"github.com/MarcChevalier/Tastevin/internal/pkg/mail"
	"github.com/MarcChevalier/Tastevin/internal/pkg/session"
)

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a new account.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	if hcaptcha.Enabled() {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); err != nil || !ok {
			return jsonError(c, fiber.StatusUnprocessableEntity, "captcha_failed", "captcha verification failed")
		}
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	// Welcome mail goes through the queue so a slow SMTP server never
	// delays the registration response
	subject, body := mail.WelcomeMessage(user.Name)
	if err := jobqueue.GetQueue().Enqueue(user.Email, subject, body); err != nil {
		log.Warnf("[Auth] Failed to enqueue welcome mail for %s: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogin authenticates against the stored bcrypt hash and opens a
// session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	// notice: do not inform the caller whether the email or the password
	// was wrong
	if err != nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	}
	if user.Status == models.STATUS_DISABLED {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "this account is disabled")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "session could not be created")
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "session could not be saved")
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = repo.Update(user)

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(FROM_PROTECTED, false)
	return c.JSON(fiber.Map{"ok": true})
}
