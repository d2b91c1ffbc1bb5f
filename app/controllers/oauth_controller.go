package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/session"
)

// HandleOAuthCallback completes the provider flow and logs the user in.
// This is a browser flow, so failures redirect with a flash message
// instead of returning an API error body.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": fmt.Sprintf("Sign-in failed: %v", err)}
		return flash.WithError(c, fm).Redirect("/login")
	}

	db := database.GetDB()

	// Try to find an existing provider link
	var pa models.ProviderAccount
	res := db.Where("provider = ? AND provider_user_id = ?", u.Provider, u.UserID).First(&pa)

	var appUser models.User
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		// Optional email match if provided
		if u.Email != "" {
			_ = db.Where("email = ?", u.Email).First(&appUser).Error
		}
		if appUser.ID == 0 {
			// Create a new account; the password is a random placeholder
			// since OAuth users never log in with one
			placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
			hash, _ := models.HashPassword(placeholder)
			email := u.Email
			if email == "" {
				// Ensure a unique, non-empty email to satisfy the unique index
				email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
			}
			appUser = models.User{
				Name:       firstNonEmpty(u.Name, u.NickName, u.Email, "Member"),
				Email:      email,
				Password:   hash,
				AvatarURL:  u.AvatarURL,
				Role:       models.ROLE_USER,
				Status:     models.STATUS_ACTIVE,
				BillingRef: uuid.NewString(),
			}
			if err := db.Create(&appUser).Error; err != nil {
				fm := fiber.Map{"type": "error", "message": "Could not create your account"}
				return flash.WithError(c, fm).Redirect("/login")
			}
		}
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		pa = models.ProviderAccount{
			UserID:         appUser.ID,
			Provider:       u.Provider,
			ProviderUserID: u.UserID,
			AccessToken:    u.AccessToken,
			RefreshToken:   u.RefreshToken,
			ExpiresAt:      exp,
		}
		if err := db.Create(&pa).Error; err != nil {
			fm := fiber.Map{"type": "error", "message": "Could not link your account"}
			return flash.WithError(c, fm).Redirect("/login")
		}
	} else if res.Error == nil {
		// Refresh stored tokens
		pa.AccessToken = u.AccessToken
		pa.RefreshToken = u.RefreshToken
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			pa.ExpiresAt = &t
		} else {
			pa.ExpiresAt = nil
		}
		if err := db.Save(&pa).Error; err != nil {
			fm := fiber.Map{"type": "error", "message": "Could not update your account"}
			return flash.WithError(c, fm).Redirect("/login")
		}
		if err := db.First(&appUser, pa.UserID).Error; err != nil {
			fm := fiber.Map{"type": "error", "message": "Linked account not found"}
			return flash.WithError(c, fm).Redirect("/login")
		}
	} else {
		fm := fiber.Map{"type": "error", "message": "Sign-in failed"}
		return flash.WithError(c, fm).Redirect("/login")
	}

	if appUser.Status == models.STATUS_DISABLED {
		fm := fiber.Map{"type": "error", "message": "This account is disabled"}
		return flash.WithError(c, fm).Redirect("/login")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Session could not be created"}
		return flash.WithError(c, fm).Redirect("/login")
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, appUser.ID)
	sess.Set(USER_NAME, appUser.Name)
	sess.Set(USER_IS_ADMIN, appUser.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		fm := fiber.Map{"type": "error", "message": "Session could not be saved"}
		return flash.WithError(c, fm).Redirect("/login")
	}

	_ = db.Model(&appUser).UpdateColumn("last_login_at", time.Now()).Error

	return c.Redirect("/")
}

// HandleOAuthLogout terminates both the provider and the app session
func HandleOAuthLogout(c *fiber.Ctx) error {
	_ = gothfiber.Logout(c)

	if sess, err := session.GetSessionStore().Get(c); err == nil {
		_ = sess.Destroy()
	}

	return c.Redirect("/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
