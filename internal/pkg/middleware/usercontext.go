package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/session"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a request-scoped user
// context so controllers never touch the session store themselves.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth uses its own fiber session store on OAuth routes; skip our app
	// session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return anonymous(c)
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}

	uid, ok := userID.(uint)
	if !ok {
		return anonymous(c)
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	// Plan key with session-first strategy; the subscription lookup only
	// runs once per session and after plan changes (which clear the key).
	planKey := session.GetSessionValue(c, usercontext.KeyPlan)
	if planKey == "" {
		planKey = "free"
		if db := database.GetDB(); db != nil {
			if sub, err := billing.NewRepository(db).CurrentSubscriptionForUser(uid); err == nil && sub != nil {
				planKey = sub.PlanKey
			}
		}
		_ = session.SetSessionValue(c, usercontext.KeyPlan, planKey)
	}

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     uid,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
		PlanKey:    planKey,
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, uid)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	c.Locals("USER_CONTEXT", usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}
