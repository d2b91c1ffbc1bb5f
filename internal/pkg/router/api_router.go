package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/MarcChevalier/Tastevin/app/controllers"
	"github.com/MarcChevalier/Tastevin/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Tastevin API",
		})
	})

	v1 := api.Group("/v1")

	// Auth
	v1.Post("/auth/register", controllers.HandleAuthRegister)
	v1.Post("/auth/login", controllers.HandleAuthLogin)
	v1.Post("/auth/logout", middleware.RequireAPISessionAuth, controllers.HandleAuthLogout)

	// Account
	v1.Get("/account", middleware.RequireAPISessionAuth, controllers.HandleGetUserAccount)
	v1.Patch("/account", middleware.RequireAPISessionAuth, controllers.HandleUpdateUserProfile)

	// Teams
	v1.Post("/teams", middleware.RequireAPISessionAuth, controllers.HandleTeamCreate)
	v1.Get("/teams", controllers.HandleTeamList)
	v1.Get("/teams/:id", controllers.HandleTeamShow)
	v1.Patch("/teams/:id", middleware.RequireAPISessionAuth, controllers.HandleTeamUpdate)
	v1.Delete("/teams/:id", middleware.RequireAPISessionAuth, controllers.HandleTeamDelete)
	v1.Post("/teams/:id/join", middleware.RequireAPISessionAuth, controllers.HandleTeamJoin)
	v1.Post("/teams/:id/leave", middleware.RequireAPISessionAuth, controllers.HandleTeamLeave)
	v1.Get("/teams/:id/members", controllers.HandleTeamMembers)

	// Tasting events
	v1.Post("/events", middleware.RequireAPISessionAuth, controllers.HandleEventCreate)
	v1.Get("/events", controllers.HandleEventList)
	v1.Get("/events/:id", controllers.HandleEventShow)
	v1.Patch("/events/:id", middleware.RequireAPISessionAuth, controllers.HandleEventUpdate)
	v1.Delete("/events/:id", middleware.RequireAPISessionAuth, controllers.HandleEventDelete)
	v1.Post("/events/:id/attend", middleware.RequireAPISessionAuth, controllers.HandleEventAttend)
	v1.Post("/events/:id/unattend", middleware.RequireAPISessionAuth, controllers.HandleEventUnattend)

	// Tasting notes
	v1.Post("/notes", middleware.RequireAPISessionAuth, controllers.HandleNoteCreate)
	v1.Get("/notes", middleware.RequireAPISessionAuth, controllers.HandleNoteList)
	v1.Get("/notes/feed", controllers.HandleNotePublicFeed)
	v1.Get("/notes/search", controllers.HandleNoteSearch)
	v1.Get("/notes/:id", controllers.HandleNoteShow)
	v1.Patch("/notes/:id", middleware.RequireAPISessionAuth, controllers.HandleNoteUpdate)
	v1.Delete("/notes/:id", middleware.RequireAPISessionAuth, controllers.HandleNoteDelete)
	v1.Post("/notes/:id/photo", middleware.RequireAPISessionAuth, controllers.HandleNotePhotoUpload)

	// Contests
	v1.Get("/contests", controllers.HandleContestList)
	v1.Post("/contests/:id/enter", middleware.RequireAPISessionAuth, controllers.HandleContestEnter)
	v1.Get("/contests/:id/ranking", controllers.HandleContestRanking)

	// Plans and subscription
	v1.Get("/plans", controllers.HandlePlanList)
	v1.Get("/subscription", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionShow)
	v1.Post("/subscription", middleware.RequireAPISessionAuth, controllers.HandleSubscribe)
	v1.Post("/subscription/change-plan", middleware.RequireAPISessionAuth, controllers.HandleChangePlan)
	v1.Post("/subscription/cancel", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionCancel)
	v1.Post("/subscription/delayed-cancel", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionDelayedCancel)
	v1.Post("/subscription/stop-delayed-cancel", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionStopDelayedCancel)
	v1.Post("/subscription/refresh", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionRefresh)
	v1.Get("/subscription/portal", middleware.RequireAPISessionAuth, controllers.HandleBillingPortalLink)
	v1.Post("/vouchers/redeem", middleware.RequireAPISessionAuth, controllers.HandleVoucherRedeem)

	// Admin
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/dashboard", controllers.HandleAdminDashboard)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/users", controllers.HandleAdminUserList)
	admin.Patch("/users/:id", controllers.HandleAdminUserUpdate)
	admin.Delete("/users/:id", controllers.HandleAdminUserDelete)
	admin.Post("/contests", controllers.HandleContestCreate)
	admin.Post("/contests/:id/close", controllers.HandleContestClose)
	admin.Post("/vouchers", controllers.HandleAdminVoucherCreate)
	admin.Get("/vouchers", controllers.HandleAdminVoucherList)
	admin.Post("/vouchers/reset", controllers.HandleAdminVoucherResetAll)
	admin.Get("/cache/keys", controllers.HandleAdminCacheKeys)
	admin.Post("/cache/delete", controllers.HandleAdminCacheDelete)
	admin.Get("/billing/transactions", controllers.HandleAdminTransactions)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
