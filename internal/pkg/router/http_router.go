package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/MarcChevalier/Tastevin/app/controllers"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/middleware"
	"github.com/MarcChevalier/Tastevin/internal/pkg/oauth"
	"github.com/MarcChevalier/Tastevin/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// init repository factory
	repository.InitializeFactory(database.GetDB())

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Social OAuth (browser flow)
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Post("/auth/logout", controllers.HandleOAuthLogout)

	// Short share links for public tasting notes
	app.Get("/n/:sharelink", controllers.HandleNoteShareLink)

	// Billing provider webhooks (signature-verified in the controller)
	app.Post("/webhooks/billing", controllers.HandleBillingWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
