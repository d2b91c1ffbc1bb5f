package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
	"github.com/MarcChevalier/Tastevin/internal/pkg/entitlements"
	"github.com/MarcChevalier/Tastevin/internal/pkg/shortener"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

type tastingNoteRequest struct {
	EventID      *uint  `json:"event_id"`
	WineName     string `json:"wine_name"`
	Winery       string `json:"winery"`
	Vintage      int    `json:"vintage"`
	GrapeVariety string `json:"grape_variety"`
	Region       string `json:"region"`
	Rating       int    `json:"rating"`
	Aroma        string `json:"aroma"`
	Palate       string `json:"palate"`
	Finish       string `json:"finish"`
	LabelPhoto   string `json:"label_photo"`
	IsPublic     *bool  `json:"is_public"`
}

// HandleNoteCreate records a tasting note. Users without a current
// subscription are limited to a monthly quota.
func HandleNoteCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req tastingNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	if allowed, err := noteQuotaAllows(userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check note quota")
	} else if !allowed {
		return jsonError(c, fiber.StatusPaymentRequired, "quota_exceeded", "monthly note limit reached, a subscription removes the limit")
	}

	note := &models.TastingNote{
		UserID:       userCtx.UserID,
		EventID:      req.EventID,
		WineName:     strings.TrimSpace(req.WineName),
		Winery:       req.Winery,
		Vintage:      req.Vintage,
		GrapeVariety: req.GrapeVariety,
		Region:       req.Region,
		Rating:       req.Rating,
		Aroma:        req.Aroma,
		Palate:       req.Palate,
		Finish:       req.Finish,
		LabelPhoto:   req.LabelPhoto,
		IsPublic:     true,
	}
	if req.IsPublic != nil {
		note.IsPublic = *req.IsPublic
	}
	if err := note.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repository.GetGlobalFactory().GetTastingNoteRepository().Create(note); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to create note")
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// HandleNoteList returns the current user's notes.
func HandleNoteList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := paginationParams(c, 20, 100)

	notes, err := repository.GetGlobalFactory().GetTastingNoteRepository().GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load notes")
	}
	return c.JSON(fiber.Map{"notes": notes})
}

// HandleNotePublicFeed returns publicly visible notes.
func HandleNotePublicFeed(c *fiber.Ctx) error {
	offset, limit := paginationParams(c, 20, 100)
	notes, err := repository.GetGlobalFactory().GetTastingNoteRepository().GetPublic(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load notes")
	}
	return c.JSON(fiber.Map{"notes": notes})
}

// HandleNoteSearch searches public notes by wine, winery or region.
func HandleNoteSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_query", "query parameter q is required")
	}
	notes, err := repository.GetGlobalFactory().GetTastingNoteRepository().Search(query)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "search failed")
	}
	return c.JSON(fiber.Map{"notes": notes})
}

// HandleNoteShow returns one note. Private notes are visible to their owner
// only.
func HandleNoteShow(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	note, err := repository.GetGlobalFactory().GetTastingNoteRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note")
	}
	if !note.IsPublic && note.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
	}
	return c.JSON(fiber.Map{
		"note":       note,
		"share_slug": shortener.EncodeID(note.ID),
	})
}

// HandleNoteShareLink resolves a short share slug to the public note.
func HandleNoteShareLink(c *fiber.Ctx) error {
	id := shortener.DecodeID(c.Params("sharelink"))
	if id == 0 {
		return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
	}

	note, err := repository.GetGlobalFactory().GetTastingNoteRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note")
	}
	if !note.IsPublic {
		return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
	}
	return c.JSON(note)
}

// HandleNoteUpdate updates a note; owner only.
func HandleNoteUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingNoteRepository()
	note, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note")
	}
	if note.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the author can modify the note")
	}

	var req tastingNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if req.WineName != "" {
		note.WineName = strings.TrimSpace(req.WineName)
	}
	note.Winery = req.Winery
	note.Vintage = req.Vintage
	note.GrapeVariety = req.GrapeVariety
	note.Region = req.Region
	note.Rating = req.Rating
	note.Aroma = req.Aroma
	note.Palate = req.Palate
	note.Finish = req.Finish
	if req.LabelPhoto != "" {
		note.LabelPhoto = req.LabelPhoto
	}
	if req.IsPublic != nil {
		note.IsPublic = *req.IsPublic
	}
	if err := note.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repo.Update(note); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to save note")
	}
	return c.JSON(note)
}

// HandleNoteDelete removes a note; owner only.
func HandleNoteDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingNoteRepository()
	note, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note")
	}
	if note.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the author can delete the note")
	}

	if err := repo.Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete note")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// noteQuotaAllows checks the monthly note limit of the user's plan. Any
// current subscription lifts it.
func noteQuotaAllows(userID uint) (bool, error) {
	limits, err := limitsForUser(userID)
	if err != nil {
		return false, err
	}
	if limits.MonthlyNoteLimit == entitlements.Unlimited {
		return true, nil
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	count, err := repository.GetGlobalFactory().GetTastingNoteRepository().CountByUserIDSince(userID, monthStart)
	if err != nil {
		return false, err
	}
	return limits.AllowsNotes(count), nil
}

// limitsForUser resolves the entitlement limits from the user's current
// subscription, falling back to the free tier.
func limitsForUser(userID uint) (entitlements.Limits, error) {
	billingRepo := billing.NewRepository(database.GetDB())
	sub, err := billingRepo.CurrentSubscriptionForUser(userID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return entitlements.ForPlan(""), nil
		}
		return entitlements.Limits{}, err
	}
	return entitlements.ForPlan(sub.PlanKey), nil
}
