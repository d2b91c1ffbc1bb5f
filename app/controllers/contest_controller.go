package controllers

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

type contestRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// HandleContestCreate creates a contest (admin only, enforced by routing).
func HandleContestCreate(c *fiber.Ctx) error {
	var req contestRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", "starts_at and ends_at must form a valid window")
	}

	contest := &models.Contest{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.ContestStatusOpen,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if err := contest.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repository.GetGlobalFactory().GetContestRepository().Create(contest); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to create contest")
	}
	return c.Status(fiber.StatusCreated).JSON(contest)
}

// HandleContestClose closes a contest for new entries (admin only).
func HandleContestClose(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetContestRepository()
	contest, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "contest not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load contest")
	}
	if contest.Status == models.ContestStatusClosed {
		return jsonError(c, fiber.StatusConflict, "already_closed", "contest is already closed")
	}

	contest.Status = models.ContestStatusClosed
	if err := repo.Update(contest); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to close contest")
	}
	return c.JSON(contest)
}

// HandleContestList returns open contests.
func HandleContestList(c *fiber.Ctx) error {
	contests, err := repository.GetGlobalFactory().GetContestRepository().GetOpen()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load contests")
	}
	return c.JSON(fiber.Map{"contests": contests})
}

type contestEntryRequest struct {
	NoteID uint `json:"note_id"`
}

// HandleContestEnter submits one of the current user's tasting notes.
func HandleContestEnter(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	var req contestEntryRequest
	if err := c.BodyParser(&req); err != nil || req.NoteID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "note_id is required")
	}

	factory := repository.GetGlobalFactory()
	contest, err := factory.GetContestRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "contest not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load contest")
	}
	now := time.Now()
	if contest.Status != models.ContestStatusOpen || now.Before(contest.StartsAt) || now.After(contest.EndsAt) {
		return jsonError(c, fiber.StatusConflict, "contest_closed", "contest is not accepting entries")
	}

	note, err := factory.GetTastingNoteRepository().GetByID(req.NoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load note")
	}
	if note.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the author can enter a note")
	}

	exists, err := factory.GetContestRepository().HasEntry(id, req.NoteID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check entry")
	}
	if exists {
		return jsonError(c, fiber.StatusConflict, "already_entered", "note was already submitted to this contest")
	}

	if err := factory.GetContestRepository().AddEntry(id, req.NoteID, userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to submit entry")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

// HandleContestRanking lists the contest entries ranked by note rating.
func HandleContestRanking(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	factory := repository.GetGlobalFactory()
	entries, err := factory.GetContestRepository().GetEntries(id)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load entries")
	}

	type rankedEntry struct {
		NoteID   uint   `json:"note_id"`
		UserID   uint   `json:"user_id"`
		WineName string `json:"wine_name"`
		Rating   int    `json:"rating"`
	}
	ranking := make([]rankedEntry, 0, len(entries))
	for _, entry := range entries {
		note, err := factory.GetTastingNoteRepository().GetByID(entry.NoteID)
		if err != nil {
			continue
		}
		ranking = append(ranking, rankedEntry{
			NoteID:   note.ID,
			UserID:   entry.UserID,
			WineName: note.WineName,
			Rating:   note.Rating,
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].Rating > ranking[j].Rating })

	return c.JSON(fiber.Map{"ranking": ranking})
}
