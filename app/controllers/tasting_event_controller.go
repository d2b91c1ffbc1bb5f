package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

type tastingEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	TeamID      *uint     `json:"team_id"`
	StartsAt    time.Time `json:"starts_at"`
}

// HandleEventCreate schedules a tasting event hosted by the current user,
// optionally on behalf of a team the user belongs to.
func HandleEventCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req tastingEventRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if req.StartsAt.IsZero() {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", "starts_at is required")
	}

	if req.TeamID != nil {
		member, err := repository.GetGlobalFactory().GetTeamRepository().IsMember(*req.TeamID, userCtx.UserID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check team membership")
		}
		if !member {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "user is not a member of this team")
		}
	}

	event := &models.TastingEvent{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		HostID:      userCtx.UserID,
		TeamID:      req.TeamID,
		StartsAt:    req.StartsAt,
	}
	if err := event.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repository.GetGlobalFactory().GetTastingEventRepository().Create(event); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to create event")
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// HandleEventList returns upcoming events.
func HandleEventList(c *fiber.Ctx) error {
	offset, limit := paginationParams(c, 20, 100)
	events, err := repository.GetGlobalFactory().GetTastingEventRepository().GetUpcoming(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load events")
	}
	return c.JSON(fiber.Map{"events": events})
}

// HandleEventShow returns one event with attendees.
func HandleEventShow(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	event, err := repository.GetGlobalFactory().GetTastingEventRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "event not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load event")
	}
	return c.JSON(event)
}

// HandleEventUpdate updates an event; host only.
func HandleEventUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingEventRepository()
	event, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "event not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load event")
	}
	if event.HostID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the host can modify the event")
	}

	var req tastingEventRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if req.Title != "" {
		event.Title = req.Title
	}
	event.Description = req.Description
	event.Location = req.Location
	if !req.StartsAt.IsZero() {
		event.StartsAt = req.StartsAt
	}
	if err := event.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repo.Update(event); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to save event")
	}
	return c.JSON(event)
}

// HandleEventDelete removes an event; host only.
func HandleEventDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingEventRepository()
	event, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "event not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load event")
	}
	if event.HostID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the host can delete the event")
	}

	if err := repo.Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete event")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleEventAttend adds the current user to the attendee list.
func HandleEventAttend(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingEventRepository()
	if _, err := repo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "event not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load event")
	}

	attending, err := repo.IsAttendee(id, userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check attendance")
	}
	if attending {
		return jsonError(c, fiber.StatusConflict, "already_attending", "user already attends this event")
	}

	if err := repo.AddAttendee(id, userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to join event")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleEventUnattend removes the current user from the attendee list.
func HandleEventUnattend(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTastingEventRepository()
	if err := repo.RemoveAttendee(id, userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to leave event")
	}
	return c.JSON(fiber.Map{"ok": true})
}
