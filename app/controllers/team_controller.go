package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleTeamCreate creates a team owned by the current user.
func HandleTeamCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}

	teams := repository.GetGlobalFactory().GetTeamRepository()
	limits, err := limitsForUser(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check team limit")
	}
	owned, err := teams.CountByOwnerID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check team limit")
	}
	if !limits.AllowsOwnedTeams(owned) {
		return jsonError(c, fiber.StatusPaymentRequired, "team_limit_reached", "your plan limits how many teams you can own")
	}

	team := &models.Team{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userCtx.UserID,
	}
	if err := team.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := teams.Create(team); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to create team")
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

// HandleTeamList returns the teams the current user belongs to.
func HandleTeamList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	teams, err := repository.GetGlobalFactory().GetTeamRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load teams")
	}
	return c.JSON(fiber.Map{"teams": teams})
}

// HandleTeamShow returns one team with its members.
func HandleTeamShow(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	team, err := repository.GetGlobalFactory().GetTeamRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load team")
	}
	return c.JSON(team)
}

// HandleTeamUpdate updates a team; owner only.
func HandleTeamUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTeamRepository()
	team, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load team")
	}
	if team.OwnerID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the team owner can modify the team")
	}

	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	if req.Name != "" {
		team.Name = req.Name
	}
	team.Description = req.Description
	if err := team.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation", err.Error())
	}

	if err := repo.Update(team); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to save team")
	}
	return c.JSON(team)
}

// HandleTeamDelete deletes a team; owner only.
func HandleTeamDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTeamRepository()
	team, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load team")
	}
	if team.OwnerID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the team owner can delete the team")
	}

	if err := repo.Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete team")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleTeamJoin enrolls the current user into a team.
func HandleTeamJoin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTeamRepository()
	if _, err := repo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load team")
	}

	member, err := repo.IsMember(id, userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check membership")
	}
	if member {
		return jsonError(c, fiber.StatusConflict, "already_member", "user is already a member of this team")
	}

	if err := repo.AddMember(id, userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to join team")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleTeamLeave removes the current user from a team. The owner cannot
// leave their own team.
func HandleTeamLeave(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	repo := repository.GetGlobalFactory().GetTeamRepository()
	team, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "team not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load team")
	}
	if team.OwnerID == userCtx.UserID {
		return jsonError(c, fiber.StatusConflict, "owner_cannot_leave", "transfer or delete the team instead")
	}

	if err := repo.RemoveMember(id, userCtx.UserID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to leave team")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleTeamMembers lists the users enrolled in a team.
func HandleTeamMembers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	}

	users, err := repository.GetGlobalFactory().GetTeamRepository().GetMembers(id)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load members")
	}

	members := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		members = append(members, fiber.Map{"id": u.ID, "name": u.Name, "avatar_url": u.AvatarURL})
	}
	return c.JSON(fiber.Map{"members": members})
}
