package repository

import (
	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// teamRepository implements the TeamRepository interface
type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new team repository instance
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

// Create creates a new team and enrolls the owner as its first member
func (r *teamRepository) Create(team *models.Team) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := models.TeamMember{TeamID: team.ID, UserID: team.OwnerID}
		return tx.Create(&member).Error
	})
}

// GetByID retrieves a team by its ID, including members
func (r *teamRepository) GetByID(id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.Preload("Members").First(&team, id).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByUserID retrieves all teams the user is a member of
func (r *teamRepository) GetByUserID(userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at DESC").Find(&teams).Error
	return teams, err
}

// Update updates an existing team
func (r *teamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// Delete soft deletes a team and removes its memberships
func (r *teamRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Team{}, id).Error
	})
}

// AddMember enrolls a user into a team
func (r *teamRepository) AddMember(teamID, userID uint) error {
	member := models.TeamMember{TeamID: teamID, UserID: userID}
	return r.db.Create(&member).Error
}

// RemoveMember removes a user from a team
func (r *teamRepository) RemoveMember(teamID, userID uint) error {
	return r.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{}).Error
}

// IsMember checks whether the user belongs to the team
func (r *teamRepository) IsMember(teamID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", teamID, userID).Count(&count).Error
	return count > 0, err
}

// GetMembers retrieves the users enrolled in a team
func (r *teamRepository) GetMembers(teamID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Joins("JOIN team_members ON team_members.user_id = users.id").
		Where("team_members.team_id = ?", teamID).Find(&users).Error
	return users, err
}

// Count returns the total number of teams
func (r *teamRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Team{}).Count(&count).Error
	return count, err
}

// CountByOwnerID returns how many teams a user owns
func (r *teamRepository) CountByOwnerID(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Team{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}
