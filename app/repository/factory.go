package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetTeamRepository returns the team repository instance
func (f *Factory) GetTeamRepository() TeamRepository {
	return f.GetRepositories().Team
}

// GetTastingEventRepository returns the tasting event repository instance
func (f *Factory) GetTastingEventRepository() TastingEventRepository {
	return f.GetRepositories().Event
}

// GetTastingNoteRepository returns the tasting note repository instance
func (f *Factory) GetTastingNoteRepository() TastingNoteRepository {
	return f.GetRepositories().Note
}

// GetContestRepository returns the contest repository instance
func (f *Factory) GetContestRepository() ContestRepository {
	return f.GetRepositories().Contest
}

// GetCacheRepository returns the cache repository instance
func (f *Factory) GetCacheRepository() CacheRepository {
	return f.GetRepositories().Cache
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
