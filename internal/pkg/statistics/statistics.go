package statistics

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/cache"
	"github.com/MarcChevalier/Tastevin/internal/pkg/database"
)

const (
	CacheKeyNotesTotal = "statistics:notes:total"
	CacheKeyNotesDaily = "statistics:notes:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers      = "statistics:users:total"
	CacheExpiration    = 30 * time.Minute
)

// StatisticsData holds the counters shown on the admin dashboard
type StatisticsData struct {
	TodayNotes int `json:"today_notes"`
	TotalUsers int `json:"total_users"`
	TotalNotes int `json:"total_notes"`
}

// DailyCount is one day in an activity series
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// GetTotalNotes returns the total number of tasting notes from cache or database
func GetTotalNotes() int {
	val, err := cache.Get(CacheKeyNotesTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.TastingNote{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total notes: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyNotesTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total notes: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayNotes returns the number of tasting notes recorded today from
// cache or database
func GetTodayNotes() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyNotesDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.TastingNote{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's notes: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's notes: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics counters
func GetStatisticsData() StatisticsData {
	return StatisticsData{
		TodayNotes: GetTodayNotes(),
		TotalUsers: GetTotalUsers(),
		TotalNotes: GetTotalNotes(),
	}
}

// NoteSeries returns the tasting notes recorded per day over the last days.
// Days without activity appear with a zero count.
func NoteSeries(days int) ([]DailyCount, error) {
	return dailySeries(&models.TastingNote{}, days)
}

// SignupSeries returns the accounts created per day over the last days.
func SignupSeries(days int) ([]DailyCount, error) {
	return dailySeries(&models.User{}, days)
}

func dailySeries(model interface{}, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 30
	}

	db := database.GetDB()
	since := time.Now().AddDate(0, 0, -days+1).Truncate(24 * time.Hour)

	var rows []DailyCount
	err := db.Model(model).
		Select("DATE(created_at) AS date, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r.Count
	}

	series := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, DailyCount{Date: day, Count: byDate[day]})
	}

	return series, nil
}
