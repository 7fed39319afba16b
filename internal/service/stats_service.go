package service

import (
	"math"
	"sync"

	"github.com/kbase/internal/db"
	"gorm.io/gorm"
)

// StatsService computes dashboard level aggregates over all articles.
type StatsService struct {
	db *gorm.DB
}

// Stats 是仪表盘统计结果：全量计数（不做状态过滤）加最近创建的五篇文章。
type Stats struct {
	TotalArticles int64           `json:"totalArticles"`
	Published     int64           `json:"published"`
	Draft         int64           `json:"draft"`
	Archived      int64           `json:"archived"`
	TotalViews    int64           `json:"totalViews"`
	AvgRating     float64         `json:"avgRating"`
	Recent        []db.ArticleRef `json:"recent"`
}

// NewStatsService creates a StatsService instance.
func NewStatsService(gdb *gorm.DB) *StatsService {
	return &StatsService{db: gdb}
}

// GetStats 并发执行聚合查询与最近文章投影并合并结果。
func (s *StatsService) GetStats() (*Stats, error) {
	var (
		wg        sync.WaitGroup
		stats     Stats
		countsErr error
		recentErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		var row struct {
			TotalArticles int64
			Published     int64
			Draft         int64
			Archived      int64
			TotalViews    int64
			AvgRating     float64
		}
		countsErr = s.db.Model(&db.Article{}).
			Select("COUNT(*) AS total_articles, " +
				"COALESCE(SUM(CASE WHEN status = 'published' THEN 1 ELSE 0 END), 0) AS published, " +
				"COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0) AS draft, " +
				"COALESCE(SUM(CASE WHEN status = 'archived' THEN 1 ELSE 0 END), 0) AS archived, " +
				"COALESCE(SUM(views), 0) AS total_views, " +
				"COALESCE(AVG(rating), 0) AS avg_rating").
			Scan(&row).Error
		if countsErr == nil {
			stats.TotalArticles = row.TotalArticles
			stats.Published = row.Published
			stats.Draft = row.Draft
			stats.Archived = row.Archived
			stats.TotalViews = row.TotalViews
			stats.AvgRating = math.Round(row.AvgRating*100) / 100
		}
	}()

	go func() {
		defer wg.Done()
		recent := []db.ArticleRef{}
		recentErr = s.db.Model(&db.Article{}).
			Select("id, title, slug, status, created_at").
			Order("created_at desc, id desc").
			Limit(5).
			Scan(&recent).Error
		if recentErr == nil {
			stats.Recent = recent
		}
	}()

	wg.Wait()

	if countsErr != nil {
		return nil, countsErr
	}
	if recentErr != nil {
		return nil, recentErr
	}
	return &stats, nil
}
