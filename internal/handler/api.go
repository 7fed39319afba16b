package handler

import (
	"github.com/kbase/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	articles   *service.ArticleService
	ratings    *service.RatingService
	stats      *service.StatsService
	categories *service.CategoryService
	uploadDir  string
	uploadURL  string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, uploadDir, uploadURL string) *API {
	return &API{
		db:         gdb,
		articles:   service.NewArticleService(gdb),
		ratings:    service.NewRatingService(gdb),
		stats:      service.NewStatsService(gdb),
		categories: service.NewCategoryService(gdb),
		uploadDir:  uploadDir,
		uploadURL:  uploadURL,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
