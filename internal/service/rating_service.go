package service

import (
	"errors"
	"math"

	"github.com/kbase/internal/db"
	"gorm.io/gorm"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// RatingService wraps per-user rating submission and the derived
// aggregate recompute on the article.
type RatingService struct {
	db *gorm.DB
}

// RatingSummary 是重算后的文章评分聚合，均值保留两位小数。
type RatingSummary struct {
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"ratingCount"`
}

// NewRatingService creates a RatingService instance.
func NewRatingService(gdb *gorm.DB) *RatingService {
	return &RatingService{db: gdb}
}

// Rate upserts the (article, user) rating row and recomputes the
// article's aggregate inside one transaction. A second submission from
// the same user replaces the prior value instead of adding a row.
func (s *RatingService) Rate(articleID, userID uint, value int) (*RatingSummary, error) {
	if value < 1 || value > 5 {
		return nil, ErrInvalidRating
	}

	var summary RatingSummary
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var article db.Article
		if err := tx.Select("id").First(&article, articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}

		var existing db.Rating
		err := tx.Where("article_id = ? AND user_id = ?", articleID, userID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("rating", value).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			rating := db.Rating{ArticleID: articleID, UserID: userID, Rating: value}
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
		default:
			return err
		}

		recomputed, err := recomputeArticleRating(tx, articleID)
		if err != nil {
			return err
		}
		summary = *recomputed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// recomputeArticleRating 是文章派生评分字段唯一的写入口：
// 对该文章的全部评分行求均值与计数，并写回文章缓存列。
// 任何改动评分行的路径都必须经由此函数。
func recomputeArticleRating(tx *gorm.DB, articleID uint) (*RatingSummary, error) {
	var row struct {
		Avg float64
		Cnt int64
	}
	if err := tx.Model(&db.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS cnt").
		Where("article_id = ?", articleID).
		Scan(&row).Error; err != nil {
		return nil, err
	}

	mean := math.Round(row.Avg*100) / 100

	// UpdateColumns 避免触碰 updated_at：缓存重算不是一次内容编辑。
	if err := tx.Model(&db.Article{}).Where("id = ?", articleID).
		UpdateColumns(map[string]interface{}{
			"rating":       mean,
			"rating_count": row.Cnt,
		}).Error; err != nil {
		return nil, err
	}

	return &RatingSummary{Rating: mean, RatingCount: row.Cnt}, nil
}
