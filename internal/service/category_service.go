package service

import (
	"errors"
	"strings"

	"github.com/kbase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryConflict = errors.New("category slug already exists")
	ErrCategoryName     = errors.New("category name does not produce a valid slug")
)

// CategoryService wraps category directory operations.
type CategoryService struct {
	db *gorm.DB
}

// CategoryInput represents fields accepted when creating or updating
// a category.
type CategoryInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
	ParentID    *uint
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// Create persists a category with a slug derived from its name.
func (s *CategoryService) Create(input CategoryInput, userID uint) (*db.Category, error) {
	slug := Slugify(input.Name)
	if slug == "" {
		return nil, ErrCategoryName
	}

	category := db.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slug,
		Description: input.Description,
		Icon:        defaultString(input.Icon, "folder"),
		Color:       defaultString(input.Color, "#3498db"),
		ParentID:    input.ParentID,
		IsActive:    true,
		CreatedBy:   userID,
	}

	if err := s.db.Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryConflict
		}
		return nil, err
	}
	return &category, nil
}

// Update 重命名会同步重新派生 slug；其余字段整体覆盖。
func (s *CategoryService) Update(id uint, input CategoryInput) (*db.Category, error) {
	var existing db.Category
	if err := s.db.Where("is_active = ?", true).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if strings.TrimSpace(input.Name) != "" {
		slug := Slugify(input.Name)
		if slug == "" {
			return nil, ErrCategoryName
		}
		existing.Name = strings.TrimSpace(input.Name)
		existing.Slug = slug
	}
	if input.Description != "" {
		existing.Description = input.Description
	}
	if input.Icon != "" {
		existing.Icon = input.Icon
	}
	if input.Color != "" {
		existing.Color = input.Color
	}
	if input.ParentID != nil {
		existing.ParentID = input.ParentID
	}

	if err := s.db.Save(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryConflict
		}
		return nil, err
	}
	return &existing, nil
}

// Deactivate 软删除分类：仅翻转 is_active 标记，保留历史关联。
func (s *CategoryService) Deactivate(id uint) error {
	result := s.db.Model(&db.Category{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// List returns active categories ordered by name, each with its count
// of published articles. parentOnly restricts to top level categories.
func (s *CategoryService) List(parentOnly bool) ([]db.Category, error) {
	query := s.db.Model(&db.Category{}).
		Select("categories.*, COUNT(DISTINCT articles.id) AS article_count").
		Joins("LEFT JOIN article_categories ON article_categories.category_id = categories.id").
		Joins("LEFT JOIN articles ON articles.id = article_categories.article_id AND articles.status = ?", db.StatusPublished).
		Where("categories.is_active = ?", true)

	if parentOnly {
		query = query.Where("categories.parent_id IS NULL")
	}

	var categories []db.Category
	if err := query.Group("categories.id").
		Order("categories.name asc").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByID returns an active category, or nil when absent.
func (s *CategoryService) FindByID(id uint) (*db.Category, error) {
	var category db.Category
	if err := s.db.Where("is_active = ?", true).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// FindBySlug returns an active category by slug, or nil when absent.
func (s *CategoryService) FindBySlug(slug string) (*db.Category, error) {
	var category db.Category
	if err := s.db.Where("slug = ? AND is_active = ?", slug, true).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}
