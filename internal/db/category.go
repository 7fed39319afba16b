package db

import "time"

// Category 定义了文章分类模型，支持一级父子层级，软删除通过 is_active 标记。
type Category struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`
	Icon        string    `gorm:"default:folder" json:"icon"`
	Color       string    `gorm:"default:#3498db" json:"color"`
	ParentID    *uint     `gorm:"index" json:"parentId"`
	IsActive    bool      `gorm:"default:true" json:"isActive"`
	CreatedBy   uint      `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// 列表查询通过 JOIN 统计的已发布文章数，不映射为列。
	ArticleCount int64 `gorm:"->;-:migration" json:"articleCount"`
}
