package db

import "time"

// 文章生命周期状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Article 定义了知识库文章模型。文章是一个聚合根：
// 分类、标签、关联系统、步骤、图片、附件和评分都从属于它。
// 删除文章时在事务内显式清理所有从属记录（硬删除）。
type Article struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Status      string    `gorm:"index;default:draft" json:"status"`
	Type        string    `gorm:"default:guide" json:"type"`
	Priority    string    `gorm:"default:medium" json:"priority"`
	Views       int64     `gorm:"default:0" json:"views"`
	Rating      float64   `gorm:"default:0" json:"rating"`
	RatingCount int64     `gorm:"default:0" json:"ratingCount"`
	CreatedBy   uint      `gorm:"index" json:"createdBy"`
	UpdatedBy   uint      `json:"updatedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// 聚合装配字段：读取路径按从属集合逐一查询后填充，不映射为列。
	Author      *User          `gorm:"-" json:"author,omitempty"`
	Editor      *User          `gorm:"-" json:"editor,omitempty"`
	Categories  []Category     `gorm:"-" json:"categories"`
	Tags        []string       `gorm:"-" json:"tags"`
	Systems     []string       `gorm:"-" json:"systems"`
	Steps       []ArticleStep  `gorm:"-" json:"steps"`
	Images      []ArticleImage `gorm:"-" json:"images"`
	Attachments []Attachment   `gorm:"-" json:"attachments"`
	Related     []ArticleRef   `gorm:"-" json:"relatedArticles"`
}

// ArticleCategory 是文章与分类的多对多连接记录，(article, category) 对唯一。
type ArticleCategory struct {
	ArticleID  uint `gorm:"primaryKey;autoIncrement:false" json:"articleId"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false" json:"categoryId"`
}

// ArticleTag 是文章的自由文本标签行，允许同一文章出现重复标签。
type ArticleTag struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ArticleID uint   `gorm:"index;not null" json:"articleId"`
	Tag       string `gorm:"not null" json:"tag"`
}

// ArticleSystem 记录文章涉及的运维系统名称，作用域与标签一致。
type ArticleSystem struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ArticleID uint   `gorm:"index;not null" json:"articleId"`
	System    string `gorm:"not null" json:"system"`
}

// ArticleStep 是文章的有序解决步骤，顺序由 sequence 决定。
type ArticleStep struct {
	ID          uint   `gorm:"primarykey" json:"-"`
	ArticleID   uint   `gorm:"index;not null" json:"-"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Sequence    int    `gorm:"default:0" json:"sequence"`
}

// ArticleImage 引用外部存储的图片文件。
type ArticleImage struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ArticleID uint   `gorm:"index;not null" json:"-"`
	URL       string `gorm:"not null" json:"url"`
	Caption   string `json:"caption"`
	AltText   string `json:"altText"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Sequence  int    `gorm:"default:0" json:"sequence"`
}

// Attachment 引用外部存储的附件文件。
type Attachment struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ArticleID uint   `gorm:"index;not null" json:"-"`
	Name      string `gorm:"not null" json:"name"`
	URL       string `gorm:"not null" json:"url"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
}

// Rating 记录单个用户对单篇文章的评分，(article, user) 对唯一。
// 文章上的 rating/rating_count 是该集合的派生缓存，只允许通过
// 重算流程写入。
type Rating struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ArticleID uint      `gorm:"uniqueIndex:idx_ratings_article_user;not null" json:"articleId"`
	UserID    uint      `gorm:"uniqueIndex:idx_ratings_article_user;not null" json:"userId"`
	Rating    int       `gorm:"not null" json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RelatedArticle 是文章之间的有向关联，引擎侧只读。
type RelatedArticle struct {
	ID               uint `gorm:"primarykey" json:"id"`
	ArticleID        uint `gorm:"index;not null" json:"articleId"`
	RelatedArticleID uint `gorm:"not null" json:"relatedArticleId"`
}

// ArticleRef 是文章的轻量投影，用于关联文章与最近列表。
type ArticleRef struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
