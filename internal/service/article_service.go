package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbase/internal/db"
	"gorm.io/gorm"
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrInvalidTitle     = errors.New("title does not produce a valid slug")
	ErrSlugConflict     = errors.New("article slug already exists")
	ErrInvalidReference = errors.New("referenced category does not exist")
	ErrEmptyKeyword     = errors.New("search keyword is empty")
)

// ArticleService wraps article aggregate persistence and queries.
type ArticleService struct {
	db *gorm.DB
}

// NewArticleService creates an ArticleService instance.
func NewArticleService(gdb *gorm.DB) *ArticleService {
	return &ArticleService{db: gdb}
}

// StepInput 描述一条解决步骤。
type StepInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Sequence    int    `json:"sequence"`
}

// ArticleInput represents fields accepted when creating an article.
type ArticleInput struct {
	Title       string
	Content     string
	Excerpt     string
	Status      string
	Type        string
	Priority    string
	CategoryIDs []uint
	Tags        []string
	Systems     []string
	Steps       []StepInput
}

// ArticleUpdate 是显式的部分更新类型：标量字段用指针表示是否提供，
// 四个从属集合用指向切片的指针承载三态语义——
// nil 表示未提供（保持不动），指向空切片表示显式清空。
type ArticleUpdate struct {
	Title       *string
	Content     *string
	Excerpt     *string
	Status      *string
	Type        *string
	Priority    *string
	CategoryIDs *[]uint
	Tags        *[]string
	Systems     *[]string
	Steps       *[]StepInput
}

// ArticleFilter describes filters for listing articles.
type ArticleFilter struct {
	Page       int
	PerPage    int
	Search     string
	CategoryID uint
	Type       string
	Priority   string
	Status     string
	AuthorID   uint
	SortBy     string
	SortOrder  string
	IncludeAll bool
}

// ArticleListItem 是列表查询的瘦投影：标量列加作者展示字段与
// 逗号连接的分类名，不含完整聚合。
type ArticleListItem struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	Priority      string    `json:"priority"`
	Views         int64     `json:"views"`
	Rating        float64   `json:"rating"`
	RatingCount   int64     `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	AuthorName    string    `json:"authorName"`
	AuthorAvatar  string    `json:"authorAvatar"`
	CategoryNames string    `json:"categoryNames"`
}

// ArticleListResult aggregates paginated list data and counters.
type ArticleListResult struct {
	Data    []ArticleListItem
	Total   int64
	Pages   int
	Page    int
	PerPage int
}

// SearchResult 是相关度排序的搜索结果行。
type SearchResult struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Excerpt   string `json:"excerpt"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
	Relevance int    `json:"relevance"`
}

// PopularItem 是热门文章投影。
type PopularItem struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Excerpt     string  `json:"excerpt"`
	Views       int64   `json:"views"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"ratingCount"`
}

// 列表排序字段白名单，键为调用方传入的字段名。
var sortColumns = map[string]string{
	"created_at": "articles.created_at",
	"updated_at": "articles.updated_at",
	"title":      "articles.title",
	"views":      "articles.views",
	"rating":     "articles.rating",
	"priority":   "articles.priority",
}

// Create persists the article aggregate in a single transaction and
// returns it re-read inside the same transaction.
func (s *ArticleService) Create(input ArticleInput, authorID uint) (*db.Article, error) {
	slug := Slugify(input.Title)
	if slug == "" {
		return nil, ErrInvalidTitle
	}

	article := db.Article{
		Title:     input.Title,
		Slug:      slug,
		Content:   input.Content,
		Excerpt:   input.Excerpt,
		Status:    defaultString(input.Status, db.StatusDraft),
		Type:      defaultString(input.Type, "guide"),
		Priority:  defaultString(input.Priority, "medium"),
		CreatedBy: authorID,
		UpdatedBy: authorID,
	}

	var created *db.Article
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&article).Error; err != nil {
			return translateWriteError(err)
		}

		if len(input.CategoryIDs) > 0 {
			if err := replaceCategories(tx, article.ID, input.CategoryIDs); err != nil {
				return err
			}
		}
		if len(input.Tags) > 0 {
			if err := replaceTags(tx, article.ID, input.Tags); err != nil {
				return err
			}
		}
		if len(input.Systems) > 0 {
			if err := replaceSystems(tx, article.ID, input.Systems); err != nil {
				return err
			}
		}
		if len(input.Steps) > 0 {
			if err := replaceSteps(tx, article.ID, input.Steps); err != nil {
				return err
			}
		}

		full, err := s.findByID(tx, article.ID)
		if err != nil {
			return err
		}
		if full == nil {
			return ErrArticleNotFound
		}
		created = full
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update to an existing article. Only supplied
// scalar fields enter the SET list; a supplied title recomputes the slug
// in lock-step. Each supplied collection is fully replaced, an omitted
// one is left untouched. An entirely empty update is a no-op read.
func (s *ArticleService) Update(id uint, input ArticleUpdate, editorID uint) (*db.Article, error) {
	updates := map[string]interface{}{}
	if input.Title != nil {
		slug := Slugify(*input.Title)
		if slug == "" {
			return nil, ErrInvalidTitle
		}
		updates["title"] = *input.Title
		updates["slug"] = slug
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.Excerpt != nil {
		updates["excerpt"] = *input.Excerpt
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}

	hasCollections := input.CategoryIDs != nil || input.Tags != nil ||
		input.Systems != nil || input.Steps != nil

	var updated *db.Article
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing db.Article
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}

		if len(updates) > 0 || hasCollections {
			updates["updated_by"] = editorID
			if err := tx.Model(&db.Article{}).Where("id = ?", id).
				Updates(updates).Error; err != nil {
				return translateWriteError(err)
			}
		}

		if input.CategoryIDs != nil {
			if err := replaceCategories(tx, id, *input.CategoryIDs); err != nil {
				return err
			}
		}
		if input.Tags != nil {
			if err := replaceTags(tx, id, *input.Tags); err != nil {
				return err
			}
		}
		if input.Systems != nil {
			if err := replaceSystems(tx, id, *input.Systems); err != nil {
				return err
			}
		}
		if input.Steps != nil {
			if err := replaceSteps(tx, id, *input.Steps); err != nil {
				return err
			}
		}

		full, err := s.findByID(tx, id)
		if err != nil {
			return err
		}
		if full == nil {
			return ErrArticleNotFound
		}
		updated = full
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an article and all owned sub-records in one transaction.
func (s *ArticleService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing db.Article
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}

		cleanups := []interface{}{
			&db.ArticleCategory{},
			&db.ArticleTag{},
			&db.ArticleSystem{},
			&db.ArticleStep{},
			&db.ArticleImage{},
			&db.Attachment{},
			&db.Rating{},
			&db.RelatedArticle{},
		}
		for _, model := range cleanups {
			if err := tx.Where("article_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		// 指向该文章的关联链接同样清理，避免悬挂引用。
		if err := tx.Where("related_article_id = ?", id).
			Delete(&db.RelatedArticle{}).Error; err != nil {
			return err
		}

		return tx.Delete(&db.Article{}, id).Error
	})
}

// IncrementViews 单调递增文章浏览计数。
func (s *ArticleService) IncrementViews(id uint) error {
	return s.db.Model(&db.Article{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// FindByID returns the full article aggregate, or nil when absent.
func (s *ArticleService) FindByID(id uint) (*db.Article, error) {
	return s.findByID(s.db, id)
}

// FindBySlug resolves a slug to an id and returns the full aggregate,
// or nil when absent.
func (s *ArticleService) FindBySlug(slug string) (*db.Article, error) {
	var article db.Article
	if err := s.db.Select("id").Where("slug = ?", slug).
		First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.findByID(s.db, article.ID)
}

// findByID 装配完整聚合。接受事务句柄，因此既可独立读取，
// 也可作为写事务的收尾步骤以保证读己之写。
func (s *ArticleService) findByID(tx *gorm.DB, id uint) (*db.Article, error) {
	var article db.Article
	if err := tx.First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if article.CreatedBy != 0 {
		var author db.User
		if err := tx.First(&author, article.CreatedBy).Error; err == nil {
			article.Author = &author
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if article.UpdatedBy != 0 {
		var editor db.User
		if err := tx.First(&editor, article.UpdatedBy).Error; err == nil {
			article.Editor = &editor
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	article.Categories = []db.Category{}
	if err := tx.Model(&db.Category{}).
		Select("categories.*").
		Joins("JOIN article_categories ac ON ac.category_id = categories.id").
		Where("ac.article_id = ? AND categories.is_active = ?", id, true).
		Order("categories.name asc").
		Find(&article.Categories).Error; err != nil {
		return nil, err
	}

	article.Tags = []string{}
	if err := tx.Model(&db.ArticleTag{}).
		Where("article_id = ?", id).Order("id asc").
		Pluck("tag", &article.Tags).Error; err != nil {
		return nil, err
	}

	article.Systems = []string{}
	if err := tx.Model(&db.ArticleSystem{}).
		Where("article_id = ?", id).Order("id asc").
		Pluck("system", &article.Systems).Error; err != nil {
		return nil, err
	}

	article.Steps = []db.ArticleStep{}
	if err := tx.Where("article_id = ?", id).
		Order("sequence asc, id asc").
		Find(&article.Steps).Error; err != nil {
		return nil, err
	}

	article.Images = []db.ArticleImage{}
	if err := tx.Where("article_id = ?", id).
		Order("sequence asc, id asc").
		Find(&article.Images).Error; err != nil {
		return nil, err
	}

	article.Attachments = []db.Attachment{}
	if err := tx.Where("article_id = ?", id).
		Find(&article.Attachments).Error; err != nil {
		return nil, err
	}

	article.Related = []db.ArticleRef{}
	if err := tx.Model(&db.Article{}).
		Select("articles.id, articles.title, articles.slug, articles.excerpt, articles.created_at").
		Joins("JOIN related_articles ra ON ra.related_article_id = articles.id").
		Where("ra.article_id = ? AND articles.status = ?", id, db.StatusPublished).
		Scan(&article.Related).Error; err != nil {
		return nil, err
	}

	return &article, nil
}

// List provides paginated thin article rows based on filters. The total
// is counted with the same predicate set before slicing so pages always
// agree with it.
func (s *ArticleService) List(filter ArticleFilter) (*ArticleListResult, error) {
	result := &ArticleListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 10
	}
	if result.PerPage > 100 {
		result.PerPage = 100
	}

	countQuery := s.applyFilters(s.db.Model(&db.Article{}), filter)
	if err := countQuery.Count(&result.Total).Error; err != nil {
		return nil, err
	}

	offset := (result.Page - 1) * result.PerPage

	items := []ArticleListItem{}
	dataQuery := s.db.Model(&db.Article{}).
		Select("articles.id, articles.title, articles.slug, articles.excerpt, " +
			"articles.status, articles.type, articles.priority, articles.views, " +
			"articles.rating, articles.rating_count, articles.created_at, articles.updated_at, " +
			"users.name AS author_name, users.avatar AS author_avatar, " +
			"GROUP_CONCAT(DISTINCT categories.name) AS category_names").
		Joins("LEFT JOIN users ON users.id = articles.created_by").
		Joins("LEFT JOIN article_categories ON article_categories.article_id = articles.id").
		Joins("LEFT JOIN categories ON categories.id = article_categories.category_id AND categories.is_active = ?", true)
	dataQuery = s.applyFilters(dataQuery, filter)

	if err := dataQuery.Group("articles.id").
		Order(orderClause(filter.SortBy, filter.SortOrder)).
		Limit(result.PerPage).Offset(offset).
		Scan(&items).Error; err != nil {
		return nil, err
	}

	if result.Total == 0 {
		result.Pages = 0
	} else {
		result.Pages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Data = items
	return result, nil
}

// Search computes a weighted relevance score over title, excerpt and
// content for published articles and orders by it descending.
func (s *ArticleService) Search(keyword string, limit int) ([]SearchResult, error) {
	trimmed := strings.TrimSpace(keyword)
	if trimmed == "" {
		return nil, ErrEmptyKeyword
	}
	if limit <= 0 {
		limit = 20
	}

	like := "%" + trimmed + "%"
	results := []SearchResult{}
	if err := s.db.Model(&db.Article{}).
		Select("id, title, slug, excerpt, type, priority, "+
			"(CASE WHEN title LIKE ? THEN 3 ELSE 0 END + "+
			"CASE WHEN excerpt LIKE ? THEN 2 ELSE 0 END + "+
			"CASE WHEN content LIKE ? THEN 1 ELSE 0 END) AS relevance",
			like, like, like).
		Where("status = ?", db.StatusPublished).
		Where("(title LIKE ? OR content LIKE ? OR excerpt LIKE ?)", like, like, like).
		Order("relevance desc, id asc").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Popular returns published articles ordered by views then rating.
func (s *ArticleService) Popular(limit int) ([]PopularItem, error) {
	if limit <= 0 {
		limit = 5
	}
	items := []PopularItem{}
	if err := s.db.Model(&db.Article{}).
		Select("id, title, slug, excerpt, views, rating, rating_count").
		Where("status = ?", db.StatusPublished).
		Order("views desc, rating desc, id asc").
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Recent returns the most recently created published articles.
func (s *ArticleService) Recent(limit int) ([]db.ArticleRef, error) {
	if limit <= 0 {
		limit = 5
	}
	items := []db.ArticleRef{}
	if err := s.db.Model(&db.Article{}).
		Select("id, title, slug, excerpt, created_at").
		Where("status = ?", db.StatusPublished).
		Order("created_at desc, id desc").
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// applyFilters 组装 AND 组合的谓词集合。未授权调用强制只看已发布文章。
func (s *ArticleService) applyFilters(query *gorm.DB, filter ArticleFilter) *gorm.DB {
	if !filter.IncludeAll {
		query = query.Where("articles.status = ?", db.StatusPublished)
	} else if filter.Status != "" {
		query = query.Where("articles.status = ?", filter.Status)
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		tagMatches := s.db.Model(&db.ArticleTag{}).
			Select("article_id").
			Where("tag LIKE ?", like)
		query = query.Where(
			"(articles.title LIKE ? OR articles.content LIKE ? OR articles.excerpt LIKE ? OR articles.id IN (?))",
			like, like, like, tagMatches)
	}

	if filter.CategoryID != 0 {
		inCategory := s.db.Model(&db.ArticleCategory{}).
			Select("article_id").
			Where("category_id = ?", filter.CategoryID)
		query = query.Where("articles.id IN (?)", inCategory)
	}

	if filter.Type != "" {
		query = query.Where("articles.type = ?", filter.Type)
	}

	if filter.Priority != "" {
		query = query.Where("articles.priority = ?", filter.Priority)
	}

	if filter.AuthorID != 0 {
		query = query.Where("articles.created_by = ?", filter.AuthorID)
	}

	return query
}

func orderClause(sortBy, sortOrder string) string {
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		column = "articles.created_at"
	}
	direction := "desc"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		direction = "asc"
	}
	return fmt.Sprintf("%s %s, articles.id desc", column, direction)
}

// replaceCategories 全量替换文章的分类关联：先删后插。
// 被引用的分类在事务内做存在性检查，缺失时报无效引用。
func replaceCategories(tx *gorm.DB, articleID uint, categoryIDs []uint) error {
	if err := tx.Where("article_id = ?", articleID).
		Delete(&db.ArticleCategory{}).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}

	unique := map[uint]struct{}{}
	for _, id := range categoryIDs {
		unique[id] = struct{}{}
	}
	var count int64
	if err := tx.Model(&db.Category{}).
		Where("id IN ?", categoryIDs).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(unique)) {
		return ErrInvalidReference
	}

	rows := make([]db.ArticleCategory, 0, len(unique))
	for id := range unique {
		rows = append(rows, db.ArticleCategory{ArticleID: articleID, CategoryID: id})
	}
	return tx.Create(&rows).Error
}

func replaceTags(tx *gorm.DB, articleID uint, tags []string) error {
	if err := tx.Where("article_id = ?", articleID).
		Delete(&db.ArticleTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]db.ArticleTag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, db.ArticleTag{ArticleID: articleID, Tag: tag})
	}
	return tx.Create(&rows).Error
}

func replaceSystems(tx *gorm.DB, articleID uint, systems []string) error {
	if err := tx.Where("article_id = ?", articleID).
		Delete(&db.ArticleSystem{}).Error; err != nil {
		return err
	}
	if len(systems) == 0 {
		return nil
	}
	rows := make([]db.ArticleSystem, 0, len(systems))
	for _, system := range systems {
		rows = append(rows, db.ArticleSystem{ArticleID: articleID, System: system})
	}
	return tx.Create(&rows).Error
}

func replaceSteps(tx *gorm.DB, articleID uint, steps []StepInput) error {
	if err := tx.Where("article_id = ?", articleID).
		Delete(&db.ArticleStep{}).Error; err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	rows := make([]db.ArticleStep, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, db.ArticleStep{
			ArticleID:   articleID,
			Title:       step.Title,
			Description: step.Description,
			Sequence:    step.Sequence,
		})
	}
	return tx.Create(&rows).Error
}

func translateWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrSlugConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInvalidReference
	default:
		return err
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
