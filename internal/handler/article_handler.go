package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kbase/internal/db"
	"github.com/kbase/internal/service"
)

type articleRequest struct {
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Excerpt    string              `json:"excerpt"`
	Status     string              `json:"status"`
	Type       string              `json:"type"`
	Priority   string              `json:"priority"`
	Categories []uint              `json:"categories"`
	Tags       []string            `json:"tags"`
	Systems    []string            `json:"systems"`
	Steps      []service.StepInput `json:"steps"`
}

// articleUpdateRequest 镜像 service.ArticleUpdate 的三态语义：
// JSON 中缺失的键解码为 nil 指针，显式空数组解码为空切片指针。
type articleUpdateRequest struct {
	Title      *string              `json:"title"`
	Content    *string              `json:"content"`
	Excerpt    *string              `json:"excerpt"`
	Status     *string              `json:"status"`
	Type       *string              `json:"type"`
	Priority   *string              `json:"priority"`
	Categories *[]uint              `json:"categories"`
	Tags       *[]string            `json:"tags"`
	Systems    *[]string            `json:"systems"`
	Steps      *[]service.StepInput `json:"steps"`
}

type rateRequest struct {
	Rating int `json:"rating"`
}

// ListArticles 返回过滤分页后的文章列表。
// 只有管理员能看到非 published 状态的文章。
func (a *API) ListArticles(c *gin.Context) {
	filter := service.ArticleFilter{
		Page:       parseIntQuery(c, "page", 1),
		PerPage:    parseIntQuery(c, "limit", 10),
		Search:     c.Query("search"),
		CategoryID: parseUintQuery(c, "category"),
		Type:       c.Query("type"),
		Priority:   c.Query("priority"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}

	if isAdmin(c) {
		filter.IncludeAll = true
		filter.Status = c.Query("status")
	}
	if c.Query("mine") == "true" {
		filter.AuthorID = currentUserID(c)
	}

	result, err := a.articles.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Data,
		"pagination": gin.H{
			"page":  result.Page,
			"limit": result.PerPage,
			"total": result.Total,
			"pages": result.Pages,
		},
	})
}

// GetArticle 按 slug 返回完整文章聚合，并为公开访问累加浏览数。
func (a *API) GetArticle(c *gin.Context) {
	article, err := a.articles.FindBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}
	if article == nil {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}

	// 草稿只有管理员或作者本人可见
	if article.Status != db.StatusPublished &&
		!isAdmin(c) && article.CreatedBy != currentUserID(c) {
		respondError(c, http.StatusForbidden, "没有权限查看该文章")
		return
	}

	if article.Status == db.StatusPublished {
		if err := a.articles.IncrementViews(article.ID); err == nil {
			article.Views++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        article,
		"contentHtml": renderMarkdown(article.Content),
	})
}

// CreateArticle 在单个事务内持久化文章聚合。
func (a *API) CreateArticle(c *gin.Context) {
	var req articleRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	article, err := a.articles.Create(service.ArticleInput{
		Title:       req.Title,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Status:      req.Status,
		Type:        req.Type,
		Priority:    req.Priority,
		CategoryIDs: req.Categories,
		Tags:        req.Tags,
		Systems:     req.Systems,
		Steps:       req.Steps,
	}, currentUserID(c))
	if err != nil {
		respondArticleWriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": article})
}

// UpdateArticle 对现有文章应用部分更新。
func (a *API) UpdateArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.articles.FindByID(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}
	if existing == nil {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}
	if !isAdmin(c) && existing.CreatedBy != currentUserID(c) {
		respondError(c, http.StatusForbidden, "没有权限修改该文章")
		return
	}

	var req articleUpdateRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	article, err := a.articles.Update(id, service.ArticleUpdate{
		Title:       req.Title,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Status:      req.Status,
		Type:        req.Type,
		Priority:    req.Priority,
		CategoryIDs: req.Categories,
		Tags:        req.Tags,
		Systems:     req.Systems,
		Steps:       req.Steps,
	}, currentUserID(c))
	if err != nil {
		respondArticleWriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}

// DeleteArticle 硬删除文章及全部从属记录。
func (a *API) DeleteArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.articles.FindByID(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}
	if existing == nil {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}
	if !isAdmin(c) && existing.CreatedBy != currentUserID(c) {
		respondError(c, http.StatusForbidden, "没有权限删除该文章")
		return
	}

	if err := a.articles.Delete(id); err != nil {
		respondError(c, http.StatusInternalServerError, "删除文章失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "文章已删除"})
}

// RateArticle 记录当前用户的评分并返回重算后的聚合。
func (a *API) RateArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req rateRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	summary, err := a.ratings.Rate(id, currentUserID(c), req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrArticleNotFound):
			respondError(c, http.StatusNotFound, "文章不存在")
		default:
			respondError(c, http.StatusInternalServerError, "评分失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// PopularArticles 返回浏览量最高的已发布文章。
func (a *API) PopularArticles(c *gin.Context) {
	items, err := a.articles.Popular(parseIntQuery(c, "limit", 5))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取热门文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// RecentArticles 返回最近发布的文章。
func (a *API) RecentArticles(c *gin.Context) {
	items, err := a.articles.Recent(parseIntQuery(c, "limit", 5))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取最新文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// SearchArticles 执行相关度排序的全文搜索。
func (a *API) SearchArticles(c *gin.Context) {
	results, err := a.articles.Search(c.Query("keyword"), parseIntQuery(c, "limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrEmptyKeyword) {
			respondError(c, http.StatusBadRequest, "搜索关键词不能为空")
			return
		}
		respondError(c, http.StatusInternalServerError, "搜索失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetStats 返回仪表盘统计。
func (a *API) GetStats(c *gin.Context) {
	stats, err := a.stats.GetStats()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取统计失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func respondArticleWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTitle):
		respondError(c, http.StatusBadRequest, "标题不能为空")
	case errors.Is(err, service.ErrInvalidReference):
		respondError(c, http.StatusBadRequest, "引用的分类不存在")
	case errors.Is(err, service.ErrSlugConflict):
		respondError(c, http.StatusConflict, "已存在相同标识的文章")
	case errors.Is(err, service.ErrArticleNotFound):
		respondError(c, http.StatusNotFound, "文章不存在")
	default:
		respondError(c, http.StatusInternalServerError, "保存文章失败")
	}
}
