package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kbase/internal/service"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	ParentID    *uint  `json:"parentId"`
}

// ListCategories 返回启用中的分类及其已发布文章数。
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Query("parentOnly") == "true")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// GetCategory 按 slug 返回单个分类。
func (a *API) GetCategory(c *gin.Context) {
	category, err := a.categories.FindBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类失败")
		return
	}
	if category == nil {
		respondError(c, http.StatusNotFound, "分类不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category})
}

// CreateCategory 新建分类。
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	category, err := a.categories.Create(service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		ParentID:    req.ParentID,
	}, currentUserID(c))
	if err != nil {
		respondCategoryWriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}

// UpdateCategory 更新分类。
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req categoryRequest
	if !bindJSON(c, &req, "请求格式不正确") {
		return
	}

	category, err := a.categories.Update(id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		ParentID:    req.ParentID,
	})
	if err != nil {
		respondCategoryWriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": category})
}

// DeleteCategory 停用分类（软删除）。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.categories.Deactivate(id); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "分类不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除分类失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "分类已停用"})
}

func respondCategoryWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCategoryName):
		respondError(c, http.StatusBadRequest, "分类名称不能为空")
	case errors.Is(err, service.ErrCategoryConflict):
		respondError(c, http.StatusConflict, "已存在相同标识的分类")
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, "分类不存在")
	default:
		respondError(c, http.StatusInternalServerError, "保存分类失败")
	}
}
