package handler

import (
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kbase/internal/db"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// UploadArticleImage 接收图片上传，探测尺寸后挂到文章下。
func (a *API) UploadArticleImage(c *gin.Context) {
	articleID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !a.articleExists(c, articleID) {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	width, height, err := probeImageSize(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无法识别的图片格式")
		return
	}

	fileURL, err := a.saveUploadedFile(c, file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	row := db.ArticleImage{
		ArticleID: articleID,
		URL:       fileURL,
		Caption:   c.PostForm("caption"),
		AltText:   c.PostForm("altText"),
		Width:     width,
		Height:    height,
		Sequence:  parseIntQuery(c, "sequence", 0),
	}
	if err := a.db.Create(&row).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "保存图片记录失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": row})
}

// UploadAttachment 接收附件上传并挂到文章下。
func (a *API) UploadAttachment(c *gin.Context) {
	articleID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !a.articleExists(c, articleID) {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的文件")
		return
	}

	fileURL, err := a.saveUploadedFile(c, file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	row := db.Attachment{
		ArticleID: articleID,
		Name:      file.Filename,
		URL:       fileURL,
		MimeType:  file.Header.Get("Content-Type"),
		Size:      file.Size,
	}
	if err := a.db.Create(&row).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "保存附件记录失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": row})
}

func (a *API) articleExists(c *gin.Context, articleID uint) bool {
	var count int64
	if err := a.db.Model(&db.Article{}).Where("id = ?", articleID).
		Count(&count).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return false
	}
	if count == 0 {
		respondError(c, http.StatusNotFound, "文章不存在")
		return false
	}
	return true
}

// saveUploadedFile 以日期加 UUID 的唯一文件名落盘，返回访问 URL。
func (a *API) saveUploadedFile(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		return "", err
	}

	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(a.uploadDir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", strings.TrimRight(a.uploadURL, "/"), newFilename), nil
}

func probeImageSize(file *multipart.FileHeader) (int, int, error) {
	reader, err := file.Open()
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
