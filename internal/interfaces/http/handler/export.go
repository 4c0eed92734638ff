package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookforge/internal/application/export"
	"bookforge/internal/application/generation"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	epubContentType = "application/epub+zip"
)

// ExportHandler 文档导出处理器
type ExportHandler struct {
	runs    *generation.RunService
	exports *export.Service
}

// NewExportHandler 创建导出处理器
func NewExportHandler(runs *generation.RunService, exports *export.Service) *ExportHandler {
	return &ExportHandler{runs: runs, exports: exports}
}

// attachment 输出下载附件
func attachment(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// DOCX 导出 DOCX 文件
// @Summary 导出 DOCX
// @Description 把完整书籍导出为 Word 文档
// @Tags Export
// @Produce application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param id path string true "运行 ID"
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/books/{id}/export/docx [get]
func (h *ExportHandler) DOCX(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := h.exports.DOCX(c.Request.Context(), run.ID, run.Book())
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, docxContentType, run.ID+".docx", data)
}

// EPUB 导出 EPUB 文件
// @Summary 导出 EPUB
// @Description 把完整书籍导出为 EPUB 电子书
// @Tags Export
// @Produce application/epub+zip
// @Param id path string true "运行 ID"
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/books/{id}/export/epub [get]
func (h *ExportHandler) EPUB(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := h.exports.EPUB(c.Request.Context(), run.ID, run.Book())
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, epubContentType, run.ID+".epub", data)
}
