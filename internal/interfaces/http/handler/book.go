package handler

import (
	"github.com/gin-gonic/gin"

	"bookforge/internal/application/generation"
	"bookforge/internal/interfaces/http/dto"
)

// BookHandler 书籍生成处理器
type BookHandler struct {
	runs *generation.RunService
}

// NewBookHandler 创建书籍生成处理器
func NewBookHandler(runs *generation.RunService) *BookHandler {
	return &BookHandler{runs: runs}
}

// Create 创建生成运行
// @Summary 创建书籍生成运行
// @Description 提交生成参数，创建运行并在后台开始生成，立即返回运行 ID
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.CreateBookRequest true "生成参数"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	run, err := h.runs.Start(c.Request.Context(), req.ToOptions())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.NewRunResponse(run.Snapshot()))
}

// Get 查询运行状态
// @Summary 查询生成运行状态
// @Tags Books
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewRunResponse(run.Snapshot()))
}

// GetBook 获取汇总后的书籍内容
// @Summary 获取书籍内容
// @Description 返回大纲与已生成章节，运行未完成时内容可能不完整
// @Tags Books
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[entity.GeneratedBook]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/books/{id}/book [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	run, err := h.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, run.Book())
}

// Resume 从失败处继续生成
// @Summary 恢复生成运行
// @Description 从 errored 状态按已持久化章节数继续，已有章节不重新生成
// @Tags Books
// @Produce json
// @Param id path string true "运行 ID"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/books/{id}/resume [post]
func (h *BookHandler) Resume(c *gin.Context) {
	run, err := h.runs.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.NewRunResponse(run.Snapshot()))
}

// Restart 丢弃产物重新生成
// @Summary 重启生成运行
// @Description 丢弃大纲与全部章节，从头开始生成
// @Tags Books
// @Produce json
// @Param id path string true "运行 ID"
// @Success 202 {object} dto.Response[dto.RunResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/books/{id}/restart [post]
func (h *BookHandler) Restart(c *gin.Context) {
	run, err := h.runs.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.NewRunResponse(run.Snapshot()))
}
