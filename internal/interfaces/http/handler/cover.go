package handler

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"bookforge/internal/application/generation"
	"bookforge/internal/interfaces/http/dto"
)

// CoverHandler 封面生成处理器
type CoverHandler struct {
	chain *generation.Fallback
}

// NewCoverHandler 创建封面处理器，chain 为图片回退链
func NewCoverHandler(chain *generation.Fallback) *CoverHandler {
	return &CoverHandler{chain: chain}
}

// Create 生成封面图片
// @Summary 生成封面图片
// @Description 沿图片回退链生成封面，返回 base64 编码的图片数据
// @Tags Covers
// @Accept json
// @Produce json
// @Param request body dto.CoverRequest true "封面参数"
// @Success 200 {object} dto.Response[dto.CoverResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/covers [post]
func (h *CoverHandler) Create(c *gin.Context) {
	var req dto.CoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	if req.SizeTier == "" {
		req.SizeTier = "medium"
	}

	image, err := h.chain.GenerateCoverImage(c.Request.Context(), req.Prompt, req.SizeTier)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.CoverResponse{
		Provider: image.Provider,
		MIMEType: image.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(image.Data),
	})
}
