// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookforge/internal/interfaces/http/dto"
	"bookforge/pkg/errors"
)

// respondError 把应用错误映射为 HTTP 错误响应
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	detail := &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
}
