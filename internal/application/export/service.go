package export

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"bookforge/internal/domain/entity"
	apperrors "bookforge/pkg/errors"
	"bookforge/pkg/metrics"
	"bookforge/pkg/tracer"
)

// validateBook 导出前校验：大纲存在、章节齐全且序号连续
func validateBook(book *entity.GeneratedBook) error {
	if book == nil || book.Outline == nil {
		return apperrors.New(apperrors.CodeConversionError, "no book to export")
	}
	if len(book.Chapters) == 0 {
		return apperrors.New(apperrors.CodeConversionError, "book has no chapters")
	}
	if !book.IsComplete() {
		return apperrors.New(apperrors.CodeConversionError, "book is incomplete").
			WithDetail(fmt.Sprintf("%d of %d chapters generated", len(book.Chapters), book.Outline.ChapterCount()))
	}
	return nil
}

// Service 文档导出服务
// singleflight 合并同一运行的并发重复导出请求
type Service struct {
	group     singleflight.Group
	publisher string
	language  string
}

// NewService 创建导出服务
func NewService(publisher, language string) *Service {
	return &Service{publisher: publisher, language: language}
}

// export 执行一次导出，打点并合并并发请求
func (s *Service) export(ctx context.Context, format, runID string, build func() ([]byte, error)) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "export."+format)
	defer span.End()

	start := time.Now()
	key := runID + ":" + format
	v, err, _ := s.group.Do(key, func() (any, error) {
		return build()
	})
	if err != nil {
		metrics.ExportTotal.WithLabelValues(format, "failure").Inc()
		return nil, err
	}
	metrics.ExportTotal.WithLabelValues(format, "success").Inc()
	metrics.ExportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	return v.([]byte), nil
}

// DOCX 导出 DOCX 字节流
func (s *Service) DOCX(ctx context.Context, runID string, book *entity.GeneratedBook) ([]byte, error) {
	return s.export(ctx, "docx", runID, func() ([]byte, error) {
		return WriteDOCX(book, s.publisher)
	})
}

// EPUB 导出 EPUB 字节流
func (s *Service) EPUB(ctx context.Context, runID string, book *entity.GeneratedBook) ([]byte, error) {
	return s.export(ctx, "epub", runID, func() ([]byte, error) {
		return WriteEPUB(book, s.language)
	})
}
