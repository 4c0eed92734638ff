package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm/clause"

	"bookforge/internal/domain/entity"
	"bookforge/internal/domain/repository"
)

// RunRecord 运行记录表模型
type RunRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	State        string `gorm:"size:32;index"`
	Topic        string `gorm:"size:512"`
	Author       string `gorm:"size:255"`
	ChapterCount int
	OutlineJSON  string `gorm:"type:text"`
	LastError    string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// TableName 表名
func (RunRecord) TableName() string {
	return "generation_runs"
}

// ChapterRecord 章节记录表模型
type ChapterRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RunID        string `gorm:"size:36;index:idx_run_chapter,unique"`
	ChapterIndex int    `gorm:"index:idx_run_chapter,unique"`
	Title        string `gorm:"size:512"`
	Markdown     string `gorm:"type:text"`
	Provider     string `gorm:"size:64"`
	CreatedAt    time.Time
}

// TableName 表名
func (ChapterRecord) TableName() string {
	return "generation_chapters"
}

// RunRepo 运行记录的尽力而为镜像仓储
type RunRepo struct {
	client *Client
}

var _ repository.RunMirror = (*RunRepo)(nil)

// NewRunRepo 创建镜像仓储并迁移表结构
func NewRunRepo(client *Client) (*RunRepo, error) {
	if err := client.DB().AutoMigrate(&RunRecord{}, &ChapterRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run tables: %w", err)
	}
	return &RunRepo{client: client}, nil
}

// CreateRun 记录新运行
func (r *RunRepo) CreateRun(ctx context.Context, run *entity.RunSnapshot) error {
	ctx, span := tracer.Start(ctx, "run_repo.CreateRun",
		trace.WithAttributes(attribute.String("run.id", run.ID)))
	defer span.End()

	record := RunRecord{
		ID:           run.ID,
		State:        string(run.State),
		Topic:        run.Options.Topic,
		Author:       run.Options.Author,
		ChapterCount: run.Options.ChapterCount,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}
	err := r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// AttachOutline 记录大纲
func (r *RunRepo) AttachOutline(ctx context.Context, runID string, outline *entity.BookOutline) error {
	ctx, span := tracer.Start(ctx, "run_repo.AttachOutline",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	data, err := json.Marshal(outline)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal outline: %w", err)
	}
	err = r.client.DB().WithContext(ctx).
		Model(&RunRecord{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"outline_json": string(data),
			"state":        string(entity.RunStateOutlineReady),
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// AppendChapter 记录一章，重复写入按 (run_id, chapter_index) 去重
func (r *RunRepo) AppendChapter(ctx context.Context, runID string, chapter *entity.ChapterContent) error {
	ctx, span := tracer.Start(ctx, "run_repo.AppendChapter",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("chapter.index", chapter.Index),
		))
	defer span.End()

	record := ChapterRecord{
		RunID:        runID,
		ChapterIndex: chapter.Index,
		Title:        chapter.Title,
		Markdown:     chapter.Markdown,
		Provider:     chapter.Provider,
		CreatedAt:    chapter.GeneratedAt,
	}
	err := r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// MarkComplete 记录运行完成
func (r *RunRepo) MarkComplete(ctx context.Context, runID string) error {
	ctx, span := tracer.Start(ctx, "run_repo.MarkComplete",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	now := time.Now()
	err := r.client.DB().WithContext(ctx).
		Model(&RunRecord{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"state":        string(entity.RunStateComplete),
			"completed_at": &now,
			"updated_at":   now,
		}).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// MarkErrored 记录运行失败
func (r *RunRepo) MarkErrored(ctx context.Context, runID string, reason string) error {
	ctx, span := tracer.Start(ctx, "run_repo.MarkErrored",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	err := r.client.DB().WithContext(ctx).
		Model(&RunRecord{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"state":      string(entity.RunStateErrored),
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}
