package generation

import (
	"context"
	"time"

	"bookforge/internal/domain/entity"
	"bookforge/internal/domain/repository"
	"bookforge/pkg/logger"
	"bookforge/pkg/metrics"
)

// Sequencer 可恢复的顺序生成器
// 第 i+1 章绝不在第 i 章成功前开始；每章成功后先写快照再继续
type Sequencer struct {
	fallback *Fallback
	store    repository.SnapshotStore
	mirror   repository.RunMirror
	events   repository.EventPublisher
	pacing   time.Duration
}

// NewSequencer 创建生成器，mirror 与 events 可为 nil
func NewSequencer(fallback *Fallback, store repository.SnapshotStore, mirror repository.RunMirror, events repository.EventPublisher, pacing time.Duration) *Sequencer {
	return &Sequencer{
		fallback: fallback,
		store:    store,
		mirror:   mirror,
		events:   events,
		pacing:   pacing,
	}
}

// emit 发布生命周期事件，失败仅告警
func (s *Sequencer) emit(ctx context.Context, event *entity.RunEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRunEvent(ctx, event); err != nil {
		metrics.MirrorFailuresTotal.WithLabelValues("publish_event").Inc()
		logger.Warn(ctx, "run event publish failed", "run_id", event.RunID, "type", string(event.Type), "error", err.Error())
	}
}

// persist 写快照，失败仅告警，不中断生成
func (s *Sequencer) persist(ctx context.Context, run *entity.GenerationRun) {
	if err := s.store.Save(ctx, run.Snapshot()); err != nil {
		metrics.MirrorFailuresTotal.WithLabelValues("snapshot_save").Inc()
		logger.Warn(ctx, "snapshot save failed", "run_id", run.ID, "error", err.Error())
	}
}

// mirrorWarn 镜像操作失败仅告警
func (s *Sequencer) mirrorWarn(ctx context.Context, op string, err error) {
	if err != nil {
		metrics.MirrorFailuresTotal.WithLabelValues(op).Inc()
		logger.Warn(ctx, "persistence mirror failed", "op", op, "error", err.Error())
	}
}

// Run 从当前运行状态继续生成直到完成或失败
// 新运行从大纲开始；errored 的运行从已持久化的章节数继续
func (s *Sequencer) Run(ctx context.Context, run *entity.GenerationRun) error {
	ctx = logger.WithContext(ctx, logger.RunIDKey, run.ID)
	start := time.Now()
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	s.emit(ctx, entity.NewRunEvent(run.ID, entity.EventRunStarted))

	if run.Snapshot().Outline == nil {
		if err := s.generateOutline(ctx, run); err != nil {
			return err
		}
	}

	if err := s.generateChapters(ctx, run); err != nil {
		return err
	}

	if err := run.Complete(); err != nil {
		run.Fail(err.Error())
		s.persist(ctx, run)
		return err
	}
	s.persist(ctx, run)
	if s.mirror != nil {
		s.mirrorWarn(ctx, "mark_complete", s.mirror.MarkComplete(ctx, run.ID))
	}
	s.emit(ctx, entity.NewRunEvent(run.ID, entity.EventRunCompleted))

	metrics.BookGenerationTotal.WithLabelValues("success").Inc()
	metrics.BookGenerationDuration.Observe(time.Since(start).Seconds())
	logger.Info(ctx, "book generation complete",
		"run_id", run.ID,
		"chapters", run.NextChapterIndex(),
		"duration", time.Since(start).String(),
	)
	return nil
}

// generateOutline 大纲阶段；失败则整个运行失败
func (s *Sequencer) generateOutline(ctx context.Context, run *entity.GenerationRun) error {
	if err := run.BeginOutline(); err != nil {
		return err
	}
	s.persist(ctx, run)

	snap := run.Snapshot()
	outline, err := s.fallback.GenerateOutline(ctx, snap.Options)
	if err != nil {
		run.Fail(err.Error())
		s.persist(ctx, run)
		if s.mirror != nil {
			s.mirrorWarn(ctx, "mark_errored", s.mirror.MarkErrored(ctx, run.ID, err.Error()))
		}
		failed := entity.NewRunEvent(run.ID, entity.EventRunErrored)
		failed.Error = err.Error()
		s.emit(ctx, failed)
		metrics.BookGenerationTotal.WithLabelValues("outline_failed").Inc()
		return err
	}

	if err := run.AttachOutline(outline); err != nil {
		return err
	}
	s.persist(ctx, run)
	if s.mirror != nil {
		s.mirrorWarn(ctx, "attach_outline", s.mirror.AttachOutline(ctx, run.ID, outline))
	}
	ready := entity.NewRunEvent(run.ID, entity.EventOutlineReady)
	ready.Title = outline.Title
	s.emit(ctx, ready)
	logger.Info(ctx, "outline ready", "run_id", run.ID, "title", outline.Title, "chapters", len(outline.Chapters))
	return nil
}

// generateChapters 章节阶段，从已持久化的章节数继续
func (s *Sequencer) generateChapters(ctx context.Context, run *entity.GenerationRun) error {
	if err := run.BeginChapters(); err != nil {
		return err
	}
	s.persist(ctx, run)

	snap := run.Snapshot()
	total := len(snap.Outline.Chapters)

	for i := run.NextChapterIndex(); i < total; i++ {
		if i > 0 && s.pacing > 0 {
			select {
			case <-time.After(s.pacing):
			case <-ctx.Done():
				run.Fail(ctx.Err().Error())
				s.persist(ctx, run)
				return ctx.Err()
			}
		}

		meta := snap.Outline.Chapters[i]
		markdown, provider, err := s.fallback.GenerateChapter(ctx, snap.Options, snap.Outline, meta, i, total)
		if err != nil {
			run.Fail(err.Error())
			s.persist(ctx, run)
			if s.mirror != nil {
				s.mirrorWarn(ctx, "mark_errored", s.mirror.MarkErrored(ctx, run.ID, err.Error()))
			}
			failed := entity.NewRunEvent(run.ID, entity.EventRunErrored)
			failed.Chapter = i
			failed.Error = err.Error()
			s.emit(ctx, failed)
			metrics.BookGenerationTotal.WithLabelValues("chapter_failed").Inc()
			logger.Error(ctx, "chapter generation failed", err, "run_id", run.ID, "chapter", i)
			return err
		}

		ch := entity.ChapterContent{
			Index:       i,
			Title:       meta.Title,
			Markdown:    markdown,
			Provider:    provider,
			GeneratedAt: time.Now(),
		}
		if err := run.AppendChapter(ch); err != nil {
			run.Fail(err.Error())
			s.persist(ctx, run)
			return err
		}
		// 快照先于下一章开始写入
		s.persist(ctx, run)
		if s.mirror != nil {
			s.mirrorWarn(ctx, "append_chapter", s.mirror.AppendChapter(ctx, run.ID, &ch))
		}
		done := entity.NewRunEvent(run.ID, entity.EventChapterGenerated)
		done.Chapter = i
		done.Provider = provider
		done.Title = meta.Title
		s.emit(ctx, done)
		metrics.ChaptersGeneratedTotal.Inc()
		logger.Info(ctx, "chapter generated", "run_id", run.ID, "chapter", i, "provider", provider)
	}
	return nil
}
