package generation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bookforge/internal/domain/entity"
	"bookforge/internal/domain/repository"
	"bookforge/pkg/errors"
	"bookforge/pkg/logger"
)

// runHandle 单个后台生成 goroutine 的句柄
// done 在 goroutine 完全退出（包括失败状态写入）后关闭
type runHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// RunService 运行注册表与生命周期管理
// 每个运行同一时刻至多一个后台 goroutine 驱动，章节生成严格串行
type RunService struct {
	sequencer *Sequencer
	store     repository.SnapshotStore
	mirror    repository.RunMirror

	mu     sync.RWMutex
	runs   map[string]*entity.GenerationRun
	active map[string]*runHandle
}

// NewRunService 创建运行服务
func NewRunService(sequencer *Sequencer, store repository.SnapshotStore, mirror repository.RunMirror) *RunService {
	return &RunService{
		sequencer: sequencer,
		store:     store,
		mirror:    mirror,
		runs:      make(map[string]*entity.GenerationRun),
		active:    make(map[string]*runHandle),
	}
}

// Restore 启动时从快照存储恢复运行
// 进行中的运行降级为 errored，等待客户端 resume
func (s *RunService) Restore(ctx context.Context) error {
	ids, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, id := range ids {
		snap, err := s.store.Get(ctx, id)
		if err != nil {
			logger.Warn(ctx, "snapshot restore failed", "run_id", id, "error", err.Error())
			continue
		}
		if snap == nil {
			continue
		}
		s.mu.Lock()
		s.runs[id] = entity.RestoreRun(snap)
		s.mu.Unlock()
		restored++
	}
	logger.Info(ctx, "runs restored from snapshot store", "count", restored)
	return nil
}

// Start 创建新运行并在后台启动生成
func (s *RunService) Start(ctx context.Context, opts entity.GenerationOptions) (*entity.GenerationRun, error) {
	if opts.Topic == "" {
		return nil, errors.New(errors.CodeInvalidParam, "topic is required")
	}
	if opts.ChapterCount <= 0 {
		return nil, errors.New(errors.CodeInvalidParam, "chapter_count must be positive")
	}

	run := entity.NewGenerationRun(uuid.NewString(), opts)
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.CreateRun(ctx, run.Snapshot()); err != nil {
			logger.Warn(ctx, "run mirror create failed", "run_id", run.ID, "error", err.Error())
		}
	}

	if !s.tryLaunch(run) {
		return nil, errors.New(errors.CodeConflict, "run is already in progress")
	}
	return run, nil
}

// Get 按 ID 获取运行
func (s *RunService) Get(runID string) (*entity.GenerationRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrRunNotFound
	}
	return run, nil
}

// Resume 从 errored 继续生成，已有章节不重做
func (s *RunService) Resume(ctx context.Context, runID string) (*entity.GenerationRun, error) {
	run, err := s.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.CurrentState() != entity.RunStateErrored {
		return nil, errors.New(errors.CodeConflict, "run is not in errored state")
	}
	if !s.tryLaunch(run) {
		return nil, errors.New(errors.CodeConflict, "run is already in progress")
	}
	return run, nil
}

// Restart 丢弃全部产物并从大纲重新开始
// 先取消并等待旧 goroutine 完全退出，旧驱动绝不触碰重启后的运行
func (s *RunService) Restart(ctx context.Context, runID string) (*entity.GenerationRun, error) {
	run, err := s.Get(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	handle, running := s.active[runID]
	if running {
		handle.cancel()
	}
	s.mu.Unlock()
	if running {
		<-handle.done
	}

	run.Restart()
	if !s.tryLaunch(run) {
		return nil, errors.New(errors.CodeConflict, "run is already in progress")
	}
	return run, nil
}

// tryLaunch 原子地注册句柄并启动后台生成
// 已有进行中的 goroutine 时不启动，返回 false
func (s *RunService) tryLaunch(run *entity.GenerationRun) bool {
	s.mu.Lock()
	if _, running := s.active[run.ID]; running {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	handle := &runHandle{cancel: cancel, done: make(chan struct{})}
	s.active[run.ID] = handle
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			if s.active[run.ID] == handle {
				delete(s.active, run.ID)
			}
			s.mu.Unlock()
			close(handle.done)
		}()
		if err := s.sequencer.Run(ctx, run); err != nil {
			logger.Warn(ctx, "generation run stopped", "run_id", run.ID, "error", err.Error())
		}
	}()
	return true
}

// Shutdown 取消所有进行中的运行并等待退出
func (s *RunService) Shutdown() {
	s.mu.Lock()
	handles := make([]*runHandle, 0, len(s.active))
	for _, handle := range s.active {
		handle.cancel()
		handles = append(handles, handle)
	}
	s.mu.Unlock()

	for _, handle := range handles {
		<-handle.done
	}
}
