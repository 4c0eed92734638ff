package entity

import (
	"fmt"
	"sync"
	"time"
)

// RunState 生成运行状态
type RunState string

const (
	RunStateIdle              RunState = "idle"
	RunStateOutlinePending    RunState = "outline_pending"
	RunStateOutlineReady      RunState = "outline_ready"
	RunStateChapterInProgress RunState = "chapter_in_progress"
	RunStateComplete          RunState = "complete"
	RunStateErrored           RunState = "errored"
)

// inFlight 是否为进行中状态
func (s RunState) inFlight() bool {
	switch s {
	case RunStateOutlinePending, RunStateOutlineReady, RunStateChapterInProgress:
		return true
	}
	return false
}

// GenerationRun 一次书籍生成运行，持有状态机与生成产物
// 方法内部加锁，调用方不需要额外同步
type GenerationRun struct {
	mu sync.RWMutex

	ID        string            `json:"id"`
	Options   GenerationOptions `json:"options"`
	State     RunState          `json:"state"`
	Outline   *BookOutline      `json:"outline,omitempty"`
	Chapters  []ChapterContent  `json:"chapters"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewGenerationRun 创建新运行，初始状态 idle
func NewGenerationRun(id string, opts GenerationOptions) *GenerationRun {
	now := time.Now()
	return &GenerationRun{
		ID:        id,
		Options:   opts,
		State:     RunStateIdle,
		Chapters:  []ChapterContent{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BeginOutline 进入 outline_pending
func (r *GenerationRun) BeginOutline() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != RunStateIdle && r.State != RunStateErrored {
		return fmt.Errorf("cannot begin outline from state %s", r.State)
	}
	r.State = RunStateOutlinePending
	r.LastError = ""
	r.UpdatedAt = time.Now()
	return nil
}

// AttachOutline 大纲生成成功，进入 outline_ready
func (r *GenerationRun) AttachOutline(outline *BookOutline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != RunStateOutlinePending {
		return fmt.Errorf("cannot attach outline in state %s", r.State)
	}
	r.Outline = outline
	r.State = RunStateOutlineReady
	r.UpdatedAt = time.Now()
	return nil
}

// BeginChapters 进入 chapter_in_progress
func (r *GenerationRun) BeginChapters() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != RunStateOutlineReady && r.State != RunStateErrored {
		return fmt.Errorf("cannot begin chapters in state %s", r.State)
	}
	if r.Outline == nil {
		return fmt.Errorf("no outline attached")
	}
	r.State = RunStateChapterInProgress
	r.LastError = ""
	r.UpdatedAt = time.Now()
	return nil
}

// AppendChapter 追加一章，index 必须等于当前章节数
func (r *GenerationRun) AppendChapter(ch ChapterContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != RunStateChapterInProgress {
		return fmt.Errorf("cannot append chapter in state %s", r.State)
	}
	if ch.Index != len(r.Chapters) {
		return fmt.Errorf("chapter index %d out of order, expected %d", ch.Index, len(r.Chapters))
	}
	r.Chapters = append(r.Chapters, ch)
	r.UpdatedAt = time.Now()
	return nil
}

// Complete 全部章节完成
func (r *GenerationRun) Complete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != RunStateChapterInProgress {
		return fmt.Errorf("cannot complete in state %s", r.State)
	}
	if r.Outline != nil && len(r.Chapters) != len(r.Outline.Chapters) {
		return fmt.Errorf("chapter count %d does not match outline %d", len(r.Chapters), len(r.Outline.Chapters))
	}
	r.State = RunStateComplete
	r.UpdatedAt = time.Now()
	return nil
}

// Fail 从进行中状态进入 errored，已生成章节保留
func (r *GenerationRun) Fail(errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.State.inFlight() {
		return
	}
	r.State = RunStateErrored
	r.LastError = errMsg
	r.UpdatedAt = time.Now()
}

// Restart 丢弃全部产物，回到 idle
func (r *GenerationRun) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outline = nil
	r.Chapters = []ChapterContent{}
	r.LastError = ""
	r.State = RunStateIdle
	r.UpdatedAt = time.Now()
}

// NextChapterIndex 下一个待生成章节下标，即已持久化章节数
func (r *GenerationRun) NextChapterIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Chapters)
}

// CurrentState 当前状态
func (r *GenerationRun) CurrentState() RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

// RunSnapshot 运行的可序列化快照
type RunSnapshot struct {
	ID        string            `json:"id"`
	Options   GenerationOptions `json:"options"`
	State     RunState          `json:"state"`
	Outline   *BookOutline      `json:"outline,omitempty"`
	Chapters  []ChapterContent  `json:"chapters"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Snapshot 在锁内拷贝出一致的快照
func (r *GenerationRun) Snapshot() *RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chapters := make([]ChapterContent, len(r.Chapters))
	copy(chapters, r.Chapters)
	var outline *BookOutline
	if r.Outline != nil {
		o := *r.Outline
		o.Chapters = make([]ChapterOutline, len(r.Outline.Chapters))
		copy(o.Chapters, r.Outline.Chapters)
		outline = &o
	}
	return &RunSnapshot{
		ID:        r.ID,
		Options:   r.Options,
		State:     r.State,
		Outline:   outline,
		Chapters:  chapters,
		LastError: r.LastError,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// RestoreRun 从快照还原运行
func RestoreRun(s *RunSnapshot) *GenerationRun {
	r := &GenerationRun{
		ID:        s.ID,
		Options:   s.Options,
		State:     s.State,
		Outline:   s.Outline,
		Chapters:  s.Chapters,
		LastError: s.LastError,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if r.Chapters == nil {
		r.Chapters = []ChapterContent{}
	}
	// 进程重启后进行中的运行无法继续，降级为 errored 等待 resume
	if r.State.inFlight() {
		r.State = RunStateErrored
		if r.LastError == "" {
			r.LastError = "interrupted by process restart"
		}
	}
	return r
}

// Book 汇总当前产物为 GeneratedBook（可能不完整）
func (r *GenerationRun) Book() *GeneratedBook {
	s := r.Snapshot()
	return &GeneratedBook{
		Outline:  s.Outline,
		Chapters: s.Chapters,
		Author:   s.Options.Author,
		Language: s.Options.Language,
	}
}
