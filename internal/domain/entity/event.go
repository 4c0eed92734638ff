package entity

import "time"

// RunEventType 运行生命周期事件类型
type RunEventType string

const (
	EventRunStarted       RunEventType = "run_started"
	EventOutlineReady     RunEventType = "outline_ready"
	EventChapterGenerated RunEventType = "chapter_generated"
	EventRunCompleted     RunEventType = "run_completed"
	EventRunErrored       RunEventType = "run_errored"
)

// RunEvent 运行生命周期事件，发布到事件流供外部订阅
type RunEvent struct {
	RunID    string       `json:"run_id"`
	Type     RunEventType `json:"type"`
	Chapter  int          `json:"chapter,omitempty"` // 仅 chapter_generated，从 0 开始
	Provider string       `json:"provider,omitempty"`
	Title    string       `json:"title,omitempty"`
	Error    string       `json:"error,omitempty"`
	At       time.Time    `json:"at"`
}

// NewRunEvent 创建事件并打上当前时间
func NewRunEvent(runID string, eventType RunEventType) *RunEvent {
	return &RunEvent{RunID: runID, Type: eventType, At: time.Now()}
}
