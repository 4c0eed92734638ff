// Package llm 实现各 LLM 后端的 Provider 适配器
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"

	apperrors "bookforge/pkg/errors"
	"bookforge/pkg/logger"
	"bookforge/pkg/metrics"
	"bookforge/pkg/tracer"
)

// SleepFunc 重试退避的睡眠函数，测试中可注入
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext 可被 context 取消的睡眠
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callPolicy 单次后端调用的超时与重试策略
type callPolicy struct {
	outlineTimeout time.Duration
	chapterTimeout time.Duration
	imageTimeout   time.Duration
	maxRetries     int
	backoff        time.Duration
	sleep          SleepFunc
}

// timeoutFor 按操作类型取超时
func (p callPolicy) timeoutFor(operation string) time.Duration {
	switch operation {
	case "outline":
		return p.outlineTimeout
	case "chapter":
		return p.chapterTimeout
	default:
		return p.imageTimeout
	}
}

// do 执行一次后端调用：应用截止时间，可重试错误按指数退避重试
func (p callPolicy) do(ctx context.Context, provider, operation string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "llm."+operation)
	defer span.End()

	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeoutFor(operation))
		err = fn(callCtx)
		cancel()

		if err == nil {
			metrics.LLMCallTotal.WithLabelValues(provider, operation, "success").Inc()
			metrics.LLMCallDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			metrics.LLMCallTotal.WithLabelValues(provider, operation, "timeout").Inc()
			return apperrors.Timeout(operation, err)
		}

		if attempt >= p.maxRetries || !isRetryable(err) {
			break
		}

		delay := p.backoff << attempt
		metrics.LLMRetriesTotal.WithLabelValues(provider, operation).Inc()
		logger.Warn(ctx, "retrying llm call",
			"provider", provider,
			"operation", operation,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return apperrors.Timeout(operation, sleepErr)
		}
	}

	metrics.LLMCallTotal.WithLabelValues(provider, operation, "failure").Inc()
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.ProviderError(provider, err)
}

// isRetryable 判断错误是否可重试（429 与 5xx，以及传输层瞬时故障）
// 适配器已分类的终态错误不重试
func isRetryable(err error) bool {
	if err == nil || apperrors.IsAppError(err) {
		return false
	}

	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "rate limit"):
		return true
	case strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "overloaded"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "internal server error"):
		return true
	case strings.Contains(msg, "service unavailable"):
		return true
	case strings.Contains(msg, "connection reset"):
		return true
	default:
		return false
	}
}
