package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/dependent-engine/pkg/core/depend"
)

// ErrWaitTimeout 等待依赖超时
var ErrWaitTimeout = errors.New("等待依赖超时")

// WaitForDependencies 阻塞轮询依赖任务直到得到终态（对外导出）
// 轮询出错时记录日志并在下个间隔重试；timeout为0时只受ctx控制
// 超时返回 (FAILED, ErrWaitTimeout)，ctx取消返回 (当前结果, ctx.Err())
func WaitForDependencies(ctx context.Context, task *depend.DependentTask, date time.Time, interval, timeout time.Duration) (depend.DependResult, error) {
	if task == nil {
		return depend.DependResultFailed, fmt.Errorf("依赖任务不能为空")
	}
	if interval <= 0 {
		return depend.DependResultFailed, fmt.Errorf("轮询间隔必须大于0: %s", interval)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for polls := 1; ; polls++ {
		finished, err := task.Poll(ctx, date)
		if err != nil {
			lastErr = err
			log.Printf("❌ [依赖检查] 轮询失败，等待下次重试: Polls=%d, Error=%v", polls, err)
		} else if finished {
			return task.Result(), nil
		}

		select {
		case <-ctx.Done():
			return task.Result(), ctx.Err()
		case <-deadline:
			if lastErr != nil {
				return depend.DependResultFailed, fmt.Errorf("%w（最近一次错误: %v）", ErrWaitTimeout, lastErr)
			}
			return depend.DependResultFailed, ErrWaitTimeout
		case <-ticker.C:
		}
	}
}
