// Package depend 依赖检查引擎：将依赖声明解析为时间区间，选取区间内的权威执行记录，
// 计算三值依赖结果并缓存终态结果
package depend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LENAX/dependent-engine/pkg/core/types"
)

var (
	// ErrMalformedDeclaration 依赖声明无效（构建期拒绝）
	ErrMalformedDeclaration = errors.New("依赖声明无效")
	// ErrCollaboratorUnavailable 历史存储或日期解析器不可用（由调用方决定是否重试）
	ErrCollaboratorUnavailable = errors.New("依赖检查协作方不可用")
)

// DependResult 依赖检查结果（对外导出）
type DependResult string

const (
	// DependResultWaiting 等待中（初始状态）
	DependResultWaiting DependResult = "WAITING"
	// DependResultSuccess 依赖满足
	DependResultSuccess DependResult = "SUCCESS"
	// DependResultFailed 依赖失败
	DependResultFailed DependResult = "FAILED"
)

// IsValid 检查结果是否有效
func (r DependResult) IsValid() bool {
	switch r {
	case DependResultWaiting, DependResultSuccess, DependResultFailed:
		return true
	default:
		return false
	}
}

// IsFinished 是否为终态
func (r DependResult) IsFinished() bool {
	return r == DependResultSuccess || r == DependResultFailed
}

// DependentRelation 依赖关系（对外导出）
type DependentRelation string

const (
	// RelationAnd 所有依赖都需满足
	RelationAnd DependentRelation = "AND"
	// RelationOr 任一依赖满足即可
	RelationOr DependentRelation = "OR"
)

// IsValid 检查关系是否有效
func (r DependentRelation) IsValid() bool {
	return r == RelationAnd || r == RelationOr
}

// ParseRelation 解析关系字符串（不区分大小写）
func ParseRelation(s string) (DependentRelation, error) {
	r := DependentRelation(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: 未知的依赖关系 %q", ErrMalformedDeclaration, s)
	}
	return r, nil
}

// GetDependResultForRelation 按关系合并多个依赖结果
// AND: 任一失败即失败，否则任一等待即等待，否则成功
// OR:  任一成功即成功，否则任一等待即等待，否则失败
func GetDependResultForRelation(relation DependentRelation, results []DependResult) DependResult {
	hasWaiting := false
	switch relation {
	case RelationAnd:
		for _, r := range results {
			if r == DependResultFailed {
				return DependResultFailed
			}
			if r == DependResultWaiting {
				hasWaiting = true
			}
		}
		if hasWaiting {
			return DependResultWaiting
		}
		return DependResultSuccess
	case RelationOr:
		for _, r := range results {
			if r == DependResultSuccess {
				return DependResultSuccess
			}
			if r == DependResultWaiting {
				hasWaiting = true
			}
		}
		if hasWaiting {
			return DependResultWaiting
		}
		return DependResultFailed
	default:
		// 构建期已校验关系，这里按失败处理
		return DependResultFailed
	}
}

// DependResultByState 根据执行状态得到依赖结果
func DependResultByState(state types.ExecutionStatus) DependResult {
	switch state.Category() {
	case types.CategoryRunning:
		return DependResultWaiting
	case types.CategorySuccess:
		return DependResultSuccess
	default:
		return DependResultFailed
	}
}
