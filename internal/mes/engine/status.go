// Package engine 工单推进与质检门派生计算。
// 全部为纯函数：输入为外部持久化的记录快照，输出为派生状态，不产生任何写入。
package engine

import "strings"

// GateStatus 质检门规范状态
type GateStatus string

const (
	StatusPassed     GateStatus = "passed"
	StatusFailed     GateStatus = "failed"
	StatusPending    GateStatus = "pending"
	StatusHold       GateStatus = "hold"
	StatusWaived     GateStatus = "waived"
	StatusBlocked    GateStatus = "blocked"
	StatusNotStarted GateStatus = "not_started"
)

// Normalize 将来源系统的自由字符串状态归一化为规范枚举。
// 来源拼写不一致（pass/passed、fail/failed），大小写不敏感；
// 未知或空值落到 fallback（物料门用 pending，台账计数门用 not_started）。
// 这是全系统唯一的一份归一化实现，所有门和展示组件都走这里。
func Normalize(raw string, fallback GateStatus) GateStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pass", "passed", "ok", "approved":
		return StatusPassed
	case "fail", "failed", "rejected":
		return StatusFailed
	case "pending", "in_progress":
		return StatusPending
	case "hold", "on_hold":
		return StatusHold
	case "waived", "waive", "skip", "skipped":
		return StatusWaived
	case "blocked":
		return StatusBlocked
	case "not_started":
		return StatusNotStarted
	default:
		return fallback
	}
}

// IsComplete 门是否视为已完成。hold 和 blocked 永远不算完成
func (s GateStatus) IsComplete() bool {
	return s == StatusPassed || s == StatusWaived
}
