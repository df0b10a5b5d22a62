package engine

import (
	"sort"
	"time"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
)

// MaterialGate 来料质检门视图
type MaterialGate struct {
	Status   GateStatus `json:"status"`
	Complete bool       `json:"complete"`
}

// FirstPieceGate 首件质检门视图
// Stored 为归一化后的存储值，Resolved 为展示用的解析值（可能被强制为 blocked）
type FirstPieceGate struct {
	Stored   GateStatus `json:"stored"`
	Resolved GateStatus `json:"resolved"`
	Complete bool       `json:"complete"`
}

// CountGate 计数型质检门视图（过程检/终检）
// 没有任何记录时 HasStatus=false，区别于 not_started（后者隐含"将会发生"）
type CountGate struct {
	Count     int        `json:"count"`
	HasStatus bool       `json:"has_status"`
	Latest    GateStatus `json:"latest,omitempty"`
	LatestAt  *time.Time `json:"latest_at,omitempty"`
}

// GateView 一个工单的全部质检门解析结果
type GateView struct {
	Material   MaterialGate   `json:"material"`
	FirstPiece FirstPieceGate `json:"first_piece"`
	InProcess  CountGate      `json:"in_process"`
	Final      CountGate      `json:"final"`
}

// ResolveMaterialGate 来料门：工单上的单一权威字段，直接归一化
func ResolveMaterialGate(stored string) MaterialGate {
	s := Normalize(stored, StatusPending)
	return MaterialGate{Status: s, Complete: s.IsComplete()}
}

// ResolveFirstPieceGate 首件门解析。
// 来料门未完成且首件存储状态为 pending/not_started（含缺失）时，
// 解析状态强制为 blocked —— 此时门实际不可操作，展示 pending 会误导操作员。
// 完成性判定始终基于存储值而非解析值：blocked 是展示/操作概念，不是放行前提。
func ResolveFirstPieceGate(stored string, material MaterialGate) FirstPieceGate {
	s := Normalize(stored, StatusPending)
	resolved := s
	if !material.Complete && (s == StatusPending || s == StatusNotStarted) {
		resolved = StatusBlocked
	}
	return FirstPieceGate{
		Stored:   s,
		Resolved: resolved,
		Complete: s.IsComplete(),
	}
}

// ResolveCountGate 计数型门：按时间取最近一条记录的归一化结果作为展示状态，
// 记录数量本身就是业务含义（做了几次检验），不是单一的通过/不通过
func ResolveCountGate(records []entity.QCRecord, qcType string) CountGate {
	var matched []entity.QCRecord
	for _, r := range records {
		if r.QCType == qcType {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return CountGate{Count: 0, HasStatus: false}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].QCDateTime.Before(matched[j].QCDateTime)
	})
	latest := matched[len(matched)-1]
	at := latest.QCDateTime
	return CountGate{
		Count:     len(matched),
		HasStatus: true,
		Latest:    Normalize(latest.Result, StatusNotStarted),
		LatestAt:  &at,
	}
}

// ResolveGates 计算工单全部质检门状态
func ResolveGates(wo *entity.WorkOrder, records []entity.QCRecord) GateView {
	material := ResolveMaterialGate(wo.QCMaterialStatus)
	return GateView{
		Material:   material,
		FirstPiece: ResolveFirstPieceGate(wo.QCFirstPieceStatus, material),
		InProcess:  ResolveCountGate(records, entity.QCTypeInProcess),
		Final:      ResolveCountGate(records, entity.QCTypeFinal),
	}
}

// CanRelease 放行判定：来料与首件的存储状态均已完成
func CanRelease(wo *entity.WorkOrder) bool {
	material := ResolveMaterialGate(wo.QCMaterialStatus)
	firstPiece := ResolveFirstPieceGate(wo.QCFirstPieceStatus, material)
	return material.Complete && firstPiece.Complete
}
