// Package shiftrule 班次判定规则：模板匹配、当前班次回溯边界与开班闸门。
//
// 本包只包含纯函数，时间一律由调用方传入。
package shiftrule

import (
	"time"

	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/pkg/clock"
)

const (
	// EarlyStartHours 开班时向后偏移的小时数，提前到岗的人匹配到下一个模板
	EarlyStartHours = 1
	// PreCloseHours 模板结束前允许开新班的小时数
	PreCloseHours = 1
)

// IsOvernight 模板是否跨午夜（EndHour <= StartHour）
func IsOvernight(t *model.ShiftTemplate) bool {
	return t.EndHour <= t.StartHour
}

// Covers 判断模板是否覆盖给定小时
func Covers(t *model.ShiftTemplate, hour int) bool {
	if IsOvernight(t) {
		return hour >= t.StartHour || hour < t.EndHour
	}
	return hour >= t.StartHour && hour < t.EndHour
}

// ShiftHour 对小时施加偏移并按 24 取模
func ShiftHour(hour, offset int) int {
	return ((hour+offset)%24 + 24) % 24
}

// MatchTemplate 返回第一个覆盖 hour 的模板；无匹配时 ok 为 false
func MatchTemplate(templates []model.ShiftTemplate, hour int) (*model.ShiftTemplate, bool) {
	for i := range templates {
		if Covers(&templates[i], hour) {
			return &templates[i], true
		}
	}
	return nil, false
}

// OpenShiftWindowStart 查找未结束班次的最早开始时间：昨天 00:00
func OpenShiftWindowStart(now time.Time) time.Time {
	return clock.StartOfDay(now).AddDate(0, 0, -1)
}

// LookbackBoundary 按推断模板查找班次时的开始时间下界
//
// 处于跨夜模板的凌晨尾段时回溯到昨天 00:00，否则为今天 00:00。
func LookbackBoundary(t *model.ShiftTemplate, now time.Time) time.Time {
	today := clock.StartOfDay(now)
	if IsOvernight(t) && now.Hour() < t.EndHour {
		return today.AddDate(0, 0, -1)
	}
	return today
}

// CanStartNewShift 判断当前是否允许开新班
//
// current 需预加载 Template。按顺序判定，先命中者生效：
//  1. 无当前班次 → 允许
//  2. 班次开始日期与 now 不同 → 允许（跨夜班次次日凌晨同样放行）
//  3. 无模板的同日班次 → 拒绝
//  4. 普通模板且已过结束小时 → 允许
//  5. 距模板结束不超过 preCloseHours → 允许
//  6. 其余 → 拒绝
func CanStartNewShift(current *model.Shift, now time.Time, preCloseHours int) bool {
	if current == nil {
		return true
	}

	loc := now.Location()
	if !clock.SameDay(current.StartTime, now, loc) {
		return true
	}

	tpl := current.Template
	if tpl == nil {
		return false
	}

	hour := now.Hour()
	if !IsOvernight(tpl) && hour >= tpl.EndHour {
		return true
	}

	return (tpl.EndHour-hour+24)%24 <= preCloseHours
}
