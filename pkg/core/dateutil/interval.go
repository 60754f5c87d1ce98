// Package dateutil 将依赖项的相对日期表达式解析为具体的时间区间
package dateutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedDateValue 不支持的日期表达式
var ErrUnsupportedDateValue = errors.New("不支持的日期表达式")

// DateInterval 时间区间，左闭右开 [StartTime, EndTime)
type DateInterval struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// NewDateInterval 创建时间区间
func NewDateInterval(start, end time.Time) DateInterval {
	return DateInterval{StartTime: start, EndTime: end}
}

// Contains 判断时间点是否落在区间内
func (d DateInterval) Contains(t time.Time) bool {
	return !t.Before(d.StartTime) && t.Before(d.EndTime)
}

// String 返回区间的可读形式
func (d DateInterval) String() string {
	return fmt.Sprintf("[%s, %s)", d.StartTime.Format(time.DateTime), d.EndTime.Format(time.DateTime))
}

// IntervalResolver 日期表达式解析器接口（对外导出）
// 对于固定的(reference, dateValue)，Resolve必须返回相同且有序的区间列表
type IntervalResolver interface {
	// Resolve 以reference为基准，将dateValue解析为有序的时间区间列表
	Resolve(reference time.Time, dateValue string) ([]DateInterval, error)
	// Supports 判断是否支持该日期表达式（用于构建期校验）
	Supports(dateValue string) bool
}

// 依赖周期
const (
	CycleHour  = "hour"
	CycleDay   = "day"
	CycleWeek  = "week"
	CycleMonth = "month"
)

var cycleDateValues = map[string][]string{
	CycleHour:  {"currentHour", "last1Hour", "last2Hours", "last3Hours"},
	CycleDay:   {"today", "last1Days", "last2Days", "last3Days", "last7Days"},
	CycleWeek:  {"thisWeek", "lastWeek", "lastMonday", "lastTuesday", "lastWednesday", "lastThursday", "lastFriday", "lastSaturday", "lastSunday"},
	CycleMonth: {"thisMonth", "lastMonth", "lastMonthBegin", "lastMonthEnd"},
}

// CycleDateValues 返回某个依赖周期允许的日期表达式，未知周期返回nil
func CycleDateValues(cycle string) []string {
	values, ok := cycleDateValues[cycle]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// IsValidCycle 判断依赖周期是否有效
func IsValidCycle(cycle string) bool {
	_, ok := cycleDateValues[cycle]
	return ok
}

// CycleAllows 判断日期表达式是否属于该周期
func CycleAllows(cycle, dateValue string) bool {
	for _, v := range cycleDateValues[cycle] {
		if v == dateValue {
			return true
		}
	}
	return false
}

// DefaultResolver 内置日期表达式解析器（对外导出）
// 区间按reference所在时区计算，一周从周一开始
type DefaultResolver struct {
	resolvers map[string]func(time.Time) []DateInterval
}

// NewDefaultResolver 创建内置解析器
func NewDefaultResolver() *DefaultResolver {
	r := map[string]func(time.Time) []DateInterval{
		"currentHour": func(t time.Time) []DateInterval { return lastHoursInterval(t, 0) },
		"last1Hour":   func(t time.Time) []DateInterval { return lastHoursInterval(t, 1) },
		"last2Hours":  func(t time.Time) []DateInterval { return lastHoursInterval(t, 2) },
		"last3Hours":  func(t time.Time) []DateInterval { return lastHoursInterval(t, 3) },

		"today":     func(t time.Time) []DateInterval { return []DateInterval{dayInterval(t)} },
		"last1Days": func(t time.Time) []DateInterval { return lastDaysInterval(t, 1) },
		"last2Days": func(t time.Time) []DateInterval { return lastDaysInterval(t, 2) },
		"last3Days": func(t time.Time) []DateInterval { return lastDaysInterval(t, 3) },
		"last7Days": func(t time.Time) []DateInterval { return lastDaysInterval(t, 7) },

		"thisWeek": thisWeekInterval,
		"lastWeek": lastWeekInterval,

		"thisMonth":      thisMonthInterval,
		"lastMonth":      lastMonthInterval,
		"lastMonthBegin": func(t time.Time) []DateInterval { return lastMonthEdgeInterval(t, true) },
		"lastMonthEnd":   func(t time.Time) []DateInterval { return lastMonthEdgeInterval(t, false) },
	}

	weekdays := []string{"lastMonday", "lastTuesday", "lastWednesday", "lastThursday", "lastFriday", "lastSaturday", "lastSunday"}
	for i, name := range weekdays {
		dayOfWeek := i + 1
		r[name] = func(t time.Time) []DateInterval { return lastWeekOneDayInterval(t, dayOfWeek) }
	}

	return &DefaultResolver{resolvers: r}
}

// Supports 判断是否支持该日期表达式
func (r *DefaultResolver) Supports(dateValue string) bool {
	_, ok := r.resolvers[dateValue]
	return ok
}

// Resolve 解析日期表达式
func (r *DefaultResolver) Resolve(reference time.Time, dateValue string) ([]DateInterval, error) {
	fn, ok := r.resolvers[dateValue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDateValue, dateValue)
	}
	return fn(reference), nil
}

// ========== 区间计算 ==========

func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func firstDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// mondayOf 返回t所在周的周一零点
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func dayInterval(t time.Time) DateInterval {
	start := startOfDay(t)
	return NewDateInterval(start, start.AddDate(0, 0, 1))
}

// daysBetween 返回[first, last]内每天一个区间
func daysBetween(first, last time.Time) []DateInterval {
	var intervals []DateInterval
	for d := startOfDay(first); !d.After(last); d = d.AddDate(0, 0, 1) {
		intervals = append(intervals, dayInterval(d))
	}
	return intervals
}

func lastHoursInterval(t time.Time, hours int) []DateInterval {
	start := startOfHour(t.Add(-time.Duration(hours) * time.Hour))
	return []DateInterval{NewDateInterval(start, start.Add(time.Hour))}
}

// lastDaysInterval 最近days天（不含当天），按时间先后排列
func lastDaysInterval(t time.Time, days int) []DateInterval {
	intervals := make([]DateInterval, 0, days)
	for i := days; i > 0; i-- {
		intervals = append(intervals, dayInterval(t.AddDate(0, 0, -i)))
	}
	return intervals
}

func thisWeekInterval(t time.Time) []DateInterval {
	return daysBetween(mondayOf(t), t)
}

func lastWeekInterval(t time.Time) []DateInterval {
	monday := mondayOf(t).AddDate(0, 0, -7)
	return daysBetween(monday, monday.AddDate(0, 0, 6))
}

// lastWeekOneDayInterval 上周的某一天，dayOfWeek: 1=周一 ... 7=周日
func lastWeekOneDayInterval(t time.Time, dayOfWeek int) []DateInterval {
	day := mondayOf(t).AddDate(0, 0, -7+dayOfWeek-1)
	return []DateInterval{dayInterval(day)}
}

func thisMonthInterval(t time.Time) []DateInterval {
	return daysBetween(firstDayOfMonth(t), t)
}

func lastMonthInterval(t time.Time) []DateInterval {
	firstOfThis := firstDayOfMonth(t)
	return daysBetween(firstOfThis.AddDate(0, -1, 0), firstOfThis.AddDate(0, 0, -1))
}

func lastMonthEdgeInterval(t time.Time, begin bool) []DateInterval {
	firstOfThis := firstDayOfMonth(t)
	if begin {
		return []DateInterval{dayInterval(firstOfThis.AddDate(0, -1, 0))}
	}
	return []DateInterval{dayInterval(firstOfThis.AddDate(0, 0, -1))}
}

var _ IntervalResolver = (*DefaultResolver)(nil)
