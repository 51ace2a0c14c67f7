package service

import (
	"fmt"
	"time"

	"supervitec-sgd/backend/internal/model"
)

// ── 业务时区与截止时间 ──
//
// 所有日期按 America/Bogota 解释，与服务器本地时区无关。
// 截止规则在秒级比较：09:00:00 按时，09:00:01 迟交，12:00:00 迟交，12:00:01 拒收。

const (
	BogotaTimezone = "America/Bogota"
	DateLayout     = "2006-01-02"

	// DefaultWorkingDayWhenUnconfigured 司机当月没有工作日历时视为工作日
	DefaultWorkingDayWhenUnconfigured = true

	onTimeDeadline = 9 * 3600  // 09:00:00
	lateDeadline   = 12 * 3600 // 12:00:00
)

// 时间窗口
const (
	WindowNormal  = "normal"
	WindowLate    = "late"
	WindowExpired = "expired"
)

var bogota = loadBogota()

func loadBogota() *time.Location {
	loc, err := time.LoadLocation(BogotaTimezone)
	if err != nil {
		// 哥伦比亚自 1993 年起不使用夏令时
		return time.FixedZone("COT", -5*60*60)
	}
	return loc
}

// Bogota 业务时区
func Bogota() *time.Location { return bogota }

// LocalDate 返回 t 在业务时区的日期 YYYY-MM-DD
func LocalDate(t time.Time) string {
	return t.In(bogota).Format(DateLayout)
}

// ParseDate 解析 YYYY-MM-DD 为业务时区零点
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, bogota)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// IsSunday 周日恒为非工作日
func IsSunday(t time.Time) bool {
	return t.In(bogota).Weekday() == time.Sunday
}

func secondsSinceMidnight(t time.Time) int {
	lt := t.In(bogota)
	return lt.Hour()*3600 + lt.Minute()*60 + lt.Second()
}

// TimeWindow 提交时刻所处的时间窗口
func TimeWindow(t time.Time) string {
	s := secondsSinceMidnight(t)
	switch {
	case s <= onTimeDeadline:
		return WindowNormal
	case s <= lateDeadline:
		return WindowLate
	default:
		return WindowExpired
	}
}

// DeadlinePassed 当日 12:00 截止时间是否已过
func DeadlinePassed(t time.Time) bool {
	return secondsSinceMidnight(t) > lateDeadline
}

// Classification 提交分类结果
type Classification struct {
	Date       string
	WorkingDay bool
	Window     string
	Status     string // completed | late | non_working_day；Rejected 时为空
	WasLate    bool
	Rejected   bool
}

// Classify 根据提交时刻与当日是否工作日得出分类，无副作用
func Classify(at time.Time, workingDay bool) Classification {
	c := Classification{
		Date:       LocalDate(at),
		WorkingDay: workingDay,
		Window:     TimeWindow(at),
	}
	if !workingDay {
		c.Status = model.SubmissionNonWorkingDay
		return c
	}
	switch c.Window {
	case WindowNormal:
		c.Status = model.SubmissionCompleted
	case WindowLate:
		c.Status = model.SubmissionLate
		c.WasLate = true
	default:
		c.Rejected = true
	}
	return c
}

// ── 日期辅助 ──

func monthBounds(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, bogota)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, bogota).Day()
}

func dateOf(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// dayOfMonth 取 YYYY-MM-DD 中的日
func dayOfMonth(date string) int {
	var y, m, d int
	if _, err := fmt.Sscanf(date, "%4d-%2d-%2d", &y, &m, &d); err != nil {
		return 0
	}
	return d
}

func formatTime(t time.Time) string {
	return t.In(bogota).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
