package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock 业务时间源
//
// 所有班次判定都通过 Clock 取当前时间，不在包级别缓存 "now"。
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// zonedClock 把底层时钟的读数转换到固定业务时区
type zonedClock struct {
	base clockwork.Clock
	loc  *time.Location
}

// New 创建固定时区的系统时钟
func New(loc *time.Location) Clock {
	return Wrap(clockwork.NewRealClock(), loc)
}

// Wrap 以任意 clockwork 时钟为时间源
func Wrap(base clockwork.Clock, loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &zonedClock{base: base, loc: loc}
}

func (c *zonedClock) Now() time.Time { return c.base.Now().In(c.loc) }

func (c *zonedClock) Location() *time.Location { return c.loc }

// Fake 测试用可调时钟，时区取初始时刻自身的时区
type Fake struct {
	fc  *clockwork.FakeClock
	loc *time.Location
}

// NewFake 创建停在 t 的时钟
func NewFake(t time.Time) *Fake {
	return &Fake{fc: clockwork.NewFakeClockAt(t), loc: t.Location()}
}

func (f *Fake) Now() time.Time { return f.fc.Now().In(f.loc) }

func (f *Fake) Location() *time.Location { return f.loc }

// Advance 前移 d
func (f *Fake) Advance(d time.Duration) { f.fc.Advance(d) }

// Set 调整到指定时刻
func (f *Fake) Set(t time.Time) { f.fc.Advance(t.Sub(f.fc.Now())) }

// StartOfDay 返回 t 所在时区当天 00:00
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay 判断两个时刻在 loc 时区下是否为同一天
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
