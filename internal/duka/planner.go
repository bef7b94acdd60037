package duka

import (
	"iter"
	"time"
)

// Plan answers, lazily, the ordered list of fetch units covering [from,to)
// at the requested granularity, applying the current-period fallback rule
// when the plan's last unit would name a period that has not closed yet as
// of now. The sequence never materializes more than the caller consumes.
func Plan(g Granularity, from, to, now time.Time) iter.Seq[PlanUnit] {
	return func(yield func(PlanUnit) bool) {
		if !from.Before(to) {
			return
		}
		if g == Ticks {
			planTicks(from, to, yield)
			return
		}
		planBars(g, from, to, now, yield)
	}
}

func planTicks(from, to time.Time, yield func(PlanUnit) bool) bool {
	cur := floorHour(from)
	for cur.Before(to) {
		unit := PlanUnit{Granularity: Ticks, Date: floorDay(cur), Hour: cur.Hour()}
		if !yield(unit) {
			return false
		}
		cur = cur.Add(time.Hour)
	}
	return true
}

// barStep describes how one bar granularity aggregates: the period it
// files under, how to advance one period, whether a given period start is
// the currently-open period, and which granularity to fall back to when it
// is.
type barStep struct {
	floor     func(time.Time) time.Time
	advance   func(time.Time) time.Time
	isCurrent func(periodStart, now time.Time) bool
	finer     Granularity
}

var barSteps = map[Granularity]barStep{
	Minute: {floor: floorDay, advance: addDay, isCurrent: sameDay, finer: ""},
	Hour:   {floor: floorMonth, advance: addMonth, isCurrent: sameMonth, finer: Minute},
	Day:    {floor: floorYear, advance: addYear, isCurrent: sameYear, finer: Hour},
}

func planBars(g Granularity, from, to, now time.Time, yield func(PlanUnit) bool) bool {
	step := barSteps[g]
	cur := step.floor(from)
	for cur.Before(to) {
		next := step.advance(cur)
		isLast := !next.Before(to)
		if isLast && step.finer != "" && step.isCurrent(cur, now) {
			return planBars(step.finer, cur, to, now, yield)
		}
		if !yield(PlanUnit{Granularity: g, Date: cur}) {
			return false
		}
		cur = next
	}
	return true
}

func floorHour(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
}

func floorDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func floorMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func floorYear(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

func addDay(t time.Time) time.Time   { return t.AddDate(0, 0, 1) }
func addMonth(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
func addYear(t time.Time) time.Time  { return t.AddDate(1, 0, 0) }

func sameDay(periodStart, now time.Time) bool {
	y1, m1, d1 := periodStart.Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func sameMonth(periodStart, now time.Time) bool {
	y1, m1, _ := periodStart.Date()
	y2, m2, _ := now.UTC().Date()
	return y1 == y2 && m1 == m2
}

func sameYear(periodStart, now time.Time) bool {
	return periodStart.Year() == now.UTC().Year()
}
