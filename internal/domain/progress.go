package domain

import "sort"

// PlanProgress is the per-owner completion state of one reading plan.
//
// After any ToggleDay, Completed equals len(CompletedDays) == duration.
// MarkComplete is the one exception: it leaves Completed set with no days,
// meaning the plan was finished without per-day tracking.
type PlanProgress struct {
	PlanID        string `json:"planId"`
	CompletedDays []int  `json:"completedDays"`
	Completed     bool   `json:"completed"`
}

// NewPlanProgress returns an empty, not completed record for planID.
func NewPlanProgress(planID string) PlanProgress {
	return PlanProgress{PlanID: planID, CompletedDays: []int{}}
}

// HasDay reports whether day is marked done.
func (p *PlanProgress) HasDay(day int) bool {
	i := sort.SearchInts(p.CompletedDays, day)
	return i < len(p.CompletedDays) && p.CompletedDays[i] == day
}

// Toggle flips membership of day, keeping CompletedDays sorted and unique.
func (p *PlanProgress) Toggle(day int) {
	i := sort.SearchInts(p.CompletedDays, day)
	if i < len(p.CompletedDays) && p.CompletedDays[i] == day {
		p.CompletedDays = append(p.CompletedDays[:i], p.CompletedDays[i+1:]...)
		return
	}
	p.CompletedDays = append(p.CompletedDays, 0)
	copy(p.CompletedDays[i+1:], p.CompletedDays[i:])
	p.CompletedDays[i] = day
}

// Normalize sorts and deduplicates CompletedDays. Records read back from a
// store may have been written by older clients in insertion order.
func (p *PlanProgress) Normalize() {
	if p.CompletedDays == nil {
		p.CompletedDays = []int{}
		return
	}
	sort.Ints(p.CompletedDays)
	out := p.CompletedDays[:0]
	for i, d := range p.CompletedDays {
		if i > 0 && d == p.CompletedDays[i-1] {
			continue
		}
		out = append(out, d)
	}
	p.CompletedDays = out
}

// Percent returns completion as a percentage of duration, rounded to the
// nearest whole number.
func (p *PlanProgress) Percent(duration int) int {
	if p.Completed {
		return 100
	}
	if duration <= 0 {
		return 0
	}
	pct := (len(p.CompletedDays)*200 + duration) / (2 * duration)
	if pct > 100 {
		return 100
	}
	return pct
}

// Clone returns a deep copy so callers can mutate without aliasing a store.
func (p PlanProgress) Clone() PlanProgress {
	days := make([]int, len(p.CompletedDays))
	copy(days, p.CompletedDays)
	p.CompletedDays = days
	return p
}
