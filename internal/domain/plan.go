package domain

import "time"

// DailyReading is one day's assignment within a plan.
type DailyReading struct {
	Day      int      `json:"day" yaml:"day"`
	Passages []string `json:"passages" yaml:"passages"`
	Heading  string   `json:"heading,omitempty" yaml:"heading,omitempty"`
}

// StudyPlan is a fixed-length sequence of daily readings.
type StudyPlan struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Duration    int            `json:"duration" yaml:"duration"`
	Readings    []DailyReading `json:"readings" yaml:"readings"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitzero" yaml:"-"`
}

// ReadingFor returns the reading for day, if the plan defines one.
func (p *StudyPlan) ReadingFor(day int) (DailyReading, bool) {
	for _, r := range p.Readings {
		if r.Day == day {
			return r, true
		}
	}
	return DailyReading{}, false
}
