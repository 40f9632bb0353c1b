package plans

import (
	"fmt"

	"github.com/ashureev/altar-plans/internal/domain"
)

func generate(id, title, description, source string, days int, passages func(day int) []string) *domain.StudyPlan {
	readings := make([]domain.DailyReading, days)
	for i := range readings {
		day := i + 1
		readings[i] = domain.DailyReading{Day: day, Passages: passages(day)}
	}
	return &domain.StudyPlan{
		ID:          id,
		Title:       title,
		Description: description,
		Duration:    days,
		Readings:    readings,
		Source:      source,
	}
}

// BuiltIn returns the plans that ship with the service.
func BuiltIn() []*domain.StudyPlan {
	return []*domain.StudyPlan{
		generate("one-year-bible", "One Year Bible",
			"Read the entire Bible in 365 days (OT, NT, Psalms & Proverbs each day).",
			"https://oneyearbibleonline.com/", 365,
			func(d int) []string { return []string{fmt.Sprintf("Day %d: OT", d), fmt.Sprintf("Day %d: NT", d)} }),
		generate("mcheyne", "M'Cheyne Reading Plan",
			"Classic 4-chapters-per-day plan covering the OT once and NT / Psalms twice.",
			"https://www.mcheyne.info/calendar.pdf", 365,
			func(d int) []string { return []string{fmt.Sprintf("M'Cheyne Day %d", d)} }),
		generate("90-day-nt", "90-Day New Testament",
			"Read the entire New Testament in 3 months.", "", 90,
			func(d int) []string { return []string{fmt.Sprintf("NT Day %d", d)} }),
		generate("30-day-gospels", "30-Day Gospels",
			"Journey through Matthew, Mark, Luke & John in a month.", "", 30,
			func(d int) []string { return []string{fmt.Sprintf("Gospels Day %d", d)} }),
		generate("psalms-proverbs-31", "31-Day Psalms & Proverbs",
			"Daily wisdom readings for a month.", "", 31,
			func(d int) []string { return []string{fmt.Sprintf("Psalms & Proverbs Day %d", d)} }),
	}
}
