package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Block is a time-of-day interval, in minutes after midnight.
type Block struct {
	Start int
	End   int
}

// ParseBlock parses a block written as "HH:MM-HH:MM". The end may be
// "24:00" for a block that runs until midnight.
func ParseBlock(s string) (Block, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Block{}, fmt.Errorf("invalid block %q: expected HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return Block{}, fmt.Errorf("invalid block %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Block{}, fmt.Errorf("invalid block %q: %w", s, err)
	}
	if end <= start {
		return Block{}, fmt.Errorf("invalid block %q: end must be after start", s)
	}
	return Block{Start: start, End: end}, nil
}

// parseClock reads "HH:MM". "24:00" is accepted so a block can end at midnight.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (b Block) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", b.Start/60, b.Start%60, b.End/60, b.End%60)
}

// Template is the daily schedule shared by all practitioners: the same
// ordered blocks on every working day, in one location.
type Template struct {
	blocks []Block
	days   map[time.Weekday]bool
	loc    *time.Location
}

// NewTemplate builds a template. Blocks are sorted by start and must not overlap.
func NewTemplate(blocks []Block, days []time.Weekday, loc *time.Location) (Template, error) {
	if len(blocks) == 0 {
		return Template{}, fmt.Errorf("template needs at least one block")
	}
	if len(days) == 0 {
		return Template{}, fmt.Errorf("template needs at least one working day")
	}
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, b := range sorted {
		if b.Start < 0 || b.End > 24*60 || b.End <= b.Start {
			return Template{}, fmt.Errorf("block %s is out of range", b)
		}
		if i > 0 && sorted[i-1].End > b.Start {
			return Template{}, fmt.Errorf("block %s overlaps %s", sorted[i-1], b)
		}
	}

	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return Template{blocks: sorted, days: set, loc: loc}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseTemplate builds a template from its configuration strings:
// comma separated blocks ("08:00-08:30,08:30-09:00"), comma separated
// weekday abbreviations ("mon,tue,wed") and an IANA time zone name.
func ParseTemplate(blocksSpec, daysSpec, timezone string) (Template, error) {
	var blocks []Block
	for _, part := range strings.Split(blocksSpec, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		b, err := ParseBlock(part)
		if err != nil {
			return Template{}, err
		}
		blocks = append(blocks, b)
	}

	var days []time.Weekday
	for _, part := range strings.Split(daysSpec, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		d, ok := weekdayNames[name]
		if !ok {
			return Template{}, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, d)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Template{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return NewTemplate(blocks, days, loc)
}

// Location is the time zone the template's times of day are expressed in.
func (t Template) Location() *time.Location {
	if t.loc == nil {
		return time.UTC
	}
	return t.loc
}

// Blocks returns a copy of the template's blocks in order.
func (t Template) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// Covers reports whether the template offers any slot on the given calendar day.
func (t Template) Covers(date time.Time) bool {
	return t.days[date.Weekday()]
}

// Day returns the [start, end) bounds of the calendar day of date in the
// template's location. The calendar fields of date are taken as given.
func (t Template) Day(date time.Time) Interval {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// Intervals enumerates the template blocks on the calendar day of date.
// Days the template does not cover yield nil.
func (t Template) Intervals(date time.Time) []Interval {
	day := t.Day(date)
	if !t.Covers(day.Start) {
		return nil
	}
	y, m, d := day.Start.Date()
	out := make([]Interval, 0, len(t.blocks))
	for _, b := range t.blocks {
		out = append(out, Interval{
			Start: time.Date(y, m, d, b.Start/60, b.Start%60, 0, 0, t.Location()),
			End:   time.Date(y, m, d, b.End/60, b.End%60, 0, 0, t.Location()),
		})
	}
	return out
}
