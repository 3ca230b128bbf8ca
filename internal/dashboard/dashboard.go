package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/frahmantamala/support-ticketing/internal/ticket"
)

const (
	trendMonths     = 6
	recentTickets   = 10
	activityPerKind = 5
	activityLimit   = 10
	monthLayout     = "2006-01"
)

// Fact is the slice of a ticket the aggregations need.
type Fact struct {
	ID             int64      `db:"id"`
	CategoryID     int64      `db:"category_id"`
	CategoryName   string     `db:"category_name"`
	CategoryActive bool       `db:"category_active"`
	TicketType     string     `db:"ticket_type"`
	Priority       string     `db:"priority"`
	Status         string     `db:"status"`
	Progress       int        `db:"progress"`
	TimelineDate   *time.Time `db:"timeline_date"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (f Fact) completed() bool {
	return ticket.Status(f.Status) == ticket.StatusCompleted
}

type NamedValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type MonthTrend struct {
	Month     string `json:"month"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

// ProgressBand is an inclusive progress range with its label.
type ProgressBand struct {
	Label string
	Min   int
	Max   int
}

var ProgressBands = []ProgressBand{
	{Label: "0%", Min: 0, Max: 0},
	{Label: "1-25%", Min: 1, Max: 25},
	{Label: "26-50%", Min: 26, Max: 50},
	{Label: "51-75%", Min: 51, Max: 75},
	{Label: "76-99%", Min: 76, Max: 99},
	{Label: "100%", Min: 100, Max: 100},
}

func CountByStatus(facts []Fact) map[ticket.Status]int64 {
	counts := make(map[ticket.Status]int64, len(ticket.Statuses))
	for _, s := range ticket.Statuses {
		counts[s] = 0
	}
	for _, f := range facts {
		counts[ticket.Status(f.Status)]++
	}
	return counts
}

func CountByPriority(facts []Fact) map[ticket.Priority]int64 {
	counts := make(map[ticket.Priority]int64, len(ticket.Priorities))
	for _, p := range ticket.Priorities {
		counts[p] = 0
	}
	for _, f := range facts {
		counts[ticket.Priority(f.Priority)]++
	}
	return counts
}

func CountByType(facts []Fact) map[ticket.Type]int64 {
	counts := make(map[ticket.Type]int64, len(ticket.Types))
	for _, t := range ticket.Types {
		counts[t] = 0
	}
	for _, f := range facts {
		counts[ticket.Type(f.TicketType)]++
	}
	return counts
}

// CountByCategory counts tickets per active category name. Categories without
// tickets do not appear.
func CountByCategory(facts []Fact) map[string]int64 {
	counts := map[string]int64{}
	for _, f := range facts {
		if f.CategoryActive && f.CategoryName != "" {
			counts[f.CategoryName]++
		}
	}
	return counts
}

// AverageResolutionDays is the mean of whole days between creation and the
// last update over completed tickets, rounded to one decimal.
func AverageResolutionDays(facts []Fact) float64 {
	var total, n int64
	for _, f := range facts {
		if !f.completed() {
			continue
		}
		total += int64(math.Floor(f.UpdatedAt.Sub(f.CreatedAt).Hours() / 24))
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(float64(total) / float64(n))
}

// MonthlyTrends covers the six calendar months ending with the month of now,
// oldest first. A ticket counts as completed in the month of its last update.
func MonthlyTrends(facts []Fact, now time.Time) []MonthTrend {
	current := monthStart(now)
	trends := make([]MonthTrend, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := 0; i < trendMonths; i++ {
		month := current.AddDate(0, i-(trendMonths-1), 0).Format(monthLayout)
		trends[i] = MonthTrend{Month: month}
		index[month] = i
	}

	for _, f := range facts {
		if i, ok := index[f.CreatedAt.UTC().Format(monthLayout)]; ok {
			trends[i].Created++
		}
		if !f.completed() {
			continue
		}
		if i, ok := index[f.UpdatedAt.UTC().Format(monthLayout)]; ok {
			trends[i].Completed++
		}
	}
	return trends
}

func ProgressDistribution(facts []Fact) map[string]int64 {
	dist := make(map[string]int64, len(ProgressBands))
	for _, band := range ProgressBands {
		dist[band.Label] = 0
	}
	for _, f := range facts {
		for _, band := range ProgressBands {
			if f.Progress >= band.Min && f.Progress <= band.Max {
				dist[band.Label]++
				break
			}
		}
	}
	return dist
}

// OverdueCount counts open tickets whose timeline date is before today.
func OverdueCount(facts []Fact, now time.Time) int64 {
	today := dayStart(now)
	var n int64
	for _, f := range facts {
		if f.TimelineDate == nil || !ticket.Status(f.Status).IsOpen() {
			continue
		}
		if dayStart(*f.TimelineDate).Before(today) {
			n++
		}
	}
	return n
}

// CompletionRate is completed/total as a percentage with one decimal.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(completed) / float64(total) * 100)
}

func CreatedSince(facts []Fact, since time.Time) int64 {
	var n int64
	for _, f := range facts {
		if !f.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func CompletedSince(facts []Fact, since time.Time) int64 {
	var n int64
	for _, f := range facts {
		if f.completed() && !f.UpdatedAt.Before(since) {
			n++
		}
	}
	return n
}

func statusChart(counts map[ticket.Status]int64) []NamedValue {
	out := make([]NamedValue, 0, len(ticket.Statuses))
	for _, s := range ticket.Statuses {
		out = append(out, NamedValue{Name: string(s), Value: counts[s]})
	}
	return out
}

// priorityChart leaves out priorities without tickets.
func priorityChart(counts map[ticket.Priority]int64) []NamedValue {
	out := make([]NamedValue, 0, len(ticket.Priorities))
	for _, p := range ticket.Priorities {
		if counts[p] > 0 {
			out = append(out, NamedValue{Name: string(p), Value: counts[p]})
		}
	}
	return out
}

func categoryChart(counts map[string]int64) []NamedValue {
	out := make([]NamedValue, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamedValue{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
