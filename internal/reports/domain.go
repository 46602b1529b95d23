// Package reports aggregates attendance into the state, region, group and
// youth summaries shown on the dashboard and exports them.
package reports

import (
	"fmt"
	"time"

	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// ErrReportForbidden is returned when the caller's roles do not list the report type.
var ErrReportForbidden = fmt.Errorf("%w: report not available for your role", httpx.ErrForbidden)

var (
	attendanceColumns = []string{"Men", "Women", "Youth Boys", "Youth Girls", "Children Boys", "Children Girls"}
	youthColumns      = []string{"Member Boys", "Member Girls", "Visitor Boys", "Visitor Girls"}
)

// Period selects a year and optionally one month. Month zero means the whole year.
type Period struct {
	Year  int `json:"year" validate:"min=2000,max=2100"`
	Month int `json:"month" validate:"min=0,max=12"`
}

// String renders the period as YYYY or YYYY-MM.
func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Row is one unit's aggregate. Counts line up with Report.Columns.
type Row struct {
	UnitID  int64  `json:"unit_id"`
	Name    string `json:"name"`
	Records int    `json:"records"`
	Counts  []int  `json:"counts"`
	Total   int    `json:"total"`
}

func (r *Row) add(counts ...int) {
	if r.Counts == nil {
		r.Counts = make([]int, len(counts))
	}
	for i, c := range counts {
		r.Counts[i] += c
		r.Total += c
	}
	r.Records++
}

// Report is an aggregated report for one type and period.
type Report struct {
	Type        scope.ReportType `json:"type"`
	Title       string           `json:"title"`
	Period      Period           `json:"period"`
	Columns     []string         `json:"columns"`
	Rows        []Row            `json:"rows"`
	GrandTotal  Row              `json:"grand_total"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Title returns the human readable report name.
func Title(rt scope.ReportType) string {
	switch rt {
	case scope.ReportState:
		return "State Attendance"
	case scope.ReportRegion:
		return "Region Attendance"
	case scope.ReportGroup:
		return "Group Attendance"
	case scope.ReportYouth:
		return "Youth Attendance"
	default:
		return string(rt)
	}
}
