package reports

import (
	"sort"
	"strconv"
	"time"

	"github.com/flockwatch/flockwatch/internal/attendance"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// aggregator folds records into rows keyed by unit id.
type aggregator struct {
	rows  map[int64]*Row
	grand Row
	width int
}

func newAggregator(width int) *aggregator {
	return &aggregator{rows: make(map[int64]*Row), grand: Row{Name: "Total", Counts: make([]int, width)}, width: width}
}

func (a *aggregator) add(unitID int64, counts ...int) {
	row, ok := a.rows[unitID]
	if !ok {
		row = &Row{UnitID: unitID, Counts: make([]int, a.width)}
		a.rows[unitID] = row
	}
	row.add(counts...)
	a.grand.add(counts...)
}

// finish names and orders the rows. Units missing from names keep their id as name.
func (a *aggregator) finish(names map[int64]string) ([]Row, Row) {
	out := make([]Row, 0, len(a.rows))
	for id, row := range a.rows {
		if name, ok := names[id]; ok {
			row.Name = name
		} else {
			row.Name = "#" + strconv.FormatInt(id, 10)
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UnitID < out[j].UnitID
	})
	return out, a.grand
}

// buildAttendance groups service attendance by the level the report type names.
func buildAttendance(rt scope.ReportType, period Period, records []attendance.Record, names map[int64]string, now time.Time) Report {
	agg := newAggregator(len(attendanceColumns))
	for _, r := range records {
		agg.add(groupKey(rt, r.Hierarchy()), r.Men, r.Women, r.YouthBoys, r.YouthGirls, r.ChildrenBoys, r.ChildrenGirls)
	}
	rows, grand := agg.finish(names)
	return Report{
		Type:        rt,
		Title:       Title(rt),
		Period:      period,
		Columns:     attendanceColumns,
		Rows:        rows,
		GrandTotal:  grand,
		GeneratedAt: now,
	}
}

// buildYouth groups youth attendance by group.
func buildYouth(period Period, records []attendance.YouthRecord, names map[int64]string, now time.Time) Report {
	agg := newAggregator(len(youthColumns))
	for _, r := range records {
		agg.add(r.GroupID, r.MemberBoys, r.MemberGirls, r.VisitorBoys, r.VisitorGirls)
	}
	rows, grand := agg.finish(names)
	return Report{
		Type:        scope.ReportYouth,
		Title:       Title(scope.ReportYouth),
		Period:      period,
		Columns:     youthColumns,
		Rows:        rows,
		GrandTotal:  grand,
		GeneratedAt: now,
	}
}

func groupKey(rt scope.ReportType, h scope.Hierarchy) int64 {
	switch rt {
	case scope.ReportState:
		return h.StateID
	case scope.ReportRegion:
		return h.RegionID
	default:
		return h.GroupID
	}
}
