package scope

import (
	"strconv"

	"github.com/flockwatch/flockwatch/internal/roles"
)

// ReportType names a report category gated by role.
type ReportType string

// Report categories.
const (
	ReportState  ReportType = "state"
	ReportRegion ReportType = "region"
	ReportGroup  ReportType = "group"
	ReportYouth  ReportType = "youth"
)

// ParseReportType validates a report type tag.
func ParseReportType(s string) (ReportType, bool) {
	switch t := ReportType(s); t {
	case ReportState, ReportRegion, ReportGroup, ReportYouth:
		return t, true
	}
	return "", false
}

// AllowedReportTypes lists the report categories a role set may request. The
// first matching rule wins, so check order is the tie-break.
func AllowedReportTypes(list []roles.Role) []ReportType {
	switch {
	case roles.Has(list, roles.SuperAdmin) || roles.Has(list, roles.StateAdmin):
		return []ReportType{ReportState, ReportRegion, ReportGroup, ReportYouth}
	case roles.Has(list, roles.RegionAdmin):
		return []ReportType{ReportRegion, ReportGroup, ReportYouth}
	case roles.Has(list, roles.DistrictAdmin) || roles.Has(list, roles.GroupAdmin):
		return []ReportType{ReportGroup}
	default:
		return []ReportType{}
	}
}

// CanRequest reports whether the role set may request the report type.
func CanRequest(list []roles.Role, t ReportType) bool {
	for _, allowed := range AllowedReportTypes(list) {
		if allowed == t {
			return true
		}
	}
	return false
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
