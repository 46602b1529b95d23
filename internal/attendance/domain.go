// Package attendance records weekly service and youth attendance counts.
package attendance

import (
	"fmt"
	"time"

	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/platform/httpx"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// Youth attendance types.
const (
	YouthWeekly  = "weekly"
	YouthRevival = "revival"
	YouthRally   = "rally"
)

var (
	// ErrRecordNotFound covers missing and out-of-scope records.
	ErrRecordNotFound = fmt.Errorf("%w: attendance record", httpx.ErrNotFound)
	// ErrUnitNotRecordable is returned when records are attached above group level.
	ErrUnitNotRecordable = fmt.Errorf("%w: unit_id must be a group or old group", httpx.ErrValidation)
)

// Record is one service's attendance for a group or old group.
type Record struct {
	ID            int64     `json:"id"`
	StateID       int64     `json:"state_id"`
	RegionID      int64     `json:"region_id"`
	DistrictID    int64     `json:"district_id"`
	GroupID       int64     `json:"group_id"`
	OldGroupID    int64     `json:"old_group_id,omitempty"`
	ServiceType   string    `json:"service_type"`
	ServiceDate   time.Time `json:"service_date"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Week          int       `json:"week"`
	Men           int       `json:"men"`
	Women         int       `json:"women"`
	YouthBoys     int       `json:"youth_boys"`
	YouthGirls    int       `json:"youth_girls"`
	ChildrenBoys  int       `json:"children_boys"`
	ChildrenGirls int       `json:"children_girls"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Hierarchy implements scope.Scoped.
func (r Record) Hierarchy() scope.Hierarchy {
	return scope.Hierarchy{StateID: r.StateID, RegionID: r.RegionID, DistrictID: r.DistrictID, GroupID: r.GroupID}
}

// Total sums every head count on the record.
func (r Record) Total() int {
	return r.Men + r.Women + r.YouthBoys + r.YouthGirls + r.ChildrenBoys + r.ChildrenGirls
}

func (r *Record) place(l hierarchy.Lineage) {
	r.StateID, r.RegionID, r.DistrictID, r.GroupID, r.OldGroupID = l.StateID, l.RegionID, l.DistrictID, l.GroupID, l.OldGroupID
}

// YouthRecord is a youth meeting's attendance for a group or old group.
type YouthRecord struct {
	ID             int64     `json:"id"`
	StateID        int64     `json:"state_id"`
	RegionID       int64     `json:"region_id"`
	DistrictID     int64     `json:"district_id"`
	GroupID        int64     `json:"group_id"`
	OldGroupID     int64     `json:"old_group_id,omitempty"`
	AttendanceType string    `json:"attendance_type"`
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Week           int       `json:"week"`
	MemberBoys     int       `json:"member_boys"`
	MemberGirls    int       `json:"member_girls"`
	VisitorBoys    int       `json:"visitor_boys"`
	VisitorGirls   int       `json:"visitor_girls"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Hierarchy implements scope.Scoped.
func (r YouthRecord) Hierarchy() scope.Hierarchy {
	return scope.Hierarchy{StateID: r.StateID, RegionID: r.RegionID, DistrictID: r.DistrictID, GroupID: r.GroupID}
}

// Total sums members and visitors.
func (r YouthRecord) Total() int {
	return r.MemberBoys + r.MemberGirls + r.VisitorBoys + r.VisitorGirls
}

func (r *YouthRecord) place(l hierarchy.Lineage) {
	r.StateID, r.RegionID, r.DistrictID, r.GroupID, r.OldGroupID = l.StateID, l.RegionID, l.DistrictID, l.GroupID, l.OldGroupID
}

// ListFilter narrows record listings. Zero values are ignored.
type ListFilter struct {
	Year       int
	Month      int
	Week       int
	StateID    int64
	RegionID   int64
	DistrictID int64
	GroupID    int64
}

// RecordInput is the create/update payload for service attendance. Year and
// month come from the service date.
type RecordInput struct {
	UnitID        int64  `json:"unit_id" validate:"required,gt=0"`
	ServiceType   string `json:"service_type" validate:"required,max=64"`
	ServiceDate   string `json:"service_date" validate:"required,datetime=2006-01-02"`
	Week          int    `json:"week" validate:"min=1,max=5"`
	Men           int    `json:"men" validate:"gte=0"`
	Women         int    `json:"women" validate:"gte=0"`
	YouthBoys     int    `json:"youth_boys" validate:"gte=0"`
	YouthGirls    int    `json:"youth_girls" validate:"gte=0"`
	ChildrenBoys  int    `json:"children_boys" validate:"gte=0"`
	ChildrenGirls int    `json:"children_girls" validate:"gte=0"`
}

// YouthInput is the create/update payload for youth attendance.
type YouthInput struct {
	UnitID         int64  `json:"unit_id" validate:"required,gt=0"`
	AttendanceType string `json:"attendance_type" validate:"required,oneof=weekly revival rally"`
	Year           int    `json:"year" validate:"min=2000,max=2100"`
	Month          int    `json:"month" validate:"min=1,max=12"`
	Week           int    `json:"week" validate:"min=1,max=5"`
	MemberBoys     int    `json:"member_boys" validate:"gte=0"`
	MemberGirls    int    `json:"member_girls" validate:"gte=0"`
	VisitorBoys    int    `json:"visitor_boys" validate:"gte=0"`
	VisitorGirls   int    `json:"visitor_girls" validate:"gte=0"`
}
