package roles

// Visibility tells the dashboard which hierarchy columns and fields to render.
// It is a presentation hint and never grants access to data.
type Visibility struct {
	ShowState    bool `json:"showState"`
	ShowRegion   bool `json:"showRegion"`
	ShowDistrict bool `json:"showDistrict"`
	ShowGroup    bool `json:"showGroup"`
	ShowOldGroup bool `json:"showOldGroup"`
}

var showAll = Visibility{ShowState: true, ShowRegion: true, ShowDistrict: true, ShowGroup: true, ShowOldGroup: true}

var visibilityByRole = map[Role]Visibility{
	SuperAdmin:    showAll,
	Admin:         showAll,
	StateAdmin:    {ShowState: false, ShowRegion: true, ShowDistrict: true, ShowGroup: true, ShowOldGroup: true},
	RegionAdmin:   {ShowState: false, ShowRegion: false, ShowDistrict: true, ShowGroup: true, ShowOldGroup: true},
	DistrictAdmin: {ShowState: false, ShowRegion: false, ShowDistrict: false, ShowGroup: false, ShowOldGroup: true},
	GroupAdmin:    {ShowState: false, ShowRegion: false, ShowDistrict: true, ShowGroup: false, ShowOldGroup: true},
	Viewer:        showAll,
}

// VisibilityFor derives the field visibility from the most senior role held.
// Unknown or missing roles fall back to the Viewer configuration.
func VisibilityFor(list []Role) Visibility {
	if v, ok := visibilityByRole[Highest(list)]; ok {
		return v
	}
	return showAll
}
