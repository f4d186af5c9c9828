package api

// ReportRequest is the query of GET /api/report.
type ReportRequest struct {
	// Windows is a comma separated list of configured window names.
	Windows string `query:"windows"`
	AsOf    string `query:"as_of" validate:"omitempty,len=8,numeric"`
}

// ScreenerRequest is the query of GET /api/screener. Zero values keep the
// configured defaults.
type ScreenerRequest struct {
	Limit    int    `query:"limit" validate:"omitempty,gte=1,lte=500"`
	MinRatio string `query:"min_ratio" validate:"omitempty,numeric"`
	AsOf     string `query:"as_of" validate:"omitempty,len=8,numeric"`
}
