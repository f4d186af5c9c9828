package models

// ExclusionReason explains why an entity is left out of a group mean.
type ExclusionReason string

const (
	ExclusionNone                ExclusionReason = ""
	ExclusionNoSeries            ExclusionReason = "no_series"
	ExclusionMissingCurrent      ExclusionReason = "missing_current"
	ExclusionMissingBaseline     ExclusionReason = "missing_baseline"
	ExclusionNonPositiveBaseline ExclusionReason = "non_positive_baseline"
)

// FlowSums are net quantities per investor class over a window.
type FlowSums struct {
	Institution int64 `json:"institution"`
	Foreign     int64 `json:"foreign"`
	Retail      int64 `json:"retail"`
	Total       int64 `json:"total"`
}

func (f FlowSums) Add(o FlowSums) FlowSums {
	return FlowSums{
		Institution: f.Institution + o.Institution,
		Foreign:     f.Foreign + o.Foreign,
		Retail:      f.Retail + o.Retail,
		Total:       f.Total + o.Total,
	}
}

// FlowPct is each class's net flow as a percent of traded volume.
type FlowPct struct {
	Institution float64 `json:"institution"`
	Foreign     float64 `json:"foreign"`
	Retail      float64 `json:"retail"`
}

// EntityMetrics is one entity evaluated over one window. PriceChangeRaw is
// the unrounded PriceChangePct, kept for group means.
type EntityMetrics struct {
	EntityID        string          `json:"entity_id"`
	Name            string          `json:"name"`
	Window          string          `json:"window"`
	PriceChangePct  *float64        `json:"price_change_pct"`
	PriceChangeRaw  *float64        `json:"-"`
	Included        bool            `json:"included"`
	ExclusionReason ExclusionReason `json:"exclusion_reason,omitempty"`
	VolumeTotal     int64           `json:"volume_total"`
	HasVolume       bool            `json:"has_volume"`
	// Mean daily volume of the current and baseline ranges.
	VolumeCurrentMean  *float64      `json:"volume_current_mean,omitempty"`
	VolumeBaselineMean *float64      `json:"volume_baseline_mean,omitempty"`
	VolumeChangePct    *float64      `json:"volume_change_pct"`
	Flow               FlowSums      `json:"flow"`
	HasFlow            bool          `json:"has_flow"`
	FlowPct            FlowPct       `json:"flow_pct"`
	RetailInferred     bool          `json:"retail_inferred"`
	Valuation          *Fundamentals `json:"valuation,omitempty"`
}

// Breadth counts included entities by direction of price change.
type Breadth struct {
	Up   int `json:"up"`
	Down int `json:"down"`
	Flat int `json:"flat"`
}

// GroupMetrics is the roll-up of a group's entity metrics over one window.
type GroupMetrics struct {
	GroupID            string         `json:"group_id"`
	GroupName          string         `json:"group_name"`
	Window             string         `json:"window"`
	MeanPriceChangePct *float64       `json:"mean_price_change_pct"`
	IncludedCount      int            `json:"included_count"`
	Excluded           []string       `json:"excluded,omitempty"`
	VolumeTotal        int64          `json:"volume_total"`
	VolumeChangePct    *float64       `json:"volume_change_pct"`
	Flow               FlowSums       `json:"flow"`
	FlowPct            FlowPct        `json:"flow_pct"`
	RetailInferred     bool           `json:"retail_inferred"`
	Breadth            Breadth        `json:"breadth"`
	Representative     *EntityMetrics `json:"representative,omitempty"`
	Degraded           bool           `json:"degraded"`
	DegradedReasons    []string       `json:"degraded_reasons,omitempty"`
}

// Group degradation reasons.
const (
	ReasonNoIncludedEntities = "no_included_entities"
	ReasonWindowClamped      = "window_clamped"
	ReasonMembersUnavailable = "members_unavailable"
)
