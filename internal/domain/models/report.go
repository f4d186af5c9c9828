package models

import "time"

// Status tags how a data need was satisfied.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Degradation records a data need that was served by a fallback or not at all.
type Degradation struct {
	Need     string `json:"need"`
	Entity   string `json:"entity,omitempty"`
	Status   Status `json:"status"`
	Strategy string `json:"strategy,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// WindowReport holds every group and entity evaluated over one window.
type WindowReport struct {
	Window   ResolvedWindow  `json:"window"`
	Groups   []GroupMetrics  `json:"groups"`
	Entities []EntityMetrics `json:"entities"`
}

// GroupHighlight points at one group's mean for a window.
type GroupHighlight struct {
	GroupID   string  `json:"group_id"`
	GroupName string  `json:"group_name"`
	Window    string  `json:"window"`
	ChangePct float64 `json:"change_pct"`
}

// Highlights are the headline groups of a report. TodayLeader is the
// strongest positive group, or the weakest group when none is positive.
type Highlights struct {
	BestWeek            *GroupHighlight `json:"best_week,omitempty"`
	TodayLeader         *GroupHighlight `json:"today_leader,omitempty"`
	TodayLeaderPositive bool            `json:"today_leader_positive"`
}

// NewsItem is one headline.
type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Publisher string    `json:"publisher,omitempty"`
	Published time.Time `json:"published"`
}

// NewsDigest is the headline list for a group.
type NewsDigest struct {
	GroupID string     `json:"group_id"`
	Status  Status     `json:"status"`
	Items   []NewsItem `json:"items"`
}

// SectorReport is the output of one sector report run.
type SectorReport struct {
	RunID        string         `json:"run_id"`
	AsOf         time.Time      `json:"as_of"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Reference    string         `json:"reference_entity"`
	Calendar     []time.Time    `json:"calendar"`
	Windows      []WindowReport `json:"windows"`
	Highlights   Highlights     `json:"highlights"`
	News         []NewsDigest   `json:"news,omitempty"`
	Degradations []Degradation  `json:"degradations,omitempty"`
}

// Window returns the report for the named window.
func (r *SectorReport) Window(name string) (*WindowReport, bool) {
	for i := range r.Windows {
		if r.Windows[i].Window.Window.Name == name {
			return &r.Windows[i], true
		}
	}
	return nil, false
}

// ScreenerRow is one low-valuation candidate.
type ScreenerRow struct {
	Rank int `json:"rank"`
	Fundamentals
}

// ScreenerReport is the output of one valuation screen.
type ScreenerReport struct {
	RunID        string        `json:"run_id"`
	AsOf         time.Time     `json:"as_of"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Status       Status        `json:"status"`
	Strategy     string        `json:"strategy,omitempty"`
	MinRatio     float64       `json:"min_ratio"`
	Limit        int           `json:"limit"`
	Universe     int           `json:"universe_size"`
	Rows         []ScreenerRow `json:"rows"`
	Degradations []Degradation `json:"degradations,omitempty"`
}
