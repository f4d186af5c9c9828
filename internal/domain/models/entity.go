package models

import "strings"

// Market is the listing venue of an entity.
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
)

// Suffix is the exchange suffix some providers append to the ticker.
func (m Market) Suffix() string {
	switch m {
	case MarketKOSDAQ:
		return ".KQ"
	case MarketKOSPI:
		return ".KS"
	default:
		return ""
	}
}

// MarketFromSuffix maps a ticker suffix back to a market.
func MarketFromSuffix(suffix string) (Market, bool) {
	switch strings.ToUpper(suffix) {
	case ".KS":
		return MarketKOSPI, true
	case ".KQ":
		return MarketKOSDAQ, true
	default:
		return "", false
	}
}

// Entity is one listed equity. Immutable once resolved.
type Entity struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Market   Market            `json:"market"`
	GroupIDs []string          `json:"group_ids,omitempty"`
	Aliases  map[string]string `json:"aliases,omitempty"`
}

// Alias returns the identifier source expects, or the canonical id.
func (e Entity) Alias(source string) string {
	if a, ok := e.Aliases[source]; ok && a != "" {
		return a
	}
	return e.ID
}

// Group is an ordered set of entity ids; the first member is the representative.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Representative returns the first member id or "".
func (g Group) Representative() string {
	if len(g.Members) == 0 {
		return ""
	}
	return g.Members[0]
}
