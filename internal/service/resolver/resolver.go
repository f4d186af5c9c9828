// Package resolver maps canonical entity ids to per-source identifiers and
// display names, using reference data loaded from a YAML universe file.
package resolver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"SectorPulse/internal/domain/models"
)

// Source names that receive default aliases.
const (
	SourceYahoo     = "yahoo"
	SourceNaver     = "naver"
	SourceKRX       = "krx"
	SourceWarehouse = "warehouse"
)

var defaultSources = []string{SourceYahoo, SourceNaver, SourceKRX, SourceWarehouse}

type universeFile struct {
	Groups []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Members []string `yaml:"members"`
	} `yaml:"groups"`
	Entities []struct {
		ID      string            `yaml:"id"`
		Name    string            `yaml:"name"`
		Market  string            `yaml:"market"`
		Aliases map[string]string `yaml:"aliases"`
	} `yaml:"entities"`
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	groups   []models.Group
	byGroup  map[string]int
	entities map[string]models.Entity
	order    []string
}

// Load reads a universe file.
func Load(path string) (*Resolver, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	return Parse(b)
}

// Parse builds a resolver from universe YAML.
func Parse(b []byte) (*Resolver, error) {
	var f universeFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}

	groups := make([]models.Group, 0, len(f.Groups))
	for _, g := range f.Groups {
		groups = append(groups, models.Group{ID: g.ID, Name: g.Name, Members: g.Members})
	}
	entities := make([]models.Entity, 0, len(f.Entities))
	for _, e := range f.Entities {
		entities = append(entities, models.Entity{
			ID:      e.ID,
			Name:    e.Name,
			Market:  models.Market(strings.ToUpper(e.Market)),
			Aliases: e.Aliases,
		})
	}
	return New(groups, entities)
}

// New builds a resolver from in-memory reference data. Member ids may be in
// any alias form; entities missing from the list are created from the member.
func New(groups []models.Group, entities []models.Entity) (*Resolver, error) {
	r := &Resolver{
		byGroup:  make(map[string]int, len(groups)),
		entities: make(map[string]models.Entity, len(entities)),
	}

	for _, e := range entities {
		id, market := Canonical(e.ID)
		if id == "" {
			return nil, fmt.Errorf("universe: entity with empty id")
		}
		if e.Market == "" {
			e.Market = market
		}
		e.ID = id
		e.GroupIDs = nil
		r.entities[id] = e
	}

	for _, g := range groups {
		if g.ID == "" {
			return nil, fmt.Errorf("universe: group with empty id")
		}
		if _, dup := r.byGroup[g.ID]; dup {
			return nil, fmt.Errorf("universe: duplicate group %q", g.ID)
		}
		if len(g.Members) == 0 {
			return nil, fmt.Errorf("universe: group %q has no members", g.ID)
		}
		if g.Name == "" {
			g.Name = g.ID
		}

		members := make([]string, 0, len(g.Members))
		seen := make(map[string]bool, len(g.Members))
		for _, raw := range g.Members {
			id, market := Canonical(raw)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			members = append(members, id)

			e, ok := r.entities[id]
			if !ok {
				e = models.Entity{ID: id, Market: market}
			}
			if e.Market == "" {
				e.Market = market
			}
			e.GroupIDs = append(e.GroupIDs, g.ID)
			r.entities[id] = e
			if len(e.GroupIDs) == 1 {
				r.order = append(r.order, id)
			}
		}
		g.Members = members
		r.byGroup[g.ID] = len(r.groups)
		r.groups = append(r.groups, g)
	}

	for id, e := range r.entities {
		if e.Market == "" {
			e.Market = models.MarketKOSPI
		}
		e.Aliases = withDefaultAliases(e)
		r.entities[id] = e
	}

	return r, nil
}

// Canonical strips a market suffix (".KS"/".KQ") and returns the bare id with
// the market it implied, if any.
func Canonical(raw string) (string, models.Market) {
	id := strings.TrimSpace(raw)
	if i := strings.LastIndex(id, "."); i > 0 {
		if m, ok := models.MarketFromSuffix(id[i:]); ok {
			return id[:i], m
		}
	}
	return id, ""
}

func withDefaultAliases(e models.Entity) map[string]string {
	out := make(map[string]string, len(defaultSources)+len(e.Aliases))
	for _, s := range defaultSources {
		out[s] = e.ID
	}
	out[SourceYahoo] = e.ID + e.Market.Suffix()
	for k, v := range e.Aliases {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Groups returns the configured groups in file order.
func (r *Resolver) Groups() []models.Group {
	return append([]models.Group(nil), r.groups...)
}

// Group looks a group up by id.
func (r *Resolver) Group(id string) (models.Group, bool) {
	i, ok := r.byGroup[id]
	if !ok {
		return models.Group{}, false
	}
	return r.groups[i], true
}

// Entity looks an entity up by any alias form of its id.
func (r *Resolver) Entity(id string) (models.Entity, bool) {
	canonical, _ := Canonical(id)
	e, ok := r.entities[canonical]
	return e, ok
}

// Resolve returns the group's members in order.
func (r *Resolver) Resolve(g models.Group) []models.Entity {
	out := make([]models.Entity, 0, len(g.Members))
	for _, m := range g.Members {
		if e, ok := r.Entity(m); ok {
			out = append(out, e)
		}
	}
	return out
}

// Universe returns every grouped entity once, in first-appearance order.
func (r *Resolver) Universe() []models.Entity {
	out := make([]models.Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

// DisplayName returns the entity's name, or the id when unknown or unnamed.
func (r *Resolver) DisplayName(id string) string {
	if e, ok := r.Entity(id); ok && e.Name != "" {
		return e.Name
	}
	canonical, _ := Canonical(id)
	return canonical
}

// Lookup returns the entity for id, or a bare entity carrying default
// aliases when id is outside the universe (screener rows are market-wide).
func (r *Resolver) Lookup(id string) models.Entity {
	if e, ok := r.Entity(id); ok {
		return e
	}
	canonical, market := Canonical(id)
	if market == "" {
		market = models.MarketKOSPI
	}
	e := models.Entity{ID: canonical, Market: market}
	e.Aliases = withDefaultAliases(e)
	return e
}
