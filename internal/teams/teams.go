// Package teams resolves agent identifiers to their team and team lead.
//
// The roster is configuration: it is injected once at construction and is
// read-only afterwards, so a Resolver is safe for concurrent use.
package teams

import "strings"

// UnknownLead is returned by Lead when an identifier belongs to no team.
const UnknownLead = "Unknown"

// Member is one roster entry.
type Member struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// Team is a named group of agents with a lead.
type Team struct {
	Name    string   `yaml:"name" json:"name"`
	Lead    string   `yaml:"lead" json:"lead"`
	Members []Member `yaml:"members" json:"members"`
}

// Resolver answers membership questions against a fixed roster.
type Resolver struct {
	teams []Team
	byID  map[string]int
}

// NewResolver indexes the roster. When an identifier appears in more than
// one team, the first team listed wins.
func NewResolver(roster []Team) *Resolver {
	r := &Resolver{
		teams: make([]Team, len(roster)),
		byID:  make(map[string]int),
	}
	copy(r.teams, roster)
	for i, t := range r.teams {
		for _, m := range t.Members {
			id := normalize(m.Email)
			if id == "" {
				continue
			}
			if _, seen := r.byID[id]; !seen {
				r.byID[id] = i
			}
		}
	}
	return r
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Team returns the team name for identifier. ok is false when the
// identifier is on no team; callers exclude such records from team views.
func (r *Resolver) Team(identifier string) (string, bool) {
	if r == nil {
		return "", false
	}
	i, ok := r.byID[normalize(identifier)]
	if !ok {
		return "", false
	}
	return r.teams[i].Name, true
}

// Lead returns the lead of identifier's team, or UnknownLead.
func (r *Resolver) Lead(identifier string) string {
	if r == nil {
		return UnknownLead
	}
	i, ok := r.byID[normalize(identifier)]
	if !ok {
		return UnknownLead
	}
	return r.teams[i].Lead
}

// Teams returns a copy of the roster.
func (r *Resolver) Teams() []Team {
	if r == nil {
		return []Team{}
	}
	out := make([]Team, len(r.teams))
	copy(out, r.teams)
	return out
}
