package stats

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/teams"
)

// FormatAgentName turns "john.smith@example.com" into "John Smith".
// Values without an "@" are returned unchanged.
func FormatAgentName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	words := strings.Split(local, ".")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// ByIndividual keys a record by its formatted agent name.
func ByIndividual(r domain.SiteRecord) (string, bool) {
	name := FormatAgentName(strings.TrimSpace(r.AgentName))
	return name, name != ""
}

// ByTeam keys a record by the agent's team. Agents on no team are skipped.
func ByTeam(resolver *teams.Resolver) KeyFunc {
	return func(r domain.SiteRecord) (string, bool) {
		return resolver.Team(r.AgentName)
	}
}

// All puts every record in a single bucket named name.
func All(name string) KeyFunc {
	return func(domain.SiteRecord) (string, bool) { return name, true }
}

const keySep = "\x1f"

func compositeKey(parts ...string) string {
	return strings.Join(parts, keySep)
}

func splitKey(key string) (string, string) {
	first, rest, _ := strings.Cut(key, keySep)
	return first, rest
}
