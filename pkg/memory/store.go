// Package memory keeps per-session preferences, constraints, and recent
// intents extracted from user queries. The store is process-local; callers
// serialize access per session.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	maxSummaryChars = 500
	maxRecentSteps  = 3
	maxIntentChars  = 200
)

// State is the memory for one session.
type State struct {
	Preferences     map[string]string
	Constraints     map[string]string
	RecentPlanSteps []string
}

// Store maps session IDs to their memory state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*State)}
}

// Get returns the session state, creating it on first use.
func (s *Store) Get(sessionID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &State{
			Preferences: make(map[string]string),
			Constraints: make(map[string]string),
		}
		s.sessions[sessionID] = st
	}
	return st
}

// ParsedUpdates carries caller-supplied preference/constraint overrides
// merged on top of the extraction pass.
type ParsedUpdates struct {
	Preferences map[string]string
	Constraints map[string]string
}

// Update extracts preferences and constraints from the query, merges them
// into the session state, and records the intent with move-to-front
// semantics (deduplicated, most-recent-first, at most three).
func (s *Store) Update(sessionID, userQuery string, parsed *ParsedUpdates) *State {
	st := s.Get(sessionID)

	prefs, constraints := extract(userQuery)
	for k, v := range prefs {
		st.Preferences[k] = v
	}
	for k, v := range constraints {
		st.Constraints[k] = v
	}
	if parsed != nil {
		for k, v := range parsed.Preferences {
			st.Preferences[k] = v
		}
		for k, v := range parsed.Constraints {
			st.Constraints[k] = v
		}
	}

	intent := truncateRunes(strings.TrimSpace(userQuery), maxIntentChars)
	steps := []string{intent}
	for _, prev := range st.RecentPlanSteps {
		if prev != intent && len(steps) < maxRecentSteps {
			steps = append(steps, prev)
		}
	}
	st.RecentPlanSteps = steps

	return st
}

// prefKeyOrder fixes rendering order so summaries are stable across runs.
var prefKeyOrder = []string{"budget_style", "travel_style", "mobility_constraints", "kids"}
var constraintKeyOrder = []string{"group_size", "dates", "must", "avoid"}

// Summary renders the bounded memory string: "prefs:… constraints:… recent:…".
func (s *Store) Summary(sessionID string) string {
	st := s.Get(sessionID)

	var parts []string
	if p := renderMap(st.Preferences, prefKeyOrder); p != "" {
		parts = append(parts, "prefs:"+p)
	}
	if c := renderMap(st.Constraints, constraintKeyOrder); c != "" {
		parts = append(parts, "constraints:"+c)
	}
	if len(st.RecentPlanSteps) > 0 {
		parts = append(parts, "recent:"+strings.Join(st.RecentPlanSteps, ";"))
	}

	return truncateRunes(strings.Join(parts, " "), maxSummaryChars)
}

// truncateRunes bounds s to n runes. Cutting by byte index could leave an
// invalid UTF-8 tail on accented queries.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Hash returns the first n hex characters of the SHA-256 of the summary,
// or empty when the session carries no signal.
func (s *Store) Hash(sessionID string, n int) string {
	summary := s.Summary(sessionID)
	if summary == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(summary))
	h := hex.EncodeToString(sum[:])
	if n > 0 && n < len(h) {
		h = h[:n]
	}
	return h
}

func renderMap(m map[string]string, keyOrder []string) string {
	if len(m) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(m))
	var pairs []string
	for _, k := range keyOrder {
		if v, ok := m[k]; ok {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
			seen[k] = true
		}
	}
	var extra []string
	for k := range m {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, m[k]))
	}
	return strings.Join(pairs, " ")
}

// Extraction cues: Portuguese/English/Spanish keywords mapped to canonical
// labels. Deterministic by construction.
var (
	reBudget    = regexp.MustCompile(`\b(budget|cheap|low.?cost|hostel|barato|economico|econômico)\b`)
	reLuxury    = regexp.MustCompile(`\b(luxury|premium|5.?star|luxo)\b`)
	reAdventure = regexp.MustCompile(`\b(adventure|hiking|backpack|aventura|trilha)\b`)
	reRelax     = regexp.MustCompile(`\b(relax|beach|spa|praia|descansar)\b`)
	reFamily    = regexp.MustCompile(`\b(family|kids?|children|familia|família|crianças?|niños?)\b`)
	reMobility  = regexp.MustCompile(`\b(wheelchair|mobility|accessible|disabilit|cadeirante|acessível)`)
	reKids      = regexp.MustCompile(`\b(\d+)\s*(kids?|children|child|crianças?)\b`)
	reAdults    = regexp.MustCompile(`\b(\d+)\s*(adults?|people|persons?|pessoas|adultos?)\b`)
	reDates     = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|janeiro|fevereiro|março|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\s*(\d{4})?`)
	reMust      = regexp.MustCompile(`\bmust\s+(see|visit|do)\b|\bimperdível\b`)
	reAvoid     = regexp.MustCompile(`\bavoid\b|\bevitar\b|\bno\b.*\b(crowds?|tourists?)\b`)
)

func extract(userQuery string) (prefs, constraints map[string]string) {
	q := strings.ToLower(userQuery)
	prefs = make(map[string]string)
	constraints = make(map[string]string)

	switch {
	case reBudget.MatchString(q):
		prefs["budget_style"] = "budget"
	case reLuxury.MatchString(q):
		prefs["budget_style"] = "luxury"
	}

	switch {
	case reAdventure.MatchString(q):
		prefs["travel_style"] = "adventure"
	case reRelax.MatchString(q):
		prefs["travel_style"] = "relaxation"
	case reFamily.MatchString(q):
		prefs["travel_style"] = "family"
	}

	if reMobility.MatchString(q) {
		prefs["mobility_constraints"] = "wheelchair_accessible"
	}

	if m := reKids.FindStringSubmatch(q); m != nil {
		prefs["kids"] = "true"
		constraints["group_size"] = m[1]
	}
	if m := reAdults.FindStringSubmatch(q); m != nil {
		constraints["group_size"] = m[1]
	}
	if m := reDates.FindString(q); m != "" {
		constraints["dates"] = strings.TrimSpace(m)
	}
	if reMust.MatchString(q) {
		constraints["must"] = "extracted"
	}
	if reAvoid.MatchString(q) {
		constraints["avoid"] = "extracted"
	}

	return prefs, constraints
}
