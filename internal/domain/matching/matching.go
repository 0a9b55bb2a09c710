// Package matching ranks employees against a project role.
//
// Scoring is a fixed weighted heuristic. The first keyword token names the
// primary technology and acts as a hard gate: employees without it are
// excluded before scoring. The remaining components are summed and capped
// at 100:
//
//	primary technology        50
//	secondary technologies    min(20, 10 per hit)
//	technology overlap        min(25, 5 per hit)
//	role substring            10
//	keyword token hits        min(10, 5 per hit)
//	project affinity          15
//	experience                min(10, floor(years/2))
//
// The weights are kept as-is for compatibility with existing rankings.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/internal/domain/skills"
)

// Component weights and caps.
const (
	primaryWeight    = 50
	secondaryPerHit  = 10
	secondaryCap     = 20
	overlapPerHit    = 5
	overlapCap       = 25
	roleWeight       = 10
	tokenPerHit      = 5
	tokenCap         = 10
	affinityWeight   = 15
	experienceCap    = 10
	maxScore         = 100
	defaultLimit     = 5
	yearsPerExpPoint = 2
)

// Query describes the seat being filled.
type Query struct {
	// MissingRole is matched as a substring of the employee role.
	MissingRole string
	// Keywords is a whitespace/comma separated token list. The first token is
	// the primary technology. Blank keywords fall back to MissingRole.
	Keywords string
	// ProjectTechnologies is the declared tech stack of the target project.
	ProjectTechnologies []string
	// ProjectNames are the project name and code used for affinity.
	ProjectNames []string
}

// QueryForProject builds a Query from a stored project.
func QueryForProject(p model.Project, missingRole, keywords string) Query {
	return Query{
		MissingRole:         missingRole,
		Keywords:            keywords,
		ProjectTechnologies: p.Technologies,
		ProjectNames:        p.DisplayNames(),
	}
}

// AnnotatedSkill is a profile skill flagged when it matches the query.
type AnnotatedSkill struct {
	Name  string `json:"name"`
	Match bool   `json:"match"`
}

// Breakdown holds the individual score components before capping.
type Breakdown struct {
	Primary    int `json:"primary"`
	Secondary  int `json:"secondary"`
	Overlap    int `json:"overlap"`
	Role       int `json:"role"`
	Tokens     int `json:"tokens"`
	Affinity   int `json:"affinity"`
	Experience int `json:"experience"`
}

// Total sums the components and caps the result.
func (b Breakdown) Total() int {
	sum := b.Primary + b.Secondary + b.Overlap + b.Role + b.Tokens + b.Affinity + b.Experience
	if sum > maxScore {
		return maxScore
	}
	return sum
}

// Result is one ranked candidate.
type Result struct {
	EmployeeID        string           `json:"employeeId"`
	Name              string           `json:"name"`
	Role              string           `json:"role"`
	Location          string           `json:"location,omitempty"`
	YearsOfExperience float64          `json:"yearsOfExperience"`
	Availability      string           `json:"availability,omitempty"`
	MatchScore        int              `json:"matchScore"`
	Skills            []AnnotatedSkill `json:"skills"`
	Breakdown         Breakdown        `json:"breakdown"`
}

// Scorer ranks employees. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	limit int
}

// NewScorer creates a Scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{limit: defaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit reports how many results Score returns at most.
func (s *Scorer) Limit() int { return s.limit }

// prepared is the per-query state shared by every employee.
type prepared struct {
	role        string
	tokens      []string
	tokensNorm  []string
	gated       bool
	primaryNorm string
	techsNorm   []string
	secondary   []string
	names       []string
	wanted      map[string]struct{}
}

func prepare(q Query) prepared {
	keywords := q.Keywords
	if strings.TrimSpace(keywords) == "" {
		keywords = q.MissingRole
	}
	p := prepared{
		role:      strings.ToLower(q.MissingRole),
		tokens:    skills.Tokenize(keywords),
		techsNorm: skills.NormalizeAll(q.ProjectTechnologies),
		wanted:    make(map[string]struct{}),
	}
	p.tokensNorm = skills.NormalizeAll(p.tokens)
	if len(p.tokensNorm) > 0 {
		p.gated = true
		p.primaryNorm = p.tokensNorm[0]
	}
	for _, t := range p.techsNorm {
		if p.primaryNorm != "" && t == p.primaryNorm {
			continue
		}
		p.secondary = append(p.secondary, t)
	}
	for _, n := range q.ProjectNames {
		if n = strings.ToLower(n); n != "" {
			p.names = append(p.names, n)
		}
	}
	for _, t := range p.tokensNorm {
		if t != "" {
			p.wanted[t] = struct{}{}
		}
	}
	for _, t := range p.techsNorm {
		if t != "" {
			p.wanted[t] = struct{}{}
		}
	}
	return p
}

// Score filters employees through the primary technology gate, scores the
// survivors and returns the best ones in descending order. Ties keep input
// order. Empty input yields an empty result.
func (s *Scorer) Score(employees []model.Employee, q Query) []Result {
	p := prepare(q)
	results := make([]Result, 0, len(employees))

	for i := range employees {
		e := &employees[i]
		have := make(map[string]struct{}, len(e.Skills))
		for _, sk := range e.Skills {
			if n := skills.Normalize(sk.Name); n != "" {
				have[n] = struct{}{}
			}
		}

		// A first token that normalizes to "" still gates, and nothing matches it.
		if p.gated {
			if _, ok := have[p.primaryNorm]; !ok || p.primaryNorm == "" {
				continue
			}
		}

		b := Breakdown{
			Secondary:  capped(countIn(p.secondary, have)*secondaryPerHit, secondaryCap),
			Overlap:    capped(countIn(p.techsNorm, have)*overlapPerHit, overlapCap),
			Tokens:     capped(tokenHits(e, p, have)*tokenPerHit, tokenCap),
			Experience: experiencePoints(e.YearsOfExperience),
		}
		if p.gated {
			b.Primary = primaryWeight
		}
		if strings.Contains(strings.ToLower(e.Role), p.role) {
			b.Role = roleWeight
		}
		if hasAffinity(e, p.names) {
			b.Affinity = affinityWeight
		}

		results = append(results, Result{
			EmployeeID:        e.ID,
			Name:              e.FullName(),
			Role:              e.Role,
			Location:          e.Location,
			YearsOfExperience: e.YearsOfExperience,
			Availability:      availability(e),
			MatchScore:        b.Total(),
			Skills:            annotate(e.Skills, p.wanted),
			Breakdown:         b,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	if len(results) > s.limit {
		results = results[:s.limit]
	}
	return results
}

func countIn(list []string, set map[string]struct{}) int {
	n := 0
	for _, v := range list {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

// tokenHits counts keyword tokens that name a skill, or appear inside an
// interest or a spoken language.
func tokenHits(e *model.Employee, p prepared, have map[string]struct{}) int {
	hits := 0
	for i, tok := range p.tokens {
		if _, ok := have[p.tokensNorm[i]]; ok {
			hits++
			continue
		}
		if containsAny(e.Interests, tok) || containsAny(e.Languages, tok) {
			hits++
		}
	}
	return hits
}

func containsAny(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func hasAffinity(e *model.Employee, names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, group := range [][]string{e.CurrentProjects, e.PastProjects} {
		for _, proj := range group {
			proj = strings.ToLower(proj)
			for _, n := range names {
				if strings.Contains(proj, n) {
					return true
				}
			}
		}
	}
	return false
}

func experiencePoints(years float64) int {
	if years <= 0 || math.IsNaN(years) {
		return 0
	}
	pts := math.Floor(years / yearsPerExpPoint)
	if pts > experienceCap {
		return experienceCap
	}
	return int(pts)
}

func availability(e *model.Employee) string {
	if e.Availability == nil {
		return ""
	}
	return e.Availability.Status
}

// annotate flags every skill whose normalized name is wanted and moves the
// flagged ones to the front, keeping relative order.
func annotate(list []model.Skill, wanted map[string]struct{}) []AnnotatedSkill {
	out := make([]AnnotatedSkill, 0, len(list))
	for _, sk := range list {
		_, ok := wanted[skills.Normalize(sk.Name)]
		out = append(out, AnnotatedSkill{Name: sk.Name, Match: ok})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Match && !out[j].Match
	})
	return out
}
