// Package eligibility decides whether a holder may review a project, given the
// skill tags the project requires and the holder's credentials.
//
// Matching is loose: a credential is relevant when its skill
// tag and some required skill are substrings of one another, ignoring case, so
// "React" and "React.js" match. Evaluation is pure and never fails; malformed
// input degrades to a result with CanReview=false.
package eligibility

import (
	"slices"
	"strings"

	"github.com/flexigpt/skillchain-go/spec"
)

// Policy tightens which relevant credentials grant review. The zero Policy
// applies no extra constraint.
type Policy struct {
	// MinLevel, when set, requires a verified relevant credential at or above
	// this level. Relevance itself is unaffected.
	MinLevel spec.Level
}

// Evaluate computes the eligibility of a holder with the zero Policy.
func Evaluate(requiredSkills []string, creds []spec.Credential) spec.EligibilityResult {
	return Policy{}.Evaluate(requiredSkills, creds)
}

func (p Policy) Evaluate(requiredSkills []string, creds []spec.Credential) spec.EligibilityResult {
	req := normalizeSkills(requiredSkills)
	if len(req) == 0 || len(creds) == 0 {
		return spec.EligibilityResult{}
	}

	var out spec.EligibilityResult
	for _, c := range creds {
		if !Relevant(req, c.SkillTag) {
			continue
		}
		out.RelevantCredentials = append(out.RelevantCredentials, c)
		if c.Verified && c.Level >= p.MinLevel {
			out.CanReview = true
		}
	}
	return out
}

// Relevant reports whether tag matches any of the normalized required skills.
// required must already be lower-cased and trimmed (see normalizeSkills).
func Relevant(required []string, tag string) bool {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return false
	}
	for _, r := range required {
		if strings.Contains(r, t) || strings.Contains(t, r) {
			return true
		}
	}
	return false
}

// normalizeSkills lower-cases, trims and dedupes skills, dropping blanks.
// Blank entries would otherwise match every tag through the empty substring.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := map[string]struct{}{}
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SortByLevel returns a copy of creds ordered from the highest level down.
// Credentials of equal level keep their input order.
func SortByLevel(creds []spec.Credential) []spec.Credential {
	out := slices.Clone(creds)
	slices.SortStableFunc(out, func(a, b spec.Credential) int {
		return int(b.Level) - int(a.Level)
	})
	return out
}
