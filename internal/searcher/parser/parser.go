// Package parser turns raw query strings into conjunctive query plans.
package parser

import "strings"

// QueryPlan is a strict AND over Terms. Terms keep the caller's casing and
// are matched against index keys verbatim; stop words are not removed.
// Exclude lists ingredients whose documents are dropped from the result.
type QueryPlan struct {
	Terms    []string
	Exclude  []string
	RawQuery string
}

// Parse splits query on whitespace. exclude is a comma-separated list, e.g.
// "peanut, cashew".
func Parse(query string, exclude string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    strings.Fields(query),
		Exclude:  make([]string, 0),
		RawQuery: query,
	}
	for _, item := range strings.Split(exclude, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		plan.Exclude = append(plan.Exclude, item)
	}
	return plan
}

// DistinctTerms returns Terms without repeats, in first-seen order.
func (p *QueryPlan) DistinctTerms() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, term := range p.Terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

// Empty reports whether the plan has no query terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
