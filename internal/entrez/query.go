// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"fmt"
	"strings"

	"github.com/pdiddy/seqfetch/pkg/types"
)

// Query is a keyword search restricted by a filter policy.
type Query struct {
	Term   string
	Filter types.FilterPolicy
}

// NewQuery trims term and pairs it with filter.
func NewQuery(term string, filter types.FilterPolicy) Query {
	return Query{Term: strings.TrimSpace(term), Filter: filter}
}

// IsEmpty reports whether the query has no search term.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Term) == ""
}

// String renders the Entrez query: the term restricted to titles, one NOT
// clause per excluded title keyword, then the SLEN range and any extra clause.
//
//	(lysozyme[Title]) NOT hypothetical[Title] AND 50:1000000[SLEN]
func (q Query) String() string {
	if q.IsEmpty() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(%s[Title])", strings.TrimSpace(q.Term))

	for _, x := range q.Filter.ExcludeTitleTerms {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		fmt.Fprintf(&b, " NOT %s[Title]", x)
	}

	if q.Filter.MaxLength > 0 {
		fmt.Fprintf(&b, " AND %d:%d[SLEN]", q.Filter.MinLength, q.Filter.MaxLength)
	}

	if extra := strings.TrimSpace(q.Filter.Extra); extra != "" {
		b.WriteString(" ")
		b.WriteString(extra)
	}
	return b.String()
}
