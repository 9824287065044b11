// Package catalog implements the Google Books search client and the
// candidate sourcing loop that feeds the ranking stage.
package catalog

import "strings"

// QueryKind tags how a search query targets the catalog.
type QueryKind int

const (
	// KindSubject searches by subject/keyword. The text is passed through
	// unchanged, so profile-derived queries keep any subject: prefix the
	// model already put there.
	KindSubject QueryKind = iota
	// KindAuthor searches by author via the catalog's inauthor: operator.
	KindAuthor
)

// Query is one catalog search, tagged by targeting kind instead of ad hoc
// string prefixing so query construction is exhaustively testable.
type Query struct {
	Kind QueryKind
	Text string
}

// Subject builds a subject/keyword query.
func Subject(text string) Query {
	return Query{Kind: KindSubject, Text: text}
}

// Author builds an author-targeted query.
func Author(name string) Query {
	return Query{Kind: KindAuthor, Text: name}
}

// Term renders the query in the catalog's query DSL.
func (q Query) Term() string {
	if q.Kind == KindAuthor && !strings.HasPrefix(q.Text, "inauthor:") {
		return "inauthor:" + q.Text
	}
	return q.Text
}
