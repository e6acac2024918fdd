package store

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter is a parsed link search.
//
// Every text term and every tag term must match. A text term matches when
// it is a case-insensitive substring of the url, title or description. A tag
// term matches when the link carries a tag whose name contains it.
type Filter struct {
	Terms []string
	Tags  []string

	// UserID scopes the search to one owner. Nil means public links only.
	UserID *uint
}

// ParseQuery splits a raw query into text terms and tag terms.
// Tokens starting with '#' are tag terms with the hash stripped.
func ParseQuery(query string) (terms []string, tags []string) {
	for _, tok := range strings.Fields(query) {
		if strings.HasPrefix(tok, "#") {
			if tag := NormalizeTagName(tok); tag != "" {
				tags = append(tags, tag)
			}
			continue
		}
		terms = append(terms, tok)
	}
	return terms, tags
}

// NewFilter parses query and scopes it to userID
func NewFilter(query string, userID *uint) Filter {
	terms, tags := ParseQuery(query)
	return Filter{Terms: terms, Tags: tags, UserID: userID}
}

// Clauses renders the filter as bound predicates over the links table
func (f Filter) Clauses() []clause.Expr {
	exprs := make([]clause.Expr, 0, 1+len(f.Terms)+len(f.Tags))

	if f.UserID != nil {
		exprs = append(exprs, clause.Expr{SQL: "links.user_id = ?", Vars: []interface{}{*f.UserID}})
	} else {
		exprs = append(exprs, clause.Expr{SQL: "links.is_public = ?", Vars: []interface{}{true}})
	}

	for _, term := range f.Terms {
		p := likePattern(term)
		exprs = append(exprs, clause.Expr{
			SQL: `(LOWER(links.url) LIKE ? ESCAPE '\' OR LOWER(COALESCE(links.title, '')) LIKE ? ESCAPE '\' ` +
				`OR LOWER(COALESCE(links.description, '')) LIKE ? ESCAPE '\')`,
			Vars: []interface{}{p, p, p},
		})
	}

	for _, tag := range f.Tags {
		exprs = append(exprs, clause.Expr{
			SQL: `EXISTS (SELECT 1 FROM link_tags lt JOIN tags t ON t.id = lt.tag_id ` +
				`WHERE lt.link_id = links.id AND LOWER(t.name) LIKE ? ESCAPE '\')`,
			Vars: []interface{}{likePattern(tag)},
		})
	}

	return exprs
}

// Scope applies the filter to a query on the links table
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	for _, expr := range f.Clauses() {
		db = db.Where(expr)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a lower-cased substring LIKE pattern for s
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
