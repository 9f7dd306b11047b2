package obo

import (
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/ontograph/internal/curie"
	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

// Tag identifies the kind of a frame clause.
type Tag int

const (
	TagUnknown Tag = iota
	TagID
	TagIsAnonymous
	TagName
	TagNamespace
	TagAltID
	TagDef
	TagComment
	TagSubset
	TagSynonym
	TagXref
	TagBuiltin
	TagPropertyValue
	TagIsA
	TagIntersectionOf
	TagUnionOf
	TagEquivalentTo
	TagDisjointFrom
	TagRelationship
	TagCreatedBy
	TagCreationDate
	TagIsObsolete
	TagReplacedBy
	TagConsider

	// Typedef only.
	TagDomain
	TagRange
	TagInverseOf
	TagTransitiveOver
	TagDisjointOver
	TagHoldsOverChain
	TagEquivalentToChain
	TagProperty
	TagExpandAssertionTo
	TagExpandExpressionTo
)

var tags = map[string]Tag{
	"id":                   TagID,
	"is_anonymous":         TagIsAnonymous,
	"name":                 TagName,
	"namespace":            TagNamespace,
	"alt_id":               TagAltID,
	"def":                  TagDef,
	"comment":              TagComment,
	"subset":               TagSubset,
	"synonym":              TagSynonym,
	"exact_synonym":        TagSynonym,
	"narrow_synonym":       TagSynonym,
	"broad_synonym":        TagSynonym,
	"related_synonym":      TagSynonym,
	"xref":                 TagXref,
	"xref_analog":          TagXref,
	"builtin":              TagBuiltin,
	"property_value":       TagPropertyValue,
	"is_a":                 TagIsA,
	"intersection_of":      TagIntersectionOf,
	"union_of":             TagUnionOf,
	"equivalent_to":        TagEquivalentTo,
	"disjoint_from":        TagDisjointFrom,
	"relationship":         TagRelationship,
	"created_by":           TagCreatedBy,
	"creation_date":        TagCreationDate,
	"is_obsolete":          TagIsObsolete,
	"replaced_by":          TagReplacedBy,
	"consider":             TagConsider,
	"domain":               TagDomain,
	"range":                TagRange,
	"inverse_of":           TagInverseOf,
	"transitive_over":      TagTransitiveOver,
	"disjoint_over":        TagDisjointOver,
	"holds_over_chain":     TagHoldsOverChain,
	"equivalent_to_chain":  TagEquivalentToChain,
	"expand_assertion_to":  TagExpandAssertionTo,
	"expand_expression_to": TagExpandExpressionTo,
}

// legacyScopes maps the OBO 1.2 synonym tags to their scope.
var legacyScopes = map[string]record.SynonymScope{
	"exact_synonym":   record.ScopeExact,
	"narrow_synonym":  record.ScopeNarrow,
	"broad_synonym":   record.ScopeBroad,
	"related_synonym": record.ScopeRelated,
}

// Clause is one decoded frame clause. Tag selects which of the other fields
// are meaningful:
//
//	ID          id, alt_id, is_a, union_of, equivalent_to, disjoint_from,
//	            replaced_by, consider, domain, range, inverse_of,
//	            transitive_over, disjoint_over
//	Text        name, namespace, comment, subset, created_by
//	Definition  def
//	Synonym     synonym
//	Xref        xref
//	Bool        builtin, is_anonymous, is_obsolete, and Property flags
//	Date        creation_date
//	Value       property_value
//	Relation    relationship, intersection_of (empty for a genus)
//	Target      relationship, intersection_of
//	Chain       holds_over_chain, equivalent_to_chain
type Clause struct {
	Tag  Tag
	Name string
	Line int

	ID         string
	Text       string
	Definition *record.Definition
	Synonym    record.Synonym
	Xref       record.Xref
	Bool       bool
	Date       time.Time
	Value      record.PropertyValue
	Relation   string
	Target     string
	Chain      record.ChainPair
	Property   ontology.Property
}

// clauseError is a decoding failure of a single clause. Fatal ones abort the
// document; the others only produce a warning.
type clauseError struct {
	reason string
	fatal  bool
}

func (e *clauseError) Error() string { return e.reason }

func malformed(format string, args ...any) *clauseError {
	return &clauseError{reason: fmt.Sprintf(format, args...), fatal: true}
}

func unsupported(format string, args ...any) *clauseError {
	return &clauseError{reason: fmt.Sprintf(format, args...)}
}

// decodeClause turns a raw "tag: value" line into a Clause.
func decodeClause(raw rawClause) (Clause, *clauseError) {
	c := Clause{Name: raw.tag, Line: raw.line}
	propTag := raw.tag
	if propTag == "is_anti_symmetric" {
		propTag = ontology.Antisymmetric.String()
	}
	if p, ok := ontology.PropertyByTag(propTag); ok {
		c.Tag, c.Property = TagProperty, p
	} else if tag, ok := tags[raw.tag]; ok {
		c.Tag = tag
	} else {
		return c, unsupported("unknown clause %q", raw.tag)
	}

	v := raw.value
	if v == "" {
		return c, malformed("empty %s value", raw.tag)
	}

	var err *clauseError
	switch c.Tag {
	case TagID, TagAltID, TagIsA, TagUnionOf, TagEquivalentTo, TagDisjointFrom,
		TagReplacedBy, TagConsider, TagDomain, TagRange, TagInverseOf,
		TagTransitiveOver, TagDisjointOver:
		c.ID, err = identifier(v)

	case TagName, TagNamespace, TagComment, TagSubset, TagCreatedBy:
		c.Text = unescape(v)

	case TagDef:
		c.Definition, err = definition(v)

	case TagSynonym:
		c.Synonym, err = synonym(v, legacyScopes[raw.tag])

	case TagXref:
		tok := splitXref(v)
		c.Xref = record.Xref{ID: tok.id, Description: tok.desc}

	case TagBuiltin, TagIsAnonymous, TagIsObsolete, TagProperty:
		c.Bool, err = boolean(v)

	case TagCreationDate:
		c.Date, err = timestamp(v)

	case TagPropertyValue:
		c.Value, err = propertyValue(v)

	case TagRelationship:
		parts := fields(v)
		if len(parts) < 2 {
			return c, malformed("relationship needs a relation and a target")
		}
		if c.Relation, err = identifier(parts[0]); err == nil {
			c.Target, err = identifier(parts[1])
		}

	case TagIntersectionOf:
		parts := fields(v)
		switch len(parts) {
		case 1:
			c.Target, err = identifier(parts[0])
		default:
			if c.Relation, err = identifier(parts[0]); err == nil {
				c.Target, err = identifier(parts[1])
			}
		}

	case TagHoldsOverChain, TagEquivalentToChain:
		parts := fields(v)
		if len(parts) < 2 {
			return c, malformed("%s needs two relations", raw.tag)
		}
		if c.Chain.First, err = identifier(parts[0]); err == nil {
			c.Chain.Second, err = identifier(parts[1])
		}

	case TagExpandAssertionTo, TagExpandExpressionTo:
		err = unsupported("cannot process %s macro", raw.tag)
	}
	return c, err
}

func identifier(v string) (string, *clauseError) {
	parts := fields(v)
	if len(parts) == 0 {
		return "", malformed("missing identifier")
	}
	id := unescape(parts[0])
	if _, err := curie.Parse(id); err != nil {
		return "", malformed("invalid identifier %q: %v", id, err)
	}
	return id, nil
}

func boolean(v string) (bool, *clauseError) {
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, malformed("expected a boolean, got %q", v)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	dateLayout,
}

func timestamp(v string) (time.Time, *clauseError) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, unsupported("unparseable date %q", v)
}

func definition(v string) (*record.Definition, *clauseError) {
	text, rest, ok := quoted(v)
	if !ok {
		return nil, malformed("definition must be a quoted string")
	}
	def := &record.Definition{Text: text}
	if rest == "" {
		return def, nil
	}
	toks, _, ok := xrefList(rest)
	if !ok {
		return nil, malformed("expected an xref list after the definition")
	}
	for _, tok := range toks {
		def.Xrefs = record.MergeXref(def.Xrefs, record.Xref{ID: tok.id, Description: tok.desc})
	}
	return def, nil
}

func synonym(v string, scope record.SynonymScope) (record.Synonym, *clauseError) {
	text, rest, ok := quoted(v)
	if !ok {
		return record.Synonym{}, malformed("synonym must be a quoted string")
	}
	syn := record.Synonym{Description: text, Scope: scope}

	for rest != "" && !strings.HasPrefix(rest, "[") {
		word, tail, _ := strings.Cut(rest, " ")
		if s := record.SynonymScope(word); scope == record.ScopeNone && syn.Scope == record.ScopeNone && s != record.ScopeNone && s.Valid() {
			syn.Scope = s
		} else if syn.Type == "" {
			syn.Type = unescape(word)
		} else {
			return syn, malformed("unexpected %q in synonym", word)
		}
		rest = strings.TrimSpace(tail)
	}
	if rest != "" {
		toks, _, ok := xrefList(rest)
		if !ok {
			return syn, malformed("unterminated synonym xref list")
		}
		for _, tok := range toks {
			syn.Xrefs = record.MergeXref(syn.Xrefs, record.Xref{ID: tok.id, Description: tok.desc})
		}
	}
	return syn, nil
}

func propertyValue(v string) (record.PropertyValue, *clauseError) {
	prop, rest, _ := strings.Cut(v, " ")
	rest = strings.TrimSpace(rest)
	if prop == "" || rest == "" {
		return record.PropertyValue{}, malformed("property_value needs a property and a value")
	}
	prop = unescape(prop)

	if text, tail, ok := quoted(rest); ok {
		return record.LiteralValue(prop, text, unescape(tail)), nil
	}
	parts := fields(rest)
	if len(parts) >= 2 {
		return record.LiteralValue(prop, unescape(parts[0]), unescape(parts[1])), nil
	}
	return record.ResourceValue(prop, unescape(parts[0])), nil
}
