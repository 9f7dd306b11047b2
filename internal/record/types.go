package record

import (
	"slices"
	"strings"
)

// Kind separates terms from relationships. Both share one id namespace.
type Kind uint8

const (
	KindTerm Kind = iota
	KindRelationship
)

func (k Kind) String() string {
	if k == KindRelationship {
		return "relationship"
	}
	return "term"
}

// Set is an unordered set of identifiers.
type Set map[string]struct{}

// NewSet builds a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Add(id string)      { s[id] = struct{}{} }
func (s Set) Remove(id string)   { delete(s, id) }
func (s Set) Has(id string) bool { _, ok := s[id]; return ok }
func (s Set) Len() int           { return len(s) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy; cloning a nil set yields an empty one.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Xref is a cross-reference to an external resource. Two xrefs are the same
// reference when their ids match.
type Xref struct {
	ID          string
	Description string
}

// Definition is a textual definition backed by its own cross-references.
type Definition struct {
	Text  string
	Xrefs []Xref
}

// Clone returns a deep copy; nil stays nil.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	return &Definition{Text: d.Text, Xrefs: slices.Clone(d.Xrefs)}
}

// SynonymScope qualifies how closely a synonym matches the entity name.
type SynonymScope string

const (
	ScopeNone    SynonymScope = ""
	ScopeExact   SynonymScope = "EXACT"
	ScopeRelated SynonymScope = "RELATED"
	ScopeBroad   SynonymScope = "BROAD"
	ScopeNarrow  SynonymScope = "NARROW"
)

// Valid reports whether s is one of the four scopes or unset.
func (s SynonymScope) Valid() bool {
	switch s {
	case ScopeNone, ScopeExact, ScopeRelated, ScopeBroad, ScopeNarrow:
		return true
	}
	return false
}

// Synonym is an alternative label. Description and Scope identify it within
// an entity's synonym set.
type Synonym struct {
	Description string
	Scope       SynonymScope
	Type        string
	Xrefs       []Xref
}

func (s Synonym) sameAs(other Synonym) bool {
	return s.Description == other.Description && s.Scope == other.Scope
}

// Clone returns a deep copy.
func (s Synonym) Clone() Synonym {
	s.Xrefs = slices.Clone(s.Xrefs)
	return s
}

// XSDString is the default datatype of literal property values.
const XSDString = "xsd:string"

// PropertyValue is an annotation: a property paired with either a typed
// literal or a resource identifier.
type PropertyValue struct {
	Property string
	Literal  string
	Datatype string
	Resource string
}

// LiteralValue builds a literal annotation; an empty datatype means xsd:string.
func LiteralValue(property, literal, datatype string) PropertyValue {
	if datatype == "" {
		datatype = XSDString
	}
	return PropertyValue{Property: property, Literal: literal, Datatype: datatype}
}

// ResourceValue builds a resource annotation.
func ResourceValue(property, resource string) PropertyValue {
	return PropertyValue{Property: property, Resource: resource}
}

// IsResource reports whether the annotation points at a resource.
func (p PropertyValue) IsResource() bool {
	return p.Resource != ""
}

// IntersectionPart is one operand of an intersection_of axiom. Relation is
// empty for the genus part.
type IntersectionPart struct {
	Relation string
	Target   string
}

// ChainPair is an ordered pair of relation ids, used by holds_over_chain and
// equivalent_to_chain.
type ChainPair struct {
	First  string
	Second string
}

// SortXrefs orders xrefs by id.
func SortXrefs(xrefs []Xref) {
	slices.SortFunc(xrefs, func(a, b Xref) int { return strings.Compare(a.ID, b.ID) })
}

// MergeXref inserts x, replacing any xref with the same id.
func MergeXref(xrefs []Xref, x Xref) []Xref {
	for i := range xrefs {
		if xrefs[i].ID == x.ID {
			xrefs[i] = x
			return xrefs
		}
	}
	return append(xrefs, x)
}

// MergeSynonym inserts s, replacing any synonym with the same description and scope.
func MergeSynonym(synonyms []Synonym, s Synonym) []Synonym {
	for i := range synonyms {
		if synonyms[i].sameAs(s) {
			synonyms[i] = s
			return synonyms
		}
	}
	return append(synonyms, s)
}

// appendUnique appends v when it is not already present.
func appendUnique[T comparable](values []T, v T) []T {
	if slices.Contains(values, v) {
		return values
	}
	return append(values, v)
}

// AddAnnotation inserts p unless an identical annotation exists.
func AddAnnotation(values []PropertyValue, p PropertyValue) []PropertyValue {
	return appendUnique(values, p)
}

// AddIntersection inserts part unless already present.
func AddIntersection(values []IntersectionPart, part IntersectionPart) []IntersectionPart {
	return appendUnique(values, part)
}

// AddChain inserts pair unless already present.
func AddChain(values []ChainPair, pair ChainPair) []ChainPair {
	return appendUnique(values, pair)
}
