// Package curie classifies entity identifiers and expands compact ones.
//
// Identifiers come in three shapes: a compact prefixed form (`GO:0008150`), a
// full URL (`http://purl.obolibrary.org/obo/GO_0008150`) and an unprefixed
// local name (`part_of`). All three may appear in one graph.
package curie

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// OBOPurl is the base of the default URL expansion for prefixed identifiers.
const OBOPurl = "http://purl.obolibrary.org/obo/"

// Form is the syntactic shape of an identifier.
type Form int

const (
	Unprefixed Form = iota
	Prefixed
	URL
)

func (f Form) String() string {
	switch f {
	case Prefixed:
		return "prefixed"
	case URL:
		return "url"
	default:
		return "unprefixed"
	}
}

// schemeRegex matches the scheme of an absolute URL, e.g. `http://` or `urn:`.
var schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// ID is a parsed identifier.
type ID struct {
	Raw    string
	Form   Form
	Prefix string
	Local  string
}

// Parse classifies rawID. Empty ids and ids containing whitespace are rejected.
func Parse(rawID string) (ID, error) {
	if rawID == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}
	if i := strings.IndexFunc(rawID, unicode.IsSpace); i >= 0 {
		return ID{}, fmt.Errorf("identifier %q contains whitespace at offset %d", rawID, i)
	}

	if schemeRegex.MatchString(rawID) {
		return ID{Raw: rawID, Form: URL}, nil
	}

	prefix, local, ok := strings.Cut(rawID, ":")
	if !ok || prefix == "" {
		return ID{Raw: rawID, Form: Unprefixed, Local: rawID}, nil
	}
	return ID{Raw: rawID, Form: Prefixed, Prefix: prefix, Local: local}, nil
}

// String returns the identifier as written.
func (id ID) String() string {
	return id.Raw
}

// Expand returns the URL form of the identifier. idspaces maps a prefix to
// its declared base URL; ontology names the document that owns unprefixed ids.
func (id ID) Expand(idspaces map[string]string, ontology string) string {
	switch id.Form {
	case URL:
		return id.Raw
	case Prefixed:
		if base, ok := idspaces[id.Prefix]; ok {
			return base + id.Local
		}
		return OBOPurl + id.Prefix + "_" + id.Local
	default:
		if ontology == "" {
			return id.Raw
		}
		return OBOPurl + ontology + "#" + id.Local
	}
}

// Valid reports whether rawID is an acceptable identifier.
func Valid(rawID string) bool {
	_, err := Parse(rawID)
	return err == nil
}
