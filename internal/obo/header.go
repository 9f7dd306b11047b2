package obo

import (
	"context"
	"strings"
	"time"

	"github.com/specialistvlad/ontograph/internal/diag"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

// dateLayout is the header date format, "dd:MM:yyyy HH:mm".
const dateLayout = "02:01:2006 15:04"

// decodeHeader builds the graph metadata from the header frame.
func (r *Reader) decodeHeader(ctx context.Context, path string, f frame) (ontology.Metadata, error) {
	meta := ontology.NewMetadata()
	meta.Unreserved = map[string][]string{}

	for _, c := range f.clauses {
		bad := func(reason string) error {
			return ontoerr.Malformed(path, c.line, len(c.tag)+2, c.text, reason)
		}
		v := c.value

		switch c.tag {
		case "format-version":
			meta.FormatVersion = v
		case "data-version":
			meta.DataVersion = unescape(v)
		case "date":
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				r.warn(ctx, diag.Warning{Path: path, Line: c.line, Message: "unparseable header date " + v})
				continue
			}
			meta.Date = t
		case "saved-by":
			meta.SavedBy = unescape(v)
		case "auto-generated-by":
			meta.AutoGeneratedBy = unescape(v)
		case "import":
			meta.Imports = appendUnique(meta.Imports, unescape(v))
		case "subsetdef":
			name, rest, _ := strings.Cut(v, " ")
			desc, _, ok := quoted(rest)
			if name == "" || !ok {
				return meta, bad("subsetdef needs a name and a quoted description")
			}
			meta.Subsets = append(meta.Subsets, ontology.Subset{Name: unescape(name), Description: desc})
		case "synonymtypedef":
			id, rest, _ := strings.Cut(v, " ")
			desc, tail, ok := quoted(rest)
			if id == "" || !ok {
				return meta, bad("synonymtypedef needs an id and a quoted description")
			}
			scope := record.SynonymScope(tail)
			if !scope.Valid() {
				return meta, bad("invalid synonym scope " + tail)
			}
			meta.SynonymTypes = append(meta.SynonymTypes, ontology.SynonymType{ID: unescape(id), Description: desc, Scope: scope})
		case "default-namespace":
			meta.DefaultNamespace = unescape(v)
		case "namespace-id-rule":
			meta.NamespaceIDRule = unescape(v)
		case "idspace":
			parts := fields(v)
			if len(parts) < 2 {
				return meta, bad("idspace needs a prefix and a URL")
			}
			space := ontology.IDSpace{URL: unescape(parts[1])}
			if len(parts) > 2 {
				desc, _, ok := quoted(strings.Join(parts[2:], " "))
				if !ok {
					return meta, bad("idspace description must be quoted")
				}
				space.Description = desc
			}
			meta.IDSpaces[unescape(parts[0])] = space
		case "remark":
			meta.Remarks = appendUnique(meta.Remarks, unescape(v))
		case "ontology":
			meta.Ontology = unescape(v)
		case "owl-axioms":
			meta.OWLAxioms = append(meta.OWLAxioms, unescape(v))
		case "property_value":
			pv, err := propertyValue(v)
			if err != nil {
				return meta, bad(err.reason)
			}
			meta.Annotations = record.AddAnnotation(meta.Annotations, pv)
		case "treat-xrefs-as-equivalent", "treat-xrefs-as-genus-differentia",
			"treat-xrefs-as-has-subclass", "treat-xrefs-as-is_a",
			"treat-xrefs-as-relationship", "treat-xrefs-as-reverse-genus-differentia":
			r.warn(ctx, diag.Warning{Path: path, Line: c.line, Message: "cannot process " + c.tag + " macro"})
		default:
			meta.Unreserved[c.tag] = appendUnique(meta.Unreserved[c.tag], unescape(v))
		}
	}
	return meta, nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
