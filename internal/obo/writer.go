package obo

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

// Write serializes the entities declared by o, header first, then terms,
// then typedefs. Built-in relations and imported entities are not written.
func Write(w io.Writer, o *ontology.Ontology) error {
	bw := bufio.NewWriter(w)
	fw := &frameWriter{w: bw}

	meta := o.Metadata()
	fw.header(meta)

	kinds := []struct {
		stanza string
		kind   record.Kind
		ids    []string
	}{
		{"[Term]", record.KindTerm, entityIDs(o.DeclaredTerms())},
		{"[Typedef]", record.KindRelationship, entityIDs(o.DeclaredRelationships())},
	}
	for _, k := range kinds {
		for _, id := range k.ids {
			var (
				snap record.Record
				err  error
			)
			if k.kind == record.KindTerm {
				t, gerr := o.GetTerm(id)
				if gerr != nil {
					return gerr
				}
				snap, err = t.Snapshot()
			} else {
				rel, gerr := o.GetRelationship(id)
				if gerr != nil {
					return gerr
				}
				snap, err = rel.Snapshot()
			}
			if err != nil {
				return err
			}
			fw.line("")
			fw.line(k.stanza)
			fw.entity(&snap, o.Lineage(k.kind).Sup(id))
		}
	}

	if fw.err != nil {
		return fw.err
	}
	return bw.Flush()
}

func entityIDs[E ontology.Entity](entities []E) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID()
	}
	return ids
}

type frameWriter struct {
	w   *bufio.Writer
	err error
}

func (fw *frameWriter) line(s string) {
	if fw.err != nil {
		return
	}
	_, fw.err = fw.w.WriteString(s + "\n")
}

func (fw *frameWriter) clause(tag, value string) {
	fw.line(tag + ": " + value)
}

func (fw *frameWriter) flag(tag string, v bool) {
	if v {
		fw.clause(tag, "true")
	}
}

func (fw *frameWriter) text(tag, v string) {
	if v != "" {
		fw.clause(tag, escapeUnquoted(v))
	}
}

func (fw *frameWriter) ids(tag string, s record.Set) {
	for _, id := range s.Sorted() {
		fw.clause(tag, escapeUnquoted(id))
	}
}

func (fw *frameWriter) header(m ontology.Metadata) {
	fw.text("format-version", m.FormatVersion)
	fw.text("data-version", m.DataVersion)
	if !m.Date.IsZero() {
		fw.clause("date", m.Date.Format(dateLayout))
	}
	fw.text("saved-by", m.SavedBy)
	fw.text("auto-generated-by", m.AutoGeneratedBy)
	for _, ref := range m.Imports {
		fw.text("import", ref)
	}
	for _, s := range m.Subsets {
		fw.clause("subsetdef", escapeUnquoted(s.Name)+" "+quote(s.Description))
	}
	for _, s := range m.SynonymTypes {
		v := escapeUnquoted(s.ID) + " " + quote(s.Description)
		if s.Scope != record.ScopeNone {
			v += " " + string(s.Scope)
		}
		fw.clause("synonymtypedef", v)
	}
	fw.text("default-namespace", m.DefaultNamespace)
	fw.text("namespace-id-rule", m.NamespaceIDRule)
	for _, prefix := range slices.Sorted(maps.Keys(m.IDSpaces)) {
		space := m.IDSpaces[prefix]
		v := escapeUnquoted(prefix) + " " + escapeUnquoted(space.URL)
		if space.Description != "" {
			v += " " + quote(space.Description)
		}
		fw.clause("idspace", v)
	}
	for _, pv := range m.Annotations {
		fw.clause("property_value", propertyValueString(pv))
	}
	for _, remark := range m.Remarks {
		fw.text("remark", remark)
	}
	fw.text("ontology", m.Ontology)
	for _, axioms := range m.OWLAxioms {
		fw.text("owl-axioms", axioms)
	}
	for _, tag := range slices.Sorted(maps.Keys(m.Unreserved)) {
		for _, v := range m.Unreserved[tag] {
			fw.text(tag, v)
		}
	}
}

// entity writes the clauses of one frame in canonical order. Relationship
// clauses are empty on terms and so never written for them.
func (fw *frameWriter) entity(r *record.Record, superclasses []string) {
	fw.clause("id", escapeUnquoted(r.ID))
	fw.flag("is_anonymous", r.Anonymous)
	fw.text("name", r.Name)
	fw.text("namespace", r.Namespace)
	fw.ids("alt_id", r.AlternateIDs)
	if r.Definition != nil {
		fw.clause("def", quote(r.Definition.Text)+" "+xrefListString(r.Definition.Xrefs))
	}
	fw.text("comment", r.Comment)
	fw.ids("subset", r.Subsets)
	for _, s := range r.Synonyms {
		v := quote(s.Description)
		if s.Scope != record.ScopeNone {
			v += " " + string(s.Scope)
		}
		if s.Type != "" {
			v += " " + escapeUnquoted(s.Type)
		}
		fw.clause("synonym", v+" "+xrefListString(s.Xrefs))
	}
	for _, x := range r.Xrefs {
		fw.clause("xref", xrefString(x))
	}
	for _, pv := range r.Annotations {
		fw.clause("property_value", propertyValueString(pv))
	}
	fw.text("domain", r.Domain)
	fw.text("range", r.Range)
	fw.flag("builtin", r.Builtin)
	for _, c := range r.HoldsOverChain {
		fw.clause("holds_over_chain", c.First+" "+c.Second)
	}
	fw.flag("is_anti_symmetric", r.Antisymmetric)
	fw.flag("is_cyclic", r.Cyclic)
	fw.flag("is_reflexive", r.Reflexive)
	fw.flag("is_symmetric", r.Symmetric)
	fw.flag("is_asymmetric", r.Asymmetric)
	fw.flag("is_transitive", r.Transitive)
	fw.flag("is_functional", r.Functional)
	fw.flag("is_inverse_functional", r.InverseFunctional)
	for _, parent := range superclasses {
		fw.clause("is_a", escapeUnquoted(parent))
	}
	for _, part := range r.IntersectionOf {
		if part.Relation == "" {
			fw.clause("intersection_of", part.Target)
		} else {
			fw.clause("intersection_of", part.Relation+" "+part.Target)
		}
	}
	fw.ids("union_of", r.UnionOf)
	fw.ids("equivalent_to", r.EquivalentTo)
	fw.ids("disjoint_from", r.DisjointFrom)
	fw.text("inverse_of", r.InverseOf)
	fw.ids("transitive_over", r.TransitiveOver)
	for _, c := range r.EquivalentToChain {
		fw.clause("equivalent_to_chain", c.First+" "+c.Second)
	}
	fw.ids("disjoint_over", r.DisjointOver)
	for _, rel := range r.RelationIDs() {
		for _, target := range r.Relationships[rel].Sorted() {
			fw.clause("relationship", rel+" "+target)
		}
	}
	fw.flag("is_obsolete", r.Obsolete)
	fw.text("created_by", r.CreatedBy)
	if !r.CreationDate.IsZero() {
		fw.clause("creation_date", r.CreationDate.Format(time.RFC3339))
	}
	fw.ids("replaced_by", r.ReplacedBy)
	fw.ids("consider", r.Consider)
	fw.flag("is_metadata_tag", r.MetadataTag)
	fw.flag("is_class_level", r.ClassLevel)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

var unquotedEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, `!`, `\!`, `{`, `\{`, `"`, `\"`)

func escapeUnquoted(s string) string {
	return unquotedEscaper.Replace(s)
}

var xrefEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, " ", `\W`, "]", `\]`, `"`, `\"`, `!`, `\!`, `{`, `\{`)

func xrefString(x record.Xref) string {
	if x.Description == "" {
		return xrefEscaper.Replace(x.ID)
	}
	return xrefEscaper.Replace(x.ID) + " " + quote(x.Description)
}

func xrefListString(xrefs []record.Xref) string {
	parts := make([]string, len(xrefs))
	for i, x := range xrefs {
		parts[i] = xrefString(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func propertyValueString(pv record.PropertyValue) string {
	if pv.IsResource() {
		return fmt.Sprintf("%s %s", escapeUnquoted(pv.Property), escapeUnquoted(pv.Resource))
	}
	datatype := pv.Datatype
	if datatype == "" {
		datatype = record.XSDString
	}
	return fmt.Sprintf("%s %s %s", escapeUnquoted(pv.Property), quote(pv.Literal), datatype)
}
