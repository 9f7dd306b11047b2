package cli

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

type countView struct {
	Declared int `yaml:"declared"`
	Total    int `yaml:"total"`
}

type statsView struct {
	Location      string    `yaml:"location"`
	Instance      string    `yaml:"instance"`
	FormatVersion string    `yaml:"format_version"`
	DataVersion   string    `yaml:"data_version,omitempty"`
	Ontology      string    `yaml:"ontology,omitempty"`
	Terms         countView `yaml:"terms"`
	Relationships countView `yaml:"relationships"`
	Imports       []string  `yaml:"imports,omitempty"`
	Subsets       []string  `yaml:"subsets,omitempty"`
	Warnings      int       `yaml:"warnings"`
}

func newStatsView(location string, o *ontology.Ontology, warnings int) statsView {
	meta := o.Metadata()
	v := statsView{
		Location:      location,
		Instance:      o.InstanceID().String(),
		FormatVersion: meta.FormatVersion,
		DataVersion:   meta.DataVersion,
		Ontology:      meta.Ontology,
		Terms:         countView{Declared: len(o.DeclaredTerms()), Total: len(o.Terms())},
		Relationships: countView{Declared: len(o.DeclaredRelationships()), Total: len(o.Relationships())},
		Imports:       o.ImportRefs(),
		Warnings:      warnings,
	}
	for _, s := range meta.Subsets {
		v.Subsets = append(v.Subsets, s.Name)
	}
	return v
}

type synonymView struct {
	Text  string   `yaml:"text"`
	Scope string   `yaml:"scope,omitempty"`
	Type  string   `yaml:"type,omitempty"`
	Xrefs []string `yaml:"xrefs,omitempty"`
}

type definitionView struct {
	Text  string   `yaml:"text"`
	Xrefs []string `yaml:"xrefs,omitempty"`
}

// entityView mirrors the OBO clause names so the output reads like a frame.
type entityView struct {
	ID             string              `yaml:"id"`
	Kind           string              `yaml:"kind"`
	Name           string              `yaml:"name,omitempty"`
	Namespace      string              `yaml:"namespace,omitempty"`
	AltIDs         []string            `yaml:"alt_id,omitempty"`
	Definition     *definitionView     `yaml:"def,omitempty"`
	Comment        string              `yaml:"comment,omitempty"`
	Subsets        []string            `yaml:"subset,omitempty"`
	Synonyms       []synonymView       `yaml:"synonym,omitempty"`
	Xrefs          []string            `yaml:"xref,omitempty"`
	Annotations    []string            `yaml:"property_value,omitempty"`
	Builtin        bool                `yaml:"builtin,omitempty"`
	Anonymous      bool                `yaml:"is_anonymous,omitempty"`
	Domain         string              `yaml:"domain,omitempty"`
	Range          string              `yaml:"range,omitempty"`
	Properties     []string            `yaml:"properties,omitempty"`
	IsA            []string            `yaml:"is_a,omitempty"`
	IntersectionOf []string            `yaml:"intersection_of,omitempty"`
	UnionOf        []string            `yaml:"union_of,omitempty"`
	EquivalentTo   []string            `yaml:"equivalent_to,omitempty"`
	DisjointFrom   []string            `yaml:"disjoint_from,omitempty"`
	InverseOf      string              `yaml:"inverse_of,omitempty"`
	TransitiveOver []string            `yaml:"transitive_over,omitempty"`
	DisjointOver   []string            `yaml:"disjoint_over,omitempty"`
	HoldsOverChain []string            `yaml:"holds_over_chain,omitempty"`
	Relationships  map[string][]string `yaml:"relationship,omitempty"`
	Obsolete       bool                `yaml:"is_obsolete,omitempty"`
	ReplacedBy     []string            `yaml:"replaced_by,omitempty"`
	Consider       []string            `yaml:"consider,omitempty"`
	CreatedBy      string              `yaml:"created_by,omitempty"`
	CreationDate   string              `yaml:"creation_date,omitempty"`
}

func newEntityView(r *record.Record, superclasses []string) entityView {
	v := entityView{
		ID:             r.ID,
		Kind:           r.Kind.String(),
		Name:           r.Name,
		Namespace:      r.Namespace,
		AltIDs:         r.AlternateIDs.Sorted(),
		Comment:        r.Comment,
		Subsets:        r.Subsets.Sorted(),
		Xrefs:          xrefIDs(r.Xrefs),
		Builtin:        r.Builtin,
		Anonymous:      r.Anonymous,
		Domain:         r.Domain,
		Range:          r.Range,
		IsA:            superclasses,
		UnionOf:        r.UnionOf.Sorted(),
		EquivalentTo:   r.EquivalentTo.Sorted(),
		DisjointFrom:   r.DisjointFrom.Sorted(),
		InverseOf:      r.InverseOf,
		TransitiveOver: r.TransitiveOver.Sorted(),
		DisjointOver:   r.DisjointOver.Sorted(),
		Obsolete:       r.Obsolete,
		ReplacedBy:     r.ReplacedBy.Sorted(),
		Consider:       r.Consider.Sorted(),
		CreatedBy:      r.CreatedBy,
	}
	if r.Definition != nil {
		v.Definition = &definitionView{Text: r.Definition.Text, Xrefs: xrefIDs(r.Definition.Xrefs)}
	}
	for _, s := range r.Synonyms {
		v.Synonyms = append(v.Synonyms, synonymView{
			Text:  s.Description,
			Scope: string(s.Scope),
			Type:  s.Type,
			Xrefs: xrefIDs(s.Xrefs),
		})
	}
	for _, pv := range r.Annotations {
		value := pv.Resource
		if value == "" {
			value = fmt.Sprintf("%q %s", pv.Literal, pv.Datatype)
		}
		v.Annotations = append(v.Annotations, pv.Property+" "+value)
	}
	for _, p := range ontology.Properties {
		if propertyOf(r, p) {
			v.Properties = append(v.Properties, p.String())
		}
	}
	for _, part := range r.IntersectionOf {
		if part.Relation == "" {
			v.IntersectionOf = append(v.IntersectionOf, part.Target)
		} else {
			v.IntersectionOf = append(v.IntersectionOf, part.Relation+" "+part.Target)
		}
	}
	for _, c := range r.HoldsOverChain {
		v.HoldsOverChain = append(v.HoldsOverChain, c.First+" "+c.Second)
	}
	if len(r.Relationships) > 0 {
		v.Relationships = make(map[string][]string, len(r.Relationships))
		for _, rel := range r.RelationIDs() {
			v.Relationships[rel] = r.Relationships[rel].Sorted()
		}
	}
	if !r.CreationDate.IsZero() {
		v.CreationDate = r.CreationDate.Format(time.RFC3339)
	}
	return v
}

func propertyOf(r *record.Record, p ontology.Property) bool {
	switch p {
	case ontology.Transitive:
		return r.Transitive
	case ontology.Symmetric:
		return r.Symmetric
	case ontology.Reflexive:
		return r.Reflexive
	case ontology.Asymmetric:
		return r.Asymmetric
	case ontology.Antisymmetric:
		return r.Antisymmetric
	case ontology.Functional:
		return r.Functional
	case ontology.InverseFunctional:
		return r.InverseFunctional
	case ontology.Cyclic:
		return r.Cyclic
	case ontology.ClassLevel:
		return r.ClassLevel
	default:
		return r.MetadataTag
	}
}

func xrefIDs(xrefs []record.Xref) []string {
	var ids []string
	for _, x := range xrefs {
		ids = append(ids, x.ID)
	}
	return ids
}

// writeYAML encodes v as one YAML document with two-space indentation.
func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
