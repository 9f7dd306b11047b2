package ontology

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
)

// DefaultFormatVersion is assumed when a document does not declare one.
const DefaultFormatVersion = "1.4"

// Subset is a declared subset (slim) that terms may belong to.
type Subset struct {
	Name        string
	Description string
}

// SynonymType is a declared synonym category with an optional default scope.
type SynonymType struct {
	ID          string
	Description string
	Scope       record.SynonymScope
}

// IDSpace maps a prefix to the base URL of its identifiers.
type IDSpace struct {
	URL         string
	Description string
}

// Metadata describes the document a graph was built from. Subsets and
// SynonymTypes are the vocabulary entity setters validate against.
type Metadata struct {
	FormatVersion    string
	DataVersion      string
	Ontology         string
	Date             time.Time
	DefaultNamespace string
	NamespaceIDRule  string
	SavedBy          string
	AutoGeneratedBy  string
	Subsets          []Subset
	SynonymTypes     []SynonymType
	Imports          []string
	IDSpaces         map[string]IDSpace
	Remarks          []string
	OWLAxioms        []string
	Annotations      []record.PropertyValue
	Unreserved       map[string][]string
}

// NewMetadata returns metadata with the default format version.
func NewMetadata() Metadata {
	return Metadata{
		FormatVersion: DefaultFormatVersion,
		IDSpaces:      map[string]IDSpace{},
		Unreserved:    map[string][]string{},
	}
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	c := m
	c.Subsets = slices.Clone(m.Subsets)
	c.SynonymTypes = slices.Clone(m.SynonymTypes)
	c.Imports = slices.Clone(m.Imports)
	c.IDSpaces = maps.Clone(m.IDSpaces)
	if c.IDSpaces == nil {
		c.IDSpaces = map[string]IDSpace{}
	}
	c.Remarks = slices.Clone(m.Remarks)
	c.OWLAxioms = slices.Clone(m.OWLAxioms)
	c.Annotations = slices.Clone(m.Annotations)
	c.Unreserved = make(map[string][]string, len(m.Unreserved))
	for k, v := range m.Unreserved {
		c.Unreserved[k] = slices.Clone(v)
	}
	return c
}

// HasSubset reports whether name is a declared subset.
func (m *Metadata) HasSubset(name string) bool {
	return slices.ContainsFunc(m.Subsets, func(s Subset) bool { return s.Name == name })
}

// SynonymType looks up a declared synonym type.
func (m *Metadata) SynonymType(id string) (SynonymType, bool) {
	i := slices.IndexFunc(m.SynonymTypes, func(s SynonymType) bool { return s.ID == id })
	if i < 0 {
		return SynonymType{}, false
	}
	return m.SynonymTypes[i], true
}

// IDSpaceURLs flattens IDSpaces for identifier expansion.
func (m *Metadata) IDSpaceURLs() map[string]string {
	out := make(map[string]string, len(m.IDSpaces))
	for prefix, space := range m.IDSpaces {
		out[prefix] = space.URL
	}
	return out
}

// Metadata returns a copy of the metadata slot.
func (o *Ontology) Metadata() Metadata {
	o.metaMu.RLock()
	defer o.metaMu.RUnlock()
	return o.meta.Clone()
}

// SetMetadata fills the metadata slot. It may be called once per graph,
// before frames are ingested; later edits go through UpdateMetadata.
func (o *Ontology) SetMetadata(m Metadata) error {
	o.metaMu.Lock()
	defer o.metaMu.Unlock()
	if o.metaSet {
		return ontoerr.ErrMetadataAlreadySet
	}
	if m.FormatVersion == "" {
		m.FormatVersion = DefaultFormatVersion
	}
	o.meta = m.Clone()
	o.metaSet = true
	return nil
}

// UpdateMetadata edits the metadata slot in place.
func (o *Ontology) UpdateMetadata(fn func(m *Metadata)) {
	o.metaMu.Lock()
	defer o.metaMu.Unlock()
	fn(&o.meta)
}

// DeclareSubset adds a subset definition, or updates its description.
func (o *Ontology) DeclareSubset(name, description string) error {
	if name == "" {
		return fmt.Errorf("declare subset: empty name: %w", ontoerr.ErrInvalidValue)
	}
	o.UpdateMetadata(func(m *Metadata) {
		for i := range m.Subsets {
			if m.Subsets[i].Name == name {
				m.Subsets[i].Description = description
				return
			}
		}
		m.Subsets = append(m.Subsets, Subset{Name: name, Description: description})
	})
	return nil
}

// DeclareSynonymType adds a synonym type definition, or updates it.
func (o *Ontology) DeclareSynonymType(id, description string, scope record.SynonymScope) error {
	if id == "" {
		return fmt.Errorf("declare synonym type: empty id: %w", ontoerr.ErrInvalidValue)
	}
	if !scope.Valid() {
		return fmt.Errorf("declare synonym type %q: scope %q: %w", id, scope, ontoerr.ErrInvalidValue)
	}
	o.UpdateMetadata(func(m *Metadata) {
		for i := range m.SynonymTypes {
			if m.SynonymTypes[i].ID == id {
				m.SynonymTypes[i] = SynonymType{ID: id, Description: description, Scope: scope}
				return
			}
		}
		m.SynonymTypes = append(m.SynonymTypes, SynonymType{ID: id, Description: description, Scope: scope})
	})
	return nil
}

func (o *Ontology) hasSubset(name string) bool {
	o.metaMu.RLock()
	defer o.metaMu.RUnlock()
	return o.meta.HasSubset(name)
}

func (o *Ontology) synonymType(id string) (SynonymType, bool) {
	o.metaMu.RLock()
	defer o.metaMu.RUnlock()
	return o.meta.SynonymType(id)
}
