package ontology

import (
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// Term is a view of a class of the ontology.
type Term struct {
	base[*Term]
}

func newTerm(r graphRef, id string) *Term {
	return &Term{base[*Term]{r: r, id: id}}
}

// Superclasses walks up the is_a lineage. With no options the walk is
// unbounded and includes the term itself.
func (t *Term) Superclasses(opts ...traverse.Option) *LineageHandler[*Term] {
	return t.lineageHandler(true, opts)
}

// Subclasses walks down the is_a lineage.
func (t *Term) Subclasses(opts ...traverse.Option) *LineageHandler[*Term] {
	return t.lineageHandler(false, opts)
}

// IsLeaf reports whether the term has no subclass.
func (t *Term) IsLeaf() (bool, error) {
	o, err := t.Ontology()
	if err != nil {
		return false, err
	}
	return len(o.lineage(t.Kind()).Sub(t.id)) == 0, nil
}

// IsRoot reports whether the term has no superclass.
func (t *Term) IsRoot() (bool, error) {
	o, err := t.Ontology()
	if err != nil {
		return false, err
	}
	return len(o.lineage(t.Kind()).Sup(t.id)) == 0, nil
}
