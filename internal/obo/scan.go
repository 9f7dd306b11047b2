package obo

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
)

const maxLineSize = 4 << 20

// frameKind tells the stanzas of a document apart.
type frameKind int

const (
	frameHeader frameKind = iota
	frameTerm
	frameTypedef
	frameInstance
)

func (k frameKind) String() string {
	switch k {
	case frameTerm:
		return "term"
	case frameTypedef:
		return "typedef"
	case frameInstance:
		return "instance"
	default:
		return "header"
	}
}

var stanzas = map[string]frameKind{
	"[Term]":     frameTerm,
	"[Typedef]":  frameTypedef,
	"[Instance]": frameInstance,
}

// rawClause is one "tag: value" line with comments and trailing qualifiers
// already removed. value is still escaped.
type rawClause struct {
	line  int
	tag   string
	value string
	text  string
}

type frame struct {
	kind    frameKind
	line    int
	clauses []rawClause
}

// scanner splits a document into frames. The first frame is always the
// header, possibly empty.
type scanner struct {
	path    string
	lines   *bufio.Scanner
	lineNo  int
	pending *frame
	started bool
	err     error
}

func newScanner(r io.Reader, path string) *scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &scanner{path: path, lines: lines}
}

// next returns the next frame, or false at the end of the document or on
// error.
func (s *scanner) next() (frame, bool) {
	if s.err != nil {
		return frame{}, false
	}
	if !s.started {
		s.started = true
		s.pending = &frame{kind: frameHeader, line: 1}
	}
	if s.pending == nil {
		return frame{}, false
	}

	for s.lines.Scan() {
		s.lineNo++
		text := s.lines.Text()
		if s.lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed[0] == '!' {
			continue
		}

		if trimmed[0] == '[' {
			kind, ok := stanzas[trimmed]
			if !ok {
				s.err = ontoerr.Malformed(s.path, s.lineNo, 1, trimmed, "unknown stanza")
				return frame{}, false
			}
			done := *s.pending
			s.pending = &frame{kind: kind, line: s.lineNo}
			return done, true
		}

		tag, value, ok := strings.Cut(trimmed, ":")
		tag = strings.TrimSpace(tag)
		if !ok || tag == "" || strings.ContainsAny(tag, " \t") {
			s.err = ontoerr.Malformed(s.path, s.lineNo, 1, trimmed, "expected a tag-value pair")
			return frame{}, false
		}
		s.pending.clauses = append(s.pending.clauses, rawClause{
			line:  s.lineNo,
			tag:   tag,
			value: stripTrailing(value),
			text:  trimmed,
		})
	}
	if err := s.lines.Err(); err != nil {
		s.err = err
		return frame{}, false
	}

	done := *s.pending
	s.pending = nil
	return done, true
}

// stripTrailing removes an unescaped, unquoted "!" comment and a trailing
// "{...}" qualifier block.
func stripTrailing(value string) string {
	value = strings.TrimSpace(value)
	inQuote, escaped := false, false
	openBrace := -1
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '!':
			value = value[:i]
		case c == '{':
			openBrace = i
		}
	}
	value = strings.TrimSpace(value)
	if openBrace >= 0 && openBrace < len(value) && strings.HasSuffix(value, "}") {
		value = strings.TrimSpace(value[:openBrace])
	}
	return value
}

// unescape resolves OBO escape sequences.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'W':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// quoted reads a leading quoted string and returns its unescaped content and
// the trimmed remainder.
func quoted(s string) (text, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return "", s, false
	}
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return unescape(s[1:i]), strings.TrimSpace(s[i+1:]), true
		}
	}
	return "", s, false
}

// fields splits on unescaped whitespace outside quotes and brackets.
func fields(s string) []string {
	var out []string
	start := -1
	depth, inQuote, escaped := 0, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			depth++
		case c == ']' && depth > 0:
			depth--
		case (c == ' ' || c == '\t') && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// xrefList parses "[ID "desc", ID]" and returns the trimmed remainder.
func xrefList(s string) (xrefs []xrefToken, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil, s, false
	}
	inQuote, escaped := false, false
	itemStart := 1
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == ',' || c == ']':
			if item := strings.TrimSpace(s[itemStart:i]); item != "" {
				xrefs = append(xrefs, splitXref(item))
			}
			itemStart = i + 1
			if c == ']' {
				return xrefs, strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return nil, s, false
}

type xrefToken struct {
	id   string
	desc string
}

// splitXref separates an xref id from its optional quoted description.
func splitXref(item string) xrefToken {
	escaped := false
	for i := 0; i < len(item); i++ {
		switch {
		case escaped:
			escaped = false
		case item[i] == '\\':
			escaped = true
		case item[i] == ' ' || item[i] == '\t' || item[i] == '"':
			desc, _, _ := quoted(item[i:])
			return xrefToken{id: unescape(strings.TrimSpace(item[:i])), desc: desc}
		}
	}
	return xrefToken{id: unescape(item)}
}

// CanRead reports whether head looks like the start of an OBO document.
func CanRead(head []byte) bool {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	for len(head) > 0 {
		head = bytes.TrimLeft(head, " \t\r\n")
		if len(head) == 0 || head[0] != '!' {
			break
		}
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			head = head[i+1:]
		} else {
			head = nil
		}
	}
	for _, prefix := range []string{"[Term", "[Typedef"} {
		if bytes.HasPrefix(head, []byte(prefix)) {
			return true
		}
	}
	tag, _, ok := bytes.Cut(head, []byte(":"))
	if !ok {
		return false
	}
	_, known := headerTags[string(tag)]
	return known
}

// headerTags are the tags a header frame may open with.
var headerTags = map[string]struct{}{
	"format-version": {}, "data-version": {}, "date": {}, "saved-by": {},
	"auto-generated-by": {}, "import": {}, "subsetdef": {}, "synonymtypedef": {},
	"default-namespace": {}, "namespace-id-rule": {}, "idspace": {}, "remark": {},
	"ontology": {}, "owl-axioms": {}, "property_value": {},
	"treat-xrefs-as-equivalent": {}, "treat-xrefs-as-genus-differentia": {},
	"treat-xrefs-as-has-subclass": {}, "treat-xrefs-as-is_a": {},
	"treat-xrefs-as-relationship": {}, "treat-xrefs-as-reverse-genus-differentia": {},
}
