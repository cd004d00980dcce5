// Package symbols builds the asset id to display name table of a bundle.
package symbols

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/1siamBot/furni-extractor/engine/swf"
)

// Separator joins the bundle base name and the asset name in a
// qualified class name, e.g. "chair_door" in bundle "chair".
const Separator = "_"

// NameTooShortError reports a qualified name that cannot carry the
// bundle prefix
type NameTooShortError struct {
	AssetID   uint16
	Name      string
	PrefixLen int
}

func (e *NameTooShortError) Error() string {
	return fmt.Sprintf("symbols: name %q for asset %d is shorter than the %d-character bundle prefix",
		e.Name, e.AssetID, e.PrefixLen)
}

// IsNameTooShort reports whether err is or wraps a *NameTooShortError
func IsNameTooShort(err error) bool {
	var short *NameTooShortError
	return errors.As(err, &short)
}

// Table maps asset ids to trimmed names. The zero value is an empty table.
type Table struct {
	names map[uint16]string
	order []uint16
}

// Build scans every SymbolClass record in tags and returns the complete
// table. The first name seen for an id wins; later ones are dropped.
func Build(tags []swf.Tag, baseName string) (*Table, error) {
	prefixLen := utf8.RuneCountInString(baseName + Separator)
	t := &Table{names: make(map[uint16]string)}
	for _, tag := range tags {
		sc, ok := tag.(*swf.SymbolClass)
		if !ok {
			continue
		}
		for _, sym := range sc.Symbols {
			name, ok := trimPrefix(sym.Name, prefixLen)
			if !ok {
				return nil, &NameTooShortError{AssetID: sym.ID, Name: sym.Name, PrefixLen: prefixLen}
			}
			if _, seen := t.names[sym.ID]; seen {
				continue
			}
			t.names[sym.ID] = name
			t.order = append(t.order, sym.ID)
		}
	}
	return t, nil
}

// trimPrefix drops the first n characters of name. The prefix is removed
// by length only; its content is not checked against the base name.
func trimPrefix(name string, n int) (string, bool) {
	for i := range name {
		if n == 0 {
			return name[i:], true
		}
		n--
	}
	return "", n == 0
}

// Lookup returns the trimmed name registered for id
func (t *Table) Lookup(id uint16) (string, bool) {
	if t == nil || t.names == nil {
		return "", false
	}
	name, ok := t.names[id]
	return name, ok
}

// Len returns the number of registered ids
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// IDs returns registered ids in declaration order
func (t *Table) IDs() []uint16 {
	if t == nil {
		return nil
	}
	return append([]uint16(nil), t.order...)
}
