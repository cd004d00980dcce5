// Package catalog reads the furnidata index that lists every furniture
// bundle of a zone.
package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// FileName is the cached catalog file in each zone directory
const FileName = "furnidata.xml"

// Item is one furnitype entry
type Item struct {
	ID          uint32 `xml:"id,attr"`
	ClassName   string `xml:"classname,attr"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Revision    uint32 `xml:"revision"`
	CanStandOn  *bool  `xml:"canstandon"`
	// Wall is set for items listed under wallitemtypes.
	Wall bool `xml:"-"`
}

// BundleName is the class name up to the first '*'. Color variants of
// one piece of furniture share a bundle.
func (i Item) BundleName() string {
	name, _, _ := strings.Cut(i.ClassName, "*")
	return name
}

type document struct {
	XMLName xml.Name `xml:"furnidata"`
	Room    []Item   `xml:"roomitemtypes>furnitype"`
	Wall    []Item   `xml:"wallitemtypes>furnitype"`
}

// Catalog is the merged list of room and wall items
type Catalog struct {
	// Items are ordered by id. When an id repeats the first entry wins,
	// room items before wall items.
	Items []Item
	// Skipped lists items without a published revision.
	Skipped []Item
}

// Bundle is one downloadable file
type Bundle struct {
	Name     string
	Revision uint32
}

// Parse decodes a furnidata document
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decoding furnidata: %w", err)
	}
	for i := range doc.Wall {
		doc.Wall[i].Wall = true
	}

	byID := make(map[uint32]Item)
	for _, item := range append(doc.Room, doc.Wall...) {
		if _, ok := byID[item.ID]; !ok {
			byID[item.ID] = item
		}
	}
	ids := make([]uint32, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	c := &Catalog{}
	for _, id := range ids {
		item := byID[id]
		if item.Revision == 0 || item.BundleName() == "" {
			c.Skipped = append(c.Skipped, item)
			continue
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}

// Load parses the furnidata file at path
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Bundles returns one entry per bundle name in item order. The lowest id
// decides the revision when variants disagree.
func (c *Catalog) Bundles() []Bundle {
	seen := make(map[string]bool)
	var out []Bundle
	for _, item := range c.Items {
		name := item.BundleName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Bundle{Name: name, Revision: item.Revision})
	}
	return out
}
