package epub

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"epub2audio/internal/services"
)

// DublinCoreNS is the bibliographic namespace of package metadata elements.
const DublinCoreNS = "http://purl.org/dc/elements/1.1/"

const (
	mediaTypeNCX = "application/x-dtbncx+xml"
)

type opfPackage struct {
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest struct {
		Items []Item `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfMetadata struct {
	Titles    []string  `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []string  `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []string  `xml:"http://purl.org/dc/elements/1.1/ language"`
	Metas     []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// Item is one manifest entry of the package document.
type Item struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// HasProperty reports whether the space-separated properties list contains name.
func (i Item) HasProperty(name string) bool {
	return slices.Contains(strings.Fields(i.Properties), name)
}

// IsImage reports whether the item is an image resource.
func (i Item) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(i.MediaType)), "image/")
}

// Package is the parsed package (OPF) document.
type Package struct {
	// Path is the package document's location on disk; hrefs resolve against its directory.
	Path      string
	Version   string
	Titles    []string
	Creators  []string
	Language  string
	Items     []Item
	SpineTOC  string
	SpineRefs []string

	metas []opfMeta
	byID  map[string]Item
}

// ParsePackage reads and decodes a package document.
func ParsePackage(opfPath string) (*Package, error) {
	data, err := os.ReadFile(opfPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "epub", "parse package", fmt.Sprintf("package document not found at %s", opfPath), err)
		}
		return nil, fmt.Errorf("read package document %s: %w", opfPath, err)
	}

	var raw opfPackage
	if err := NewXMLDecoder(data).Decode(&raw); err != nil {
		return nil, services.Wrap(services.ErrParse, "epub", "parse package", fmt.Sprintf("malformed package document %s", opfPath), err)
	}

	pkg := &Package{
		Path:     opfPath,
		Version:  strings.TrimSpace(raw.Version),
		Titles:   trimAll(raw.Metadata.Titles),
		Creators: trimAll(raw.Metadata.Creators),
		Items:    raw.Manifest.Items,
		SpineTOC: strings.TrimSpace(raw.Spine.Toc),
		metas:    raw.Metadata.Metas,
		byID:     make(map[string]Item, len(raw.Manifest.Items)),
	}
	if langs := trimAll(raw.Metadata.Languages); len(langs) > 0 {
		pkg.Language = langs[0]
	}
	for _, item := range raw.Manifest.Items {
		pkg.byID[item.ID] = item
	}
	for _, ref := range raw.Spine.ItemRefs {
		pkg.SpineRefs = append(pkg.SpineRefs, ref.IDRef)
	}
	return pkg, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Title returns the first non-empty dc:title.
func (p *Package) Title() string {
	if len(p.Titles) == 0 {
		return ""
	}
	return p.Titles[0]
}

// Author joins every dc:creator with " & ".
func (p *Package) Author() string {
	return strings.Join(p.Creators, " & ")
}

// Item looks up a manifest item by id.
func (p *Package) Item(id string) (Item, bool) {
	item, ok := p.byID[id]
	return item, ok
}

// NavItem returns the EPUB 3 navigation document item.
func (p *Package) NavItem() (Item, bool) {
	for _, item := range p.Items {
		if item.HasProperty("nav") {
			return item, true
		}
	}
	return Item{}, false
}

// NCXItem returns the item named by the spine's toc attribute, or the first
// item with the NCX media type.
func (p *Package) NCXItem() (Item, bool) {
	if p.SpineTOC != "" {
		if item, ok := p.byID[p.SpineTOC]; ok {
			return item, true
		}
	}
	for _, item := range p.Items {
		if strings.EqualFold(strings.TrimSpace(item.MediaType), mediaTypeNCX) {
			return item, true
		}
	}
	return Item{}, false
}

// CoverItem returns the cover image declared by the package: the
// cover-image property, then <meta name="cover">, then an image whose id or
// href mentions "cover".
func (p *Package) CoverItem() (Item, bool) {
	for _, item := range p.Items {
		if item.HasProperty("cover-image") {
			return item, true
		}
	}
	for _, meta := range p.metas {
		if !strings.EqualFold(meta.Name, "cover") || meta.Content == "" {
			continue
		}
		if item, ok := p.byID[meta.Content]; ok && item.IsImage() {
			return item, true
		}
	}
	for _, item := range p.Items {
		if !item.IsImage() {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") || strings.Contains(strings.ToLower(item.Href), "cover") {
			return item, true
		}
	}
	return Item{}, false
}

// Resolve maps a manifest href to a filesystem path next to the package document.
func (p *Package) Resolve(href string) string {
	return ResolveHref(filepath.Dir(p.Path), href)
}

// ResolveHref joins a URL-style relative reference onto baseDir, dropping
// any fragment and decoding percent escapes.
func ResolveHref(baseDir, href string) string {
	href = StripFragment(strings.TrimSpace(href))
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	if href == "" {
		return ""
	}
	return filepath.Join(baseDir, filepath.FromSlash(path.Clean(href)))
}

// StripFragment removes a trailing "#fragment" from a reference.
func StripFragment(ref string) string {
	if idx := strings.IndexByte(ref, '#'); idx >= 0 {
		return ref[:idx]
	}
	return ref
}
