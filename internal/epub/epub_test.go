package epub_test

import (
	"errors"
	"path/filepath"
	"testing"

	"epub2audio/internal/epub"
	"epub2audio/internal/services"
	"epub2audio/internal/testsupport"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const packageXML = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title> The Dark Forest </dc:title>
    <dc:creator>Liu Cixin</dc:creator>
    <dc:creator>Joel Martinsen</dc:creator>
    <dc:language>en</dc:language>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="nav" href="nav/nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="cover-img" href="images/Cover%20Art.jpg" media-type="image/jpeg"/>
    <item id="c1" href="text/c1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
  </spine>
</package>`

func writeBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testsupport.WriteText(t, filepath.Join(dir, "META-INF", "container.xml"), containerXML)
	testsupport.WriteText(t, filepath.Join(dir, "OEBPS", "content.opf"), packageXML)
	return dir
}

func TestParsePackageMetadataAndItems(t *testing.T) {
	dir := writeBook(t)
	opfPath, err := epub.FindPackage(dir)
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if opfPath != filepath.Join(dir, "OEBPS", "content.opf") {
		t.Fatalf("unexpected package path: %s", opfPath)
	}

	pkg, err := epub.ParsePackage(opfPath)
	if err != nil {
		t.Fatalf("ParsePackage: %v", err)
	}
	if pkg.Title() != "The Dark Forest" {
		t.Fatalf("unexpected title: %q", pkg.Title())
	}
	if pkg.Author() != "Liu Cixin & Joel Martinsen" {
		t.Fatalf("unexpected author: %q", pkg.Author())
	}
	if pkg.Language != "en" || pkg.Version != "3.0" {
		t.Fatalf("unexpected language/version: %q %q", pkg.Language, pkg.Version)
	}

	ncx, ok := pkg.NCXItem()
	if !ok || ncx.ID != "ncx" {
		t.Fatalf("unexpected NCX item: %#v", ncx)
	}
	nav, ok := pkg.NavItem()
	if !ok || pkg.Resolve(nav.Href) != filepath.Join(dir, "OEBPS", "nav", "nav.xhtml") {
		t.Fatalf("unexpected nav item: %#v", nav)
	}
	cover, ok := pkg.CoverItem()
	if !ok || pkg.Resolve(cover.Href) != filepath.Join(dir, "OEBPS", "images", "Cover Art.jpg") {
		t.Fatalf("unexpected cover item: %#v", cover)
	}
}

func TestParsePackageErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := epub.ParsePackage(filepath.Join(dir, "missing.opf")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	bad := filepath.Join(dir, "bad.opf")
	testsupport.WriteText(t, bad, "<package><metadata>")
	if _, err := epub.ParsePackage(bad); !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestFindPackageFallsBackToWalk(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteText(t, filepath.Join(dir, "book", "package.opf"), packageXML)
	got, err := epub.FindPackage(dir)
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if filepath.Base(got) != "package.opf" {
		t.Fatalf("unexpected package path: %s", got)
	}

	if _, err := epub.FindPackage(t.TempDir()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindNavigationPrefersRootNCX(t *testing.T) {
	dir := writeBook(t)
	testsupport.WriteText(t, filepath.Join(dir, "OEBPS", "toc.ncx"), "<ncx/>")
	testsupport.WriteText(t, filepath.Join(dir, "toc.ncx"), "<ncx/>")

	got, err := epub.FindNavigation(dir)
	if err != nil {
		t.Fatalf("FindNavigation: %v", err)
	}
	if got != filepath.Join(dir, "toc.ncx") {
		t.Fatalf("expected root toc.ncx, got %s", got)
	}
}

func TestFindNavigationRecursiveThenPackage(t *testing.T) {
	dir := writeBook(t)
	testsupport.WriteText(t, filepath.Join(dir, "OEBPS", "toc.ncx"), "<ncx/>")
	got, err := epub.FindNavigation(dir)
	if err != nil {
		t.Fatalf("FindNavigation: %v", err)
	}
	if got != filepath.Join(dir, "OEBPS", "toc.ncx") {
		t.Fatalf("expected nested toc.ncx, got %s", got)
	}

	navOnly := writeBook(t)
	navPath := filepath.Join(navOnly, "OEBPS", "nav", "nav.xhtml")
	testsupport.WriteText(t, navPath, "<html/>")
	got, err = epub.FindNavigation(navOnly)
	if err != nil {
		t.Fatalf("FindNavigation: %v", err)
	}
	if got != navPath {
		t.Fatalf("expected package nav document, got %s", got)
	}
}

func TestFindNavigationMissing(t *testing.T) {
	_, err := epub.FindNavigation(writeBook(t))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := epub.FindNavigation(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing dir, got %v", err)
	}
}
