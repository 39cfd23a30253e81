package toc

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseNav walks the list items of an EPUB 3 navigation document's toc nav
// in document order. Each <li> is one point: its title comes from the first
// direct <a> (or <span> when there is no link) and its path from that link.
func parseNav(data []byte) ([]navPoint, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var navs []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
			navs = append(navs, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	toc := pickTOCNav(navs)
	if toc == nil {
		return nil, nil
	}

	var points []navPoint
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			points = append(points, listItemPoint(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(toc)
	return points, nil
}

func pickTOCNav(navs []*html.Node) *html.Node {
	for _, nav := range navs {
		if hasToken(attr(nav, "epub:type"), "toc") || hasToken(attr(nav, "role"), "doc-toc") {
			return nav
		}
	}
	if len(navs) > 0 {
		return navs[0]
	}
	return nil
}

func listItemPoint(li *html.Node) navPoint {
	var point navPoint
	var haveLink bool
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.A:
			if !haveLink {
				haveLink = true
				point.Src = strings.TrimSpace(attr(c, "href"))
				point.Title = collapseSpace(textContent(c))
			}
		case atom.Span:
			if !haveLink && point.Title == "" {
				point.Title = collapseSpace(textContent(c))
			}
		}
	}
	return point
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key || (a.Namespace != "" && a.Namespace+":"+a.Key == key) {
			return a.Val
		}
	}
	return ""
}

func hasToken(value, token string) bool {
	for _, field := range strings.Fields(value) {
		if field == token {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
