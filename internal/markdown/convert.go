package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// droppedElements never carry narratable text.
var droppedElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

// ToMarkdown converts a chapter document to Markdown. Only the body is
// converted; empty page-marker anchors and non-content elements are dropped,
// and soft line breaks inside paragraphs are joined.
func ToMarkdown(document string) (string, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse chapter html: %w", err)
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		body = doc
	}
	prune(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render chapter body: %w", err)
		}
	}

	converted, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert chapter to markdown: %w", err)
	}
	return tidy(converted), nil
}

// NarrationText prepares Markdown for a speech engine: leading heading
// markers and surrounding whitespace are removed.
func NarrationText(markdown string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(markdown), "#"))
}

func tidy(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = joinSoftBreaks(markdown)
	markdown = blankLines.ReplaceAllString(markdown, "\n\n")
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	return markdown + "\n"
}

// joinSoftBreaks joins wrapped lines of the same paragraph. Lines that open
// a block (list item, heading, quote, table row) keep their break.
func joinSoftBreaks(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			prev := lines[i-1]
			if prev != "" && line != "" && !opensBlock(line) {
				sb.WriteByte(' ')
				sb.WriteString(strings.TrimLeft(line, " \t"))
				continue
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func opensBlock(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '-', '*', '+', '#', '>', '|':
		return true
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		rest := strings.TrimLeft(trimmed, "0123456789")
		return strings.HasPrefix(rest, ". ") || strings.HasPrefix(rest, ") ")
	}
	return false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (droppedElements[c.DataAtom] || isPageMarker(c)) {
			n.RemoveChild(c)
		} else {
			prune(c)
		}
		c = next
	}
}

// isPageMarker matches the empty <span id="page_12"/> anchors used for print
// page references.
func isPageMarker(n *html.Node) bool {
	if n.DataAtom != atom.Span || n.FirstChild != nil {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == "id" && strings.HasPrefix(attr.Val, "page") {
			return true
		}
	}
	return false
}
