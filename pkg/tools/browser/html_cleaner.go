package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedHTML represents cleaned HTML content with metadata
type CleanedHTML struct {
	HTML  string
	Title string
}

// cleanHTML strips a serialized document down to what an agent needs to
// reason about interaction: structure, identity attributes and the
// annotation markers. With visibleOnly, elements the annotation pass did
// not mark are dropped first.
func cleanHTML(rawHTML string, visibleOnly bool) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &CleanedHTML{Title: extractTitle(doc)}

	if visibleOnly {
		removeInvisible(doc)
	}

	var builder strings.Builder
	cleanNode(doc, &builder, 0)
	result.HTML = strings.TrimRight(builder.String(), "\n")
	return result, nil
}

// removeInvisible drops unmarked elements. An unmarked element that still
// contains marked descendants is kept so they retain their nesting, as is
// the document skeleton.
func removeInvisible(n *html.Node) bool {
	hasVisible := false
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if removeInvisible(c) {
				hasVisible = true
			} else if !isSkeletonElement(c.Data) {
				n.RemoveChild(c)
			}
		}
		c = next
	}
	return hasVisible || (n.Type == html.ElementNode && hasAttr(n, attrVisible))
}

// cleanNode writes n and its kept descendants, one node per line.
func cleanNode(n *html.Node, builder *strings.Builder, depth int) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		processTextNode(n, builder, depth)
	case html.ElementNode:
		if isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
		processElementNode(n, builder, depth)
	default:
		processChildren(n, builder, depth)
	}
}

// processTextNode writes whitespace-collapsed text on its own line.
func processTextNode(n *html.Node, builder *strings.Builder, depth int) {
	text := strings.Join(strings.Fields(n.Data), " ")
	if text == "" {
		return
	}
	writeIndent(builder, depth)
	builder.WriteString(html.EscapeString(text))
	builder.WriteString("\n")
}

// processElementNode writes the opening tag with preserved attributes, the
// children one level deeper and the closing tag.
func processElementNode(n *html.Node, builder *strings.Builder, depth int) {
	tagName := strings.ToLower(n.Data)

	writeIndent(builder, depth)
	builder.WriteString("<")
	builder.WriteString(tagName)
	for _, attr := range n.Attr {
		if shouldPreserveAttribute(attr.Key) {
			fmt.Fprintf(builder, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	builder.WriteString(">\n")

	if isVoidElement(tagName) {
		return
	}

	processChildren(n, builder, depth+1)

	writeIndent(builder, depth)
	builder.WriteString("</")
	builder.WriteString(tagName)
	builder.WriteString(">\n")
}

func processChildren(n *html.Node, builder *strings.Builder, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cleanNode(c, builder, depth)
	}
}

func writeIndent(builder *strings.Builder, depth int) {
	builder.WriteString(strings.Repeat(" ", depth))
}

// isSkippedElement returns true for elements that should be completely removed
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "iframe", "embed",
		"object", "svg", "canvas", "link", "meta", "base":
		return true
	}
	return false
}

// isSkeletonElement reports elements kept even when not marked visible.
func isSkeletonElement(tagName string) bool {
	switch strings.ToLower(tagName) {
	case "html", "head", "title", "body":
		return true
	}
	return false
}

// isVoidElement returns true for self-closing elements
func isVoidElement(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// shouldPreserveAttribute returns true for attributes that identify an
// element, describe it to assistive technology or carry an annotation.
func shouldPreserveAttribute(attrName string) bool {
	attrName = strings.ToLower(attrName)

	if strings.HasPrefix(attrName, "aria-") {
		return true
	}

	switch attrName {
	case "id", "class", "name", "type", "role", "alt", "title",
		"placeholder", "href", "value", "for",
		"data-testid", "data-test-id", "data-test",
		attrVisible, attrScrollable, attrValue, attrFocused:
		return true
	}
	return false
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}
