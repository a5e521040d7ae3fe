package legalweb

import (
	"strings"

	"golang.org/x/net/html"
)

// extractReadableText pulls the page title and the readable body text out of
// an HTML document, skipping script, style, and chrome elements. The result
// is what gets indexed, shown to the model, and verified against — it must
// stay byte-identical once stored.
func extractReadableText(rawHTML string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", strings.TrimSpace(rawHTML)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer", "header", "aside":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(trimmed)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return title, b.String()
}
