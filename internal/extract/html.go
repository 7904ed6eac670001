package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/insightqa/insightqa/internal/domain"
)

// extractHTML validates the markup and returns it re-rendered. The
// markup is kept intact rather than flattened to text: the primary
// document's structure is what the script generator later parses for
// locator candidates.
func extractHTML(data []byte) (string, error) {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", domain.ErrCorruptFile.WithDetail("invalid HTML").Wrap(err)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", domain.ErrCorruptFile.Wrap(err)
	}
	return buf.String(), nil
}

// VisibleText flattens HTML markup to the text a user would see,
// skipping script and style subtrees. Unparsable markup is returned
// unchanged.
func VisibleText(markup string) string {
	node, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return sb.String()
}
