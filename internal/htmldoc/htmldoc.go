// Package htmldoc parses a primary document's HTML into the locator
// candidate set used for script generation.
package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/insightqa/insightqa/internal/domain"
)

// Candidate is one locatable element of the primary document.
type Candidate struct {
	Tag         string
	ID          string
	Name        string
	Type        string
	Placeholder string
	Classes     []string
	Text        string
	Strategy    domain.LocatorStrategy
	Locator     string
}

// interactiveTags are kept as candidates even without id/name/class,
// since test steps usually target them.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"option":   true,
	"textarea": true,
	"form":     true,
	"label":    true,
}

// ParseCandidates walks the markup and returns every element a script
// step could plausibly target, each with its preferred locator.
// Preference order: id, then name, then a class-based CSS selector,
// then a positional XPath as last resort.
func ParseCandidates(markup string) ([]Candidate, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, domain.ErrCorruptFile.WithDetail("primary document is not parseable HTML").Wrap(err)
	}

	var out []Candidate
	var walk func(n *html.Node, path string)
	walk = func(n *html.Node, path string) {
		childCounts := make(map[string]int)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			childCounts[c.Data]++
			childPath := fmt.Sprintf("%s/%s[%d]", path, c.Data, childCounts[c.Data])

			if cand, ok := candidateFor(c, childPath); ok {
				out = append(out, cand)
			}
			walk(c, childPath)
		}
	}
	walk(root, "")
	return out, nil
}

func candidateFor(n *html.Node, path string) (Candidate, bool) {
	c := Candidate{Tag: n.Data, Text: nodeText(n)}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "id":
			c.ID = attr.Val
		case "name":
			c.Name = attr.Val
		case "type":
			c.Type = attr.Val
		case "placeholder":
			c.Placeholder = attr.Val
		case "class":
			c.Classes = strings.Fields(attr.Val)
		}
	}

	if c.ID == "" && c.Name == "" && len(c.Classes) == 0 && !interactiveTags[n.Data] {
		return Candidate{}, false
	}

	switch {
	case c.ID != "":
		c.Strategy = domain.LocatorByID
		c.Locator = c.ID
	case c.Name != "":
		c.Strategy = domain.LocatorByName
		c.Locator = c.Name
	case len(c.Classes) > 0:
		c.Strategy = domain.LocatorByCSS
		c.Locator = c.Tag + "." + strings.Join(c.Classes, ".")
	default:
		c.Strategy = domain.LocatorByXPath
		c.Locator = path
	}
	return c, true
}

// nodeText returns the element's own visible text, trimmed, without
// descending into nested interactive elements.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			return
		}
		if c.Type == html.ElementNode && interactiveTags[c.Data] {
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
