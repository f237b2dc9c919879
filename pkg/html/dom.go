package html

import (
	"errors"
	"fmt"
	"io"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// placeholderPrefix marks template substitutions in the HTML handed to the
// DOM analysis.
const placeholderPrefix = "__FIGMA_PLACEHOLDER_"

// domInfo is what the DOM analysis learns about an example's HTML.
type domInfo struct {
	// attributePlaceholders maps the index of each substitution used as an
	// attribute value to the attribute name.
	attributePlaceholders map[int]string
	// nestable is true when the HTML has exactly one top-level element.
	nestable bool
}

// errDuplicateAttribute is returned when an element repeats an attribute.
// Keeping one of them would hide the other's placeholder.
var errDuplicateAttribute = errors.New("duplicate attribute")

// placeholderHTML joins the template chunks with a placeholder per
// substitution, which makes the example valid HTML.
func placeholderHTML(chunks []string) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			fmt.Fprintf(&b, "%s%d", placeholderPrefix, i-1)
		}
		b.WriteString(chunk)
	}
	return b.String()
}

// analyzeDOM parses src as the body of an HTML document and finds which
// substitutions are attribute values. Elements inside <template> are
// searched too, since frameworks such as Vue put their markup there.
func analyzeDOM(src string) (domInfo, error) {
	if err := checkDuplicateAttributes(src); err != nil {
		return domInfo{}, err
	}

	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return domInfo{}, fmt.Errorf("parse example HTML: %w", err)
	}

	info := domInfo{attributePlaceholders: make(map[int]string)}
	topLevel := 0
	for _, n := range nodes {
		if n.Type == xhtml.ElementNode {
			topLevel++
		}
		collectAttributePlaceholders(n, info.attributePlaceholders)
	}
	info.nestable = topLevel == 1
	return info, nil
}

func collectAttributePlaceholders(n *xhtml.Node, out map[int]string) {
	if n.Type == xhtml.ElementNode {
		for _, attr := range n.Attr {
			if index, ok := placeholderIndex(attr.Val); ok {
				out[index] = attr.Key
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectAttributePlaceholders(c, out)
	}
}

// placeholderIndex reads the index of a value starting with a placeholder.
func placeholderIndex(value string) (int, bool) {
	rest, ok := strings.CutPrefix(value, placeholderPrefix)
	if !ok {
		return 0, false
	}
	index, digits := 0, 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			break
		}
		index = index*10 + int(r-'0')
		digits++
	}
	return index, digits > 0
}

func checkDuplicateAttributes(src string) error {
	z := xhtml.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			if z.Err() == io.EOF {
				return nil
			}
			return z.Err()
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			seen := make(map[string]bool, len(tok.Attr))
			for _, attr := range tok.Attr {
				if seen[attr.Key] {
					return errDuplicateAttribute
				}
				seen[attr.Key] = true
			}
		}
	}
}
