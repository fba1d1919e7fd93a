package htmlutil

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var out strings.Builder
	getTextRecursive(node, &out)
	return out.String()
}

func getTextRecursive(node *html.Node, out *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		out.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, out)
	}
}

type Anchor struct {
	Name string
	// Href is the raw attribute value as it appears in the markup.
	Href string
	// Url is Href resolved against the page the anchor was found on, nil
	// when Href could not be parsed.
	Url *url.URL
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// NormalizeText drops non-printable runes and collapses whitespace runs.
func NormalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// GetAnchors collects every element in sel carrying an href attribute, in
// document order.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		var resolved *url.URL
		link, err := url.Parse(href)
		if err == nil {
			resolved = link
			if base != nil {
				resolved = base.ResolveReference(link)
			}
		}
		var name string
		if len(s.Nodes) > 0 {
			name = NormalizeText(GetText(s.Nodes[0]))
		}
		anchors = append(anchors, Anchor{
			Name: name,
			Href: href,
			Url:  resolved,
		})
	})
	return anchors
}
