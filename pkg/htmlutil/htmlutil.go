package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText strips non-printable runes, collapses whitespace runs into a single space
// and trims the ends, the way a browser renders the text of an element.
func NormalizeText(text string) string {
	text = removeNonPrintable(text)
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Text returns the normalized text of the first node in `sel`, ok is false when
// the selection is empty.
func Text(sel *goquery.Selection) (text string, ok bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return NormalizeText(GetText(sel.Nodes[0])), true
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// GetAnchors collects every anchor in `sel`, resolving relative hrefs against `base`.
// Anchors with a missing or malformed href are skipped.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}
		if href == "" {
			continue
		}

		link, err := url.Parse(href)
		if err != nil {
			continue
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		anchors = append(anchors, Anchor{
			Name: NormalizeText(GetText(n)),
			Url:  link,
		})
	}
	return anchors
}
