package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skipped elements contribute neither text nor links.
var skipped = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
}

// Page is the text and outgoing links extracted from one HTML document.
type Page struct {
	Text  string
	Links []string
}

// Extract parses an HTML document. Links are resolved against base, stripped
// of fragments and returned in document order without duplicates; only
// http and https links are kept.
func Extract(r io.Reader, base *url.URL) (Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Page{}, err
	}

	var text strings.Builder
	var links []string
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[strings.ToLower(n.Data)] {
			return
		}
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte('\n')
		case html.ElementNode:
			if strings.EqualFold(n.Data, "a") {
				for _, a := range n.Attr {
					if !strings.EqualFold(a.Key, "href") {
						continue
					}
					if link := Resolve(base, a.Val); link != "" && !seen[link] {
						seen[link] = true
						links = append(links, link)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return Page{Text: text.String(), Links: links}, nil
}

// Resolve turns href into an absolute http(s) URL without a fragment, or
// returns "" when href cannot be followed.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
