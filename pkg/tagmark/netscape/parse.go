package netscape

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads a Netscape bookmark file. Anchors without an HREF are skipped.
// Folders are flattened.
func Parse(r io.Reader) ([]Bookmark, error) {
	return parseAt(r, time.Now().UTC())
}

func parseAt(r io.Reader, now time.Time) ([]Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse bookmarks: %w", err)
	}

	bookmarks := []Bookmark{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && n.Parent != nil && n.Parent.DataAtom == atom.Dt {
			if bm, ok := anchorBookmark(n, now); ok {
				bookmarks = append(bookmarks, bm)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return bookmarks, nil
}

func anchorBookmark(a *html.Node, now time.Time) (Bookmark, bool) {
	href, ok := attr(a, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return Bookmark{}, false
	}

	bm := Bookmark{
		URL:     strings.TrimSpace(href),
		Title:   strings.TrimSpace(textContent(a)),
		AddDate: now,
	}
	if v, ok := attr(a, "add_date"); ok {
		bm.AddDate = parseAddDate(v, now)
	}
	if v, ok := attr(a, "tags"); ok {
		bm.Tags = splitTags(v)
	}
	private, _ := attr(a, "private")
	bm.IsPublic = strings.TrimSpace(private) != "1"

	if dd := followingDD(a); dd != nil {
		bm.Description = strings.TrimSpace(directText(dd))
	}
	return bm, true
}

// followingDD finds the <DD> right after the anchor's <DT>. The parser may
// place it inside the <DT> or as the <DT>'s next sibling.
func followingDD(a *html.Node) *html.Node {
	if dd := nextElement(a); dd != nil {
		if dd.DataAtom == atom.Dd {
			return dd
		}
		return nil
	}
	if dd := nextElement(a.Parent); dd != nil && dd.DataAtom == atom.Dd {
		return dd
	}
	return nil
}

// nextElement returns the next element sibling, skipping whitespace text
func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		switch s.Type {
		case html.ElementNode:
			return s
		case html.TextNode:
			if strings.TrimSpace(s.Data) != "" {
				return nil
			}
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// directText joins the text children of n, leaving nested lists out
func directText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
