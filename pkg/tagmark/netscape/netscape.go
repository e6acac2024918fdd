// Package netscape reads and writes the Netscape bookmark file format that
// browsers use for bookmark export.
package netscape

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"
)

// Bookmark is one entry of a bookmark file
type Bookmark struct {
	URL         string
	Title       string
	Description string
	Tags        []string
	AddDate     time.Time
	IsPublic    bool
}

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
`

const footer = "</DL><p>\n"

// Some bookmark file readers split records on these, so they never reach the
// output.
var whitespaceNormalizer = strings.NewReplacer(
	"\u2028", " ",
	"\u2029", " ",
	"\v", " ",
	"\f", " ",
)

// Render returns bookmarks as a Netscape bookmark file
func Render(bookmarks []Bookmark) string {
	var b strings.Builder
	b.WriteString(header)
	for _, bm := range bookmarks {
		writeBookmark(&b, bm)
	}
	b.WriteString(footer)
	return whitespaceNormalizer.Replace(b.String())
}

// Export writes bookmarks as a Netscape bookmark file to w
func Export(w io.Writer, bookmarks []Bookmark) error {
	if _, err := io.WriteString(w, Render(bookmarks)); err != nil {
		return fmt.Errorf("write bookmarks: %w", err)
	}
	return nil
}

func writeBookmark(b *strings.Builder, bm Bookmark) {
	private := "1"
	if bm.IsPublic {
		private = "0"
	}

	fmt.Fprintf(b, `    <DT><A HREF="%s" ADD_DATE="%d" PRIVATE="%s"`,
		html.EscapeString(bm.URL), bm.AddDate.Unix(), private)
	if len(bm.Tags) > 0 {
		fmt.Fprintf(b, ` TAGS="%s"`, html.EscapeString(strings.Join(bm.Tags, ",")))
	}
	fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(bm.Title))

	if bm.Description != "" {
		fmt.Fprintf(b, "    <DD>%s\n", html.EscapeString(bm.Description))
	}
}

func parseAddDate(value string, now time.Time) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || secs <= 0 {
		return now
	}
	return time.Unix(secs, 0).UTC()
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
