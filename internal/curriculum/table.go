package curriculum

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Table is a rendered table, each row holds the text of its cells in
// document order.
type Table interface {
	Rows() [][]string
}

// StaticTable is a Table backed by a slice.
type StaticTable [][]string

func (t StaticTable) Rows() [][]string {
	return t
}

// HTMLTable is a Table parsed from the markup of a rendered page.
type HTMLTable struct {
	rows [][]string
}

func (t HTMLTable) Rows() [][]string {
	return t.rows
}

// ParseHTMLTable reads the rows of the first tbody found in the markup. The
// markup may be a bare tbody fragment as returned by a browser, it is wrapped
// in a table before parsing.
func ParseHTMLTable(r io.Reader) (HTMLTable, error) {
	markup, err := io.ReadAll(r)
	if err != nil {
		return HTMLTable{}, err
	}
	trimmed := bytes.TrimSpace(markup)
	if bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<tbody")) {
		markup = append(append([]byte("<table>"), trimmed...), []byte("</table>")...)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return HTMLTable{}, fmt.Errorf("parse table markup: %w", err)
	}
	body := doc.Find("tbody").First()
	if body.Length() == 0 {
		return HTMLTable{}, fmt.Errorf("parse table markup: no tbody")
	}

	var rows [][]string
	body.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := make([]string, 0, 20)
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cellText(td.Nodes[0]))
		})
		rows = append(rows, cells)
	})

	return HTMLTable{rows: rows}, nil
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func cellText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)

	text := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, buffer.String())
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.Data == "script" || node.Data == "style" {
			return
		}
		if node.Data == "br" {
			buffer.WriteByte(' ')
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}
