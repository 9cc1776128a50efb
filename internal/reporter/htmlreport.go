package reporter

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/IgorBayerl/mfp/internal/processor"
)

// HTMLReporter writes a standalone HTML page with one table row per file.
type HTMLReporter struct {
	Verbose bool
	Title   string
}

func (r *HTMLReporter) Name() string {
	return "Html"
}

func (r *HTMLReporter) Write(w io.Writer, results map[string]processor.FileProcessingResult) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), r.Title))
	head.AppendChild(withText(element(atom.Style), pageStyle))
	root.AppendChild(head)

	body := element(atom.Body)
	body.AppendChild(withText(element(atom.H1), r.Title))
	body.AppendChild(r.summary(results))
	body.AppendChild(r.table(results))
	root.AppendChild(body)

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

func (r *HTMLReporter) summary(results map[string]processor.FileProcessingResult) *html.Node {
	var lines, words int
	for _, res := range results {
		lines += len(res.LineCounts)
		words += res.TotalWords
	}
	return withText(element(atom.P, html.Attribute{Key: "class", Val: "summary"}),
		fmt.Sprintf("%d files, %d lines, %d words", len(results), lines, words))
}

func (r *HTMLReporter) table(results map[string]processor.FileProcessingResult) *html.Node {
	table := element(atom.Table)

	header := element(atom.Tr)
	header.AppendChild(withText(element(atom.Th), "File"))
	if r.Verbose {
		header.AppendChild(withText(element(atom.Th), "Total words"))
	}
	header.AppendChild(withText(element(atom.Th), "Line counts"))
	thead := element(atom.Thead)
	thead.AppendChild(header)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, entry := range sortedEntries(results) {
		row := element(atom.Tr, html.Attribute{Key: "title", Val: entry.Path})
		row.AppendChild(withText(element(atom.Td), entry.Name))
		if r.Verbose {
			row.AppendChild(withText(element(atom.Td, html.Attribute{Key: "class", Val: "total"}),
				strconv.Itoa(entry.Result.TotalWords)))
		}
		row.AppendChild(withText(element(atom.Td, html.Attribute{Key: "class", Val: "counts"}),
			formatCounts(entry.Result.LineCounts)))
		tbody.AppendChild(row)
	}
	table.AppendChild(tbody)
	return table
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

const pageStyle = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse}
th,td{border:1px solid #ccc;padding:4px 8px;text-align:left}
td.counts{font-family:monospace}`
