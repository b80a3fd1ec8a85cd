// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package document wraps a parsed HTML tree as an explicit document handle.

A Document always has a head and a body, because the HTML5 parsing algorithm
synthesizes both. Mutating methods are not safe for concurrent use; a
Document is owned by whoever holds it.
*/
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	errNoBaseURL   = errors.New("document has no base URL")
	errMissingHead = errors.New("parsed document has no head element")
	errMissingBody = errors.New("parsed document has no body element")
)

// Document is a parsed HTML document together with the URL it was served from.
type Document struct {
	root *html.Node
	head *html.Node
	body *html.Node
	base *url.URL
}

// Parse parses r as a full HTML document.
//
// Parsing is best-effort: malformed markup produces a repaired tree rather
// than an error. Only reader failures are returned. base may be nil for
// documents that are never asked to resolve relative references.
func Parse(r io.Reader, base *url.URL) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{root: root}

	if base != nil {
		u := *base
		doc.base = &u
	}

	doc.head = findElement(root, atom.Head)
	if doc.head == nil {
		return nil, errMissingHead
	}

	doc.body = findElement(root, atom.Body)
	if doc.body == nil {
		// A frameset document has no body.
		return nil, errMissingBody
	}

	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(markup string, base *url.URL) (*Document, error) {
	return Parse(strings.NewReader(markup), base)
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Head returns the <head> element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// BaseURL returns a copy of the URL the document was served from, or nil.
func (d *Document) BaseURL() *url.URL {
	if d.base == nil {
		return nil
	}

	u := *d.base

	return &u
}

// ResolveURL resolves ref against the document's base URL.
func (d *Document) ResolveURL(ref string) (*url.URL, error) {
	if d.base == nil {
		return nil, errNoBaseURL
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference %q: %w", ref, err)
	}

	return d.base.ResolveReference(parsed), nil
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Find(selector)
}

// HeadChildren returns the element children of <head> in document order.
// Text and comment nodes are not included.
func (d *Document) HeadChildren() []*html.Node {
	return ElementChildren(d.head)
}

// HeadHasID reports whether any element inside <head> carries the given id.
func (d *Document) HeadHasID(id string) bool {
	if id == "" {
		return false
	}

	return goquery.NewDocumentFromNode(d.head).
		Find("*").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr("id")

			return ok && v == id
		}).
		Length() > 0
}

// AppendHead appends a detached node to <head>.
//
// It panics if n already has a parent, as html.Node.AppendChild does.
func (d *Document) AppendHead(n *html.Node) {
	d.head.AppendChild(n)
}

// AppendBody appends a detached node to <body>.
func (d *Document) AppendBody(n *html.Node) {
	d.body.AppendChild(n)
}

// BodyInnerHTML serializes the children of <body>.
func (d *Document) BodyInnerHTML() (string, error) {
	markup, err := goquery.NewDocumentFromNode(d.body).Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize body: %w", err)
	}

	return markup, nil
}

// SetBodyInnerHTML replaces every child of <body> with markup parsed in the
// context of the body element. Nothing of the previous body content survives.
func (d *Document) SetBodyInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), d.body)
	if err != nil {
		return fmt.Errorf("failed to parse body markup: %w", err)
	}

	for child := d.body.FirstChild; child != nil; {
		next := child.NextSibling
		d.body.RemoveChild(child)
		child = next
	}

	for _, n := range nodes {
		d.body.AppendChild(n)
	}

	return nil
}

// BodyScripts returns every <script> element inside <body>, in document order.
func (d *Document) BodyScripts() []*html.Node {
	return goquery.NewDocumentFromNode(d.body).Find("script").Nodes
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	return nil
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer

	if err := d.Render(&buf); err != nil {
		return ""
	}

	return buf.String()
}

// findElement returns the first element with the given atom in a depth-first walk.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}

	return nil
}
