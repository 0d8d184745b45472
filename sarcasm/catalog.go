package sarcasm

import "strings"

// Entry is one search hit.
type Entry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Document is the full content of a catalog entry.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SearchResult is the content returned by the search tool.
type SearchResult struct {
	Results []Entry `json:"results"`
}

// FetchResult is the content returned by the fetch tool.
type FetchResult struct {
	Documents []Document `json:"documents"`
}

// Catalog is a fixed, read-only set of entries and their documents.
type Catalog struct {
	entries   []Entry
	documents map[string]string
}

// DefaultCatalog returns the two-entry catalog served by search and fetch.
func DefaultCatalog() *Catalog {
	return &Catalog{
		entries: []Entry{
			{ID: "1", Title: "Sarcastic Life Advice", Summary: "Advice that definitely won't help."},
			{ID: "2", Title: "The Art of Doing Nothing", Summary: "A complete masterclass in laziness."},
		},
		documents: map[string]string{
			"1": "This is the full sarcastic life advice document.",
			"2": "This is the full 'Art of Doing Nothing' document.",
		},
	}
}

// Search returns entries whose title contains query, ignoring case, in
// catalog order. An empty query matches everything.
func (c *Catalog) Search(query string) SearchResult {
	q := strings.ToLower(query)
	results := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Title), q) {
			results = append(results, e)
		}
	}
	return SearchResult{Results: results}
}

// Fetch returns the documents for ids in request order. Unknown ids are
// dropped; duplicates are returned as often as requested.
func (c *Catalog) Fetch(ids []string) FetchResult {
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if content, ok := c.documents[id]; ok {
			docs = append(docs, Document{ID: id, Content: content})
		}
	}
	return FetchResult{Documents: docs}
}
