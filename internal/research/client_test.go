package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.00001v1</id>
    <title>Attention Is
      All You Need</title>
    <summary>  We propose a new
      architecture.  </summary>
    <published>2023-01-02T00:00:00Z</published>
    <author><name>A. Vaswani</name></author>
    <author><name>N. Shazeer</name></author>
  </entry>
</feed>`

const semanticFixture = `{
  "data": [
    {
      "title": "Scaling Laws",
      "abstract": "",
      "year": 2020,
      "url": "https://semanticscholar.org/p/1",
      "authors": [{"name": "J. Kaplan"}]
    }
  ]
}`

func fixtureServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchArxiv(t *testing.T) {
	arxiv := fixtureServer(t, arxivFixture)
	c := NewClient(Config{ArxivURL: arxiv.URL, SemanticScholarURL: "http://127.0.0.1:0"})

	papers, err := c.Search(context.Background(), "transformers", "", SourceArxiv)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	p := papers[0]
	if p.Title != "Attention Is All You Need" {
		t.Fatalf("title whitespace not collapsed: %q", p.Title)
	}
	if p.Abstract != "We propose a new architecture." {
		t.Fatalf("abstract = %q", p.Abstract)
	}
	if p.Year != "2023" {
		t.Fatalf("year = %q", p.Year)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "A. Vaswani" {
		t.Fatalf("authors = %v", p.Authors)
	}
	if p.Source != string(SourceArxiv) || p.URL != "http://arxiv.org/abs/2301.00001v1" {
		t.Fatalf("source/url wrong: %q %q", p.Source, p.URL)
	}
}

func TestSearchSemanticScholar(t *testing.T) {
	semantic := fixtureServer(t, semanticFixture)
	c := NewClient(Config{SemanticScholarURL: semantic.URL, ArxivURL: "http://127.0.0.1:0"})

	papers, err := c.Search(context.Background(), "scaling", "", SourceSemanticScholar)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	p := papers[0]
	if p.Title != "Scaling Laws" || p.Year != "2020" {
		t.Fatalf("unexpected paper: %+v", p)
	}
	if p.Abstract != "No abstract available." {
		t.Fatalf("missing abstract default not applied: %q", p.Abstract)
	}
}

func TestSearchAutoConcatenatesArxivFirst(t *testing.T) {
	arxiv := fixtureServer(t, arxivFixture)
	semantic := fixtureServer(t, semanticFixture)
	c := NewClient(Config{ArxivURL: arxiv.URL, SemanticScholarURL: semantic.URL})

	papers, err := c.Search(context.Background(), "deep learning", "", SourceAuto)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}
	if papers[0].Source != string(SourceArxiv) || papers[1].Source != string(SourceSemanticScholar) {
		t.Fatalf("wrong order: %q, %q", papers[0].Source, papers[1].Source)
	}
}

func TestSearchFallsBackToDomainKeyword(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(arxivFixture))
	}))
	defer srv.Close()

	c := NewClient(Config{ArxivURL: srv.URL})
	if _, err := c.Search(context.Background(), "   ", "nanophotonics", SourceArxiv); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if gotQuery != "all:nanophotonics" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestSearchEmptyQueryAndDomain(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.Search(context.Background(), "", "", SourceAuto); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchBackendFailureDegradesToEmpty(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	semantic := fixtureServer(t, semanticFixture)

	c := NewClient(Config{ArxivURL: failing.URL, SemanticScholarURL: semantic.URL})
	papers, err := c.Search(context.Background(), "anything", "", SourceAuto)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 || papers[0].Source != string(SourceSemanticScholar) {
		t.Fatalf("expected the surviving backend's result only: %+v", papers)
	}
}

func TestSearchMalformedFeed(t *testing.T) {
	srv := fixtureServer(t, "not xml at all")
	c := NewClient(Config{ArxivURL: srv.URL})

	papers, err := c.Search(context.Background(), "anything", "", SourceArxiv)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 0 {
		t.Fatalf("expected no papers from a malformed feed, got %d", len(papers))
	}
}
