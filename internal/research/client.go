// Package research implements paper search against arXiv and Semantic
// Scholar.
package research

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kanad/internal/domain"
)

const (
	defaultArxivURL           = "https://export.arxiv.org/api/query"
	defaultSemanticScholarURL = "https://api.semanticscholar.org/graph/v1/paper/search"
)

// Source filters which backends a search queries.
type Source string

const (
	SourceAuto            Source = "Auto"
	SourceArxiv           Source = "arXiv"
	SourceSemanticScholar Source = "Semantic Scholar"
)

// Client queries the paper-search backends. Base URLs and the HTTP client
// are injectable for tests.
type Client struct {
	http        *http.Client
	arxivURL    string
	semanticURL string
	maxResults  int
	logger      *slog.Logger
}

// Config for the research client. Zero values fall back to the public
// endpoints, a 30s HTTP client, and 10 results per backend.
type Config struct {
	HTTPClient         *http.Client
	ArxivURL           string
	SemanticScholarURL string
	MaxResults         int
	Logger             *slog.Logger
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:        httpClient,
		arxivURL:    cfg.ArxivURL,
		semanticURL: cfg.SemanticScholarURL,
		maxResults:  cfg.MaxResults,
		logger:      logger,
	}
	if c.arxivURL == "" {
		c.arxivURL = defaultArxivURL
	}
	if c.semanticURL == "" {
		c.semanticURL = defaultSemanticScholarURL
	}
	if c.maxResults <= 0 {
		c.maxResults = 10
	}
	return c
}

// Search queries the selected backends. An empty query falls back to the
// domain keyword. Auto queries both backends concurrently and concatenates
// arXiv results first. Backend failures degrade to empty results.
func (c *Client) Search(ctx context.Context, query, domainKeyword string, source Source) ([]domain.ResearchPaper, error) {
	effective := strings.TrimSpace(query)
	if effective == "" {
		effective = strings.TrimSpace(domainKeyword)
	}
	if effective == "" {
		return nil, fmt.Errorf("empty search query")
	}

	switch source {
	case SourceArxiv:
		return c.searchArxiv(ctx, effective), nil
	case SourceSemanticScholar:
		return c.searchSemanticScholar(ctx, effective), nil
	}

	var arxiv, semantic []domain.ResearchPaper
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		arxiv = c.searchArxiv(gctx, effective)
		return nil
	})
	g.Go(func() error {
		semantic = c.searchSemanticScholar(gctx, effective)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(arxiv, semantic...), nil
}

// arXiv Atom feed structures, reduced to the fields we read.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

func (c *Client) searchArxiv(ctx context.Context, query string) []domain.ResearchPaper {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(c.maxResults))

	body, err := c.get(ctx, c.arxivURL+"?"+params.Encode())
	if err != nil {
		c.logger.Warn("arxiv search failed", "query", query, "err", err)
		return nil
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		c.logger.Warn("arxiv feed parse failed", "err", err)
		return nil
	}

	papers := make([]domain.ResearchPaper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := collapseWhitespace(e.Title)
		if title == "" {
			title = "No Title"
		}
		year := "N/A"
		if i := strings.Index(e.Published, "-"); i > 0 {
			year = e.Published[:i]
		}
		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		papers = append(papers, domain.ResearchPaper{
			Title:    title,
			Authors:  authors,
			Year:     year,
			Abstract: collapseWhitespace(e.Summary),
			URL:      e.ID,
			Source:   string(SourceArxiv),
		})
	}
	return papers
}

// Semantic Scholar search response, reduced to the fields we read.
type semanticResponse struct {
	Data []struct {
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
		Year     int    `json:"year"`
		URL      string `json:"url"`
		Authors  []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (c *Client) searchSemanticScholar(ctx context.Context, query string) []domain.ResearchPaper {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprint(c.maxResults))
	params.Set("fields", "title,authors,year,abstract,url")

	body, err := c.get(ctx, c.semanticURL+"?"+params.Encode())
	if err != nil {
		c.logger.Warn("semantic scholar search failed", "query", query, "err", err)
		return nil
	}

	var resp semanticResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("semantic scholar parse failed", "err", err)
		return nil
	}

	papers := make([]domain.ResearchPaper, 0, len(resp.Data))
	for _, item := range resp.Data {
		year := "N/A"
		if item.Year > 0 {
			year = fmt.Sprint(item.Year)
		}
		abstract := item.Abstract
		if abstract == "" {
			abstract = "No abstract available."
		}
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			authors = append(authors, a.Name)
		}
		papers = append(papers, domain.ResearchPaper{
			Title:    item.Title,
			Authors:  authors,
			Year:     year,
			Abstract: abstract,
			URL:      item.URL,
			Source:   string(SourceSemanticScholar),
		})
	}
	return papers
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
