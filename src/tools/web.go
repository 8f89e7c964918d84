package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
	maxPageBytes         = 2 << 20
	maxPageText          = 20000
)

// ---------------------------- web_search --------------------------------------

// WebSearch queries Google Custom Search.
type WebSearch struct {
	apiKey   string
	engineID string
	opts     []option.ClientOption
	log      *logging.Logger

	once    sync.Once
	svc     *customsearch.Service
	initErr error
}

// NewWebSearch returns the web_search tool. Extra client options are
// appended after the API key.
func NewWebSearch(apiKey, engineID string, log *logging.Logger, opts ...option.ClientOption) *WebSearch {
	return &WebSearch{apiKey: apiKey, engineID: engineID, opts: opts, log: log}
}

// SearchResult is one web_search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (t *WebSearch) Spec() Spec {
	return Spec{
		Name:        "web_search",
		Description: "Search the web and return titles, links and snippets of the top results.",
		InputSchema: object(map[string]any{
			"search_term": prop("string", "What to search for."),
			"num_results": prop("integer", "Number of results, 1-10 (default 5)."),
		}, "search_term"),
	}
}

func (t *WebSearch) service(ctx context.Context) (*customsearch.Service, error) {
	t.once.Do(func() {
		opts := append([]option.ClientOption{option.WithAPIKey(t.apiKey)}, t.opts...)
		t.svc, t.initErr = customsearch.NewService(ctx, opts...)
	})
	return t.svc, t.initErr
}

func (t *WebSearch) Invoke(ctx context.Context, req Request) (Response, error) {
	var args struct {
		SearchTerm string `json:"search_term"`
		NumResults int    `json:"num_results"`
	}
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(args.SearchTerm) == "" {
		return Response{}, errors.New("search_term is empty")
	}
	n := args.NumResults
	if n <= 0 {
		n = defaultSearchResults
	}
	n = min(n, maxSearchResults)

	svc, err := t.service(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("web search client: %w", err)
	}
	t.log.Debug().Str("query", args.SearchTerm).Int("num", n).Msg("custom search")
	res, err := svc.Cse.List().Q(args.SearchTerm).Cx(t.engineID).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return Response{}, fmt.Errorf("web search: %w", err)
	}
	results := make([]SearchResult, 0, len(res.Items))
	for _, item := range res.Items {
		results = append(results, SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return JSON(map[string]any{"query": args.SearchTerm, "results": results})
}

// ---------------------------- fetch_webpage -----------------------------------

type fetchWebpage struct {
	client *http.Client
	log    *logging.Logger
}

// PageResult is the structured result of fetch_webpage.
type PageResult struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

func (t *fetchWebpage) Spec() Spec {
	return Spec{
		Name:        "fetch_webpage",
		Description: "Fetch a web page and return its readable text with markup, scripts and styles removed.",
		InputSchema: object(map[string]any{
			"url": prop("string", "Absolute http or https URL."),
		}, "url"),
	}
}

func (t *fetchWebpage) Invoke(ctx context.Context, req Request) (Response, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	u, err := url.Parse(strings.TrimSpace(args.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Response{}, fmt.Errorf("invalid url %q", args.URL)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, err
	}
	hreq.Header.Set("User-Agent", "cursor-agent/1.0")
	resp, err := t.client.Do(hreq)
	if err != nil {
		return Response{}, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("failed to fetch %s: %s", u, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read %s: %w", u, err)
	}

	res := PageResult{URL: u.String()}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "html") || (ct == "" && bytes.Contains(bytes.ToLower(body[:min(len(body), 512)]), []byte("<html"))) {
		res.Title, res.Content, err = htmlText(body)
		if err != nil {
			return Response{}, err
		}
	} else {
		res.Content = string(body)
	}
	res.Content, res.Truncated = truncate(res.Content, maxPageText)
	t.log.Debug().Str("url", res.URL).Int("chars", len(res.Content)).Msg("fetched page")
	return JSON(res)
}

var skipTextIn = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "svg": true}

// htmlText returns the document title and its visible text, one text node
// per line.
func htmlText(doc []byte) (title, text string, err error) {
	var (
		sb      strings.Builder
		skip    int
		inTitle bool
	)
	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(title), strings.TrimSpace(sb.String()), nil
			}
			return "", "", fmt.Errorf("parse html: %w", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTextIn[tag] {
				skip++
			}
			inTitle = tag == "title"
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipTextIn[string(name)] && skip > 0 {
				skip--
			}
			inTitle = false
		case html.TextToken:
			if skip > 0 {
				continue
			}
			trimmed := strings.Join(strings.Fields(string(z.Text())), " ")
			if trimmed == "" {
				continue
			}
			if inTitle {
				title = trimmed
				continue
			}
			sb.WriteString(trimmed)
			sb.WriteByte('\n')
		}
	}
}

func newFetchWebpage(client *http.Client, log *logging.Logger) *fetchWebpage {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &fetchWebpage{client: client, log: log}
}
