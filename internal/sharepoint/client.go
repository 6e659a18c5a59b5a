// Package sharepoint is the remote list store client for SharePoint lists, spoken over
// Microsoft Graph.
package sharepoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/agentstation/fiscal/internal/transport"
	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

// System names this remote in errors and metrics.
const System = "sharepoint"

// Config locates the site holding the lists.
type Config struct {
	BaseURL  string // Graph root, e.g. https://graph.microsoft.com/v1.0
	SiteID   string
	PageSize int
}

// Client reads and writes SharePoint list items.
type Client struct {
	http     *transport.Client
	baseURL  string
	siteID   string
	pageSize int

	mu    sync.Mutex
	lists map[string]*List
}

// New creates a client.
func New(tc *transport.Client, cfg Config) (*Client, error) {
	if cfg.SiteID == "" {
		return nil, errors.NewConfigError(System, "site_id is required", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.GraphBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = constants.PageSize
	}
	return &Client{
		http:     tc,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		siteID:   cfg.SiteID,
		pageSize: cfg.PageSize,
		lists:    make(map[string]*List),
	}, nil
}

func (c *Client) sitePath() string {
	return "/sites/" + c.siteID
}

// List returns a list by display name, discovering its id and columns on first use.
func (c *Client) List(ctx context.Context, name string) (*List, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lists[name]; ok {
		return l, nil
	}

	var lists struct {
		Value []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+c.sitePath()+"/lists?$select=id,name,displayName", nil, &lists); err != nil {
		return nil, errors.WrapResource("list", "lists of site", c.siteID, err)
	}

	var id string
	for _, l := range lists.Value {
		if l.DisplayName == name || l.Name == name {
			id = l.ID
			break
		}
	}
	if id == "" {
		return nil, errors.NewNotFoundError("list", name)
	}

	var cols struct {
		Value []Column `json:"value"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+c.listPath(id)+"/columns", nil, &cols); err != nil {
		return nil, errors.WrapResource("list", "columns of", name, err)
	}

	l := newList(id, name, cols.Value)
	c.lists[name] = l
	logging.FromContext(ctx).Debug().
		Str("list", name).
		Str("list_id", id).
		Int("columns", len(cols.Value)).
		Msg("Discovered list")
	return l, nil
}

func (c *Client) listPath(listID string) string {
	return c.sitePath() + "/lists/" + listID
}

type itemPage struct {
	Value []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// ReadAll returns every item of a list matching filter, following paging links.
func (c *Client) ReadAll(ctx context.Context, list string, filter query.Filter) (records.RemoteSet, error) {
	l, err := c.List(ctx, list)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("expand", "fields")
	params.Set("$top", fmt.Sprint(c.pageSize))
	if !filter.IsEmpty() {
		odata, err := ODataFilter(l, filter)
		if err != nil {
			return nil, err
		}
		params.Set("$filter", odata)
	}
	next := c.baseURL + c.listPath(l.ID) + "/items?" + params.Encode()

	var out records.RemoteSet
	for pages := 0; next != ""; pages++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, errors.WrapResource("create", "request", next, err)
		}
		// filtering on columns that are not indexed
		req.Header.Set("Prefer", "HonorNonIndexedQueriesWarningMayFailRandomly")
		resp, err := c.http.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		var page itemPage
		if err := transport.DecodeResponse(resp, System, &page); err != nil {
			return nil, errors.WrapResource("read", "list", list, err)
		}
		for _, item := range page.Value {
			out = append(out, records.RemoteRecord{ID: item.ID, Record: l.FromAPI(item.Fields)})
		}
		next = page.NextLink
	}

	logging.FromContext(ctx).Debug().Str("list", list).Int("items", len(out)).Msg("Read list items")
	return out, nil
}
