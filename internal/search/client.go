// Package search talks to the Typesense index that mirrors shops and items.
package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const apiKeyHeader = "X-TYPESENSE-API-KEY"

// Index is the document-level API the mirror and the reindex job need.
type Index interface {
	Upsert(ctx context.Context, collection string, doc any) error
	Delete(ctx context.Context, collection, id string) error
	Import(ctx context.Context, collection string, docs []any) (*ImportResult, error)
}

// Client is a Typesense HTTP client.
type Client struct {
	http *resty.Client
}

var _ Index = (*Client)(nil)

// NewClient returns a client for baseURL. timeout bounds every call that does
// not carry a shorter context deadline.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	return &Client{http: c}
}

// APIError is a non-2xx answer from the index.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("typesense status %d: %s", e.Status, e.Message)
}

func apiError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	msg := resp.String()
	if json.Unmarshal(resp.Body(), &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

// Upsert creates or replaces one document.
func (c *Client) Upsert(ctx context.Context, collection string, doc any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("action", "upsert").
		SetBody(doc).
		Post("/collections/{collection}/documents")
	if err != nil {
		return fmt.Errorf("typesense upsert: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Delete removes one document. A document that does not exist is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		Delete("/collections/{collection}/documents/{id}")
	if err != nil {
		return fmt.Errorf("typesense delete: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Success int
	Failed  int
	Errors  []string
}

// Import upserts docs in one JSONL request. It returns an error if any line
// failed, together with the per-line summary.
func (c *Client) Import(ctx context.Context, collection string, docs []any) (*ImportResult, error) {
	if len(docs) == 0 {
		return &ImportResult{}, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encode import document: %w", err)
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("action", "upsert").
		SetHeader("Content-Type", "text/plain").
		SetBody(buf.Bytes()).
		Post("/collections/{collection}/documents/import")
	if err != nil {
		return nil, fmt.Errorf("typesense import: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	res := &ImportResult{}
	sc := bufio.NewScanner(bytes.NewReader(resp.Body()))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var r struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode import result: %w", err)
		}
		if r.Success {
			res.Success++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, r.Error)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read import result: %w", err)
	}
	if res.Failed > 0 {
		return res, fmt.Errorf("typesense import: %d of %d documents failed: %s",
			res.Failed, res.Failed+res.Success, res.Errors[0])
	}
	return res, nil
}

// ExportIDs returns the id of every document in collection.
func (c *Client) ExportIDs(ctx context.Context, collection string) ([]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("include_fields", "id").
		Get("/collections/{collection}/documents/export")
	if err != nil {
		return nil, fmt.Errorf("typesense export: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(resp.Body()))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("decode export line: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return ids, nil
}

// EnsureCollections creates the shops and items collections when missing.
func (c *Client) EnsureCollections(ctx context.Context) error {
	for _, s := range schemas {
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("collection", s.Name).
			Get("/collections/{collection}")
		if err != nil {
			return fmt.Errorf("typesense retrieve %s: %w", s.Name, err)
		}
		if resp.StatusCode() == http.StatusOK {
			continue
		}
		if resp.StatusCode() != http.StatusNotFound {
			return apiError(resp)
		}

		resp, err = c.http.R().SetContext(ctx).SetBody(s).Post("/collections")
		if err != nil {
			return fmt.Errorf("typesense create %s: %w", s.Name, err)
		}
		// 409: created concurrently by another instance
		if resp.IsError() && resp.StatusCode() != http.StatusConflict {
			return apiError(resp)
		}
	}
	return nil
}

// Health reports whether the index answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("typesense health: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// NearbyQuery selects shops within RadiusKM of the center.
type NearbyQuery struct {
	Lat      float64
	Lon      float64
	RadiusKM float64
	Limit    int
	OpenOnly bool
}

// NearbyHit is one shop id with its distance from the center.
type NearbyHit struct {
	ID             string  `json:"id"`
	DistanceMeters float64 `json:"distance_meters"`
}

type searchResponse struct {
	Found int `json:"found"`
	Hits  []struct {
		Document          json.RawMessage    `json:"document"`
		GeoDistanceMeters map[string]float64 `json:"geo_distance_meters"`
	} `json:"hits"`
}

// Nearby returns shop ids ordered by ascending distance, ties by ascending id.
func (c *Client) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyHit, error) {
	lat := strconv.FormatFloat(q.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(q.Lon, 'f', -1, 64)
	filter := fmt.Sprintf("location:(%s, %s, %s km)", lat, lon, strconv.FormatFloat(q.RadiusKM, 'f', -1, 64))
	if q.OpenOnly {
		filter += " && is_open:true"
	}

	params := url.Values{}
	params.Set("q", "*")
	params.Set("query_by", "name")
	params.Set("filter_by", filter)
	params.Set("sort_by", fmt.Sprintf("location(%s, %s):asc", lat, lon))
	params.Set("include_fields", "id")
	params.Set("per_page", strconv.Itoa(q.Limit))

	var out searchResponse
	if err := c.search(ctx, ShopsCollection, params, &out); err != nil {
		return nil, err
	}

	hits := make([]NearbyHit, 0, len(out.Hits))
	for _, h := range out.Hits {
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(h.Document, &doc); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		hits = append(hits, NearbyHit{ID: doc.ID, DistanceMeters: h.GeoDistanceMeters["location"]})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].DistanceMeters != hits[j].DistanceMeters {
			return hits[i].DistanceMeters < hits[j].DistanceMeters
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// SearchShops runs a text query over shop names and descriptions.
func (c *Client) SearchShops(ctx context.Context, q string, limit int) ([]ShopDocument, error) {
	return searchText[ShopDocument](ctx, c, ShopsCollection, q, "name,description,address", limit)
}

// SearchItems runs a text query over item names and descriptions.
func (c *Client) SearchItems(ctx context.Context, q string, limit int) ([]ItemDocument, error) {
	return searchText[ItemDocument](ctx, c, ItemsCollection, q, "name,description", limit)
}

func searchText[T any](ctx context.Context, c *Client, collection, q, queryBy string, limit int) ([]T, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("query_by", queryBy)
	params.Set("per_page", strconv.Itoa(limit))

	var out searchResponse
	if err := c.search(ctx, collection, params, &out); err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(out.Hits))
	for _, h := range out.Hits {
		var d T
		if err := json.Unmarshal(h.Document, &d); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (c *Client) search(ctx context.Context, collection string, params url.Values, out *searchResponse) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParamsFromValues(params).
		Get("/collections/{collection}/documents/search")
	if err != nil {
		return fmt.Errorf("typesense search: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}
