// Package airtable reads whole tables from the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
)

// FetchError is returned when Airtable answers a page request with a non-2xx status.
type FetchError struct {
	Table      string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("airtable: table %q returned status %d", e.Table, e.StatusCode)
}

// listResponse is one page of a list-records call.
type listResponse struct {
	Records []model.RawRecord `json:"records"`
	Offset  string            `json:"offset"`
}

// Client fetches Airtable tables. It is safe for concurrent use.
type Client struct {
	cfg    config.AirtableConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewClient builds a client from the airtable configuration. An invalid proxy
// URL is logged and ignored.
func NewClient(cfg config.AirtableConfig) *Client {
	logger := logging.Component("airtable")

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid proxy url; connecting directly")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout()},
		logger: logger,
	}
}

// ErrOffsetRepeated is returned when a page hands back a cursor already followed.
var ErrOffsetRepeated = errors.New("airtable: offset cursor repeated")

// FetchTable returns every record of ref, following the offset cursor until the
// last page. Any failed page aborts the whole fetch.
func (c *Client) FetchTable(ctx context.Context, ref config.TableRef) ([]model.RawRecord, error) {
	var (
		records []model.RawRecord
		offset  string
		page    int
		seen    = make(map[string]struct{})
	)
	for {
		page++
		resp, err := c.fetchPage(ctx, ref, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, resp.Records...)
		c.logger.Debug().Str("table", ref.Table).Int("page", page).Int("records", len(records)).Msg("fetched page")

		if resp.Offset == "" {
			return records, nil
		}
		if _, dup := seen[resp.Offset]; dup {
			return nil, fmt.Errorf("table %q page %d: %w", ref.Table, page, ErrOffsetRepeated)
		}
		seen[resp.Offset] = struct{}{}
		offset = resp.Offset
	}
}

// FetchSnapshot reads both configured tables.
func (c *Client) FetchSnapshot(ctx context.Context) (model.RawSnapshot, error) {
	wos, err := c.FetchTable(ctx, c.cfg.WorkOrders)
	if err != nil {
		return model.RawSnapshot{}, fmt.Errorf("fetch work orders: %w", err)
	}
	techs, err := c.FetchTable(ctx, c.cfg.Technicians)
	if err != nil {
		return model.RawSnapshot{}, fmt.Errorf("fetch technicians: %w", err)
	}
	c.logger.Info().Int("work_orders", len(wos)).Int("technicians", len(techs)).Msg("snapshot fetched")
	return model.RawSnapshot{WorkOrders: nonNil(wos), Technicians: nonNil(techs)}, nil
}

// Fetch implements dashboard.Source.
func (c *Client) Fetch(ctx context.Context) (model.RawSnapshot, error) {
	return c.FetchSnapshot(ctx)
}

func (c *Client) pageURL(ref config.TableRef, offset string) string {
	q := url.Values{}
	if ref.View != "" {
		q.Set("view", ref.View)
	}
	if c.cfg.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	}
	if offset != "" {
		q.Set("offset", offset)
	}
	u := c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(ref.Table)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func (c *Client) fetchPage(ctx context.Context, ref config.TableRef, offset string) (*listResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(ref, offset), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Table: ref.Table, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal airtable response: %w", err)
	}
	return &page, nil
}

func nonNil(records []model.RawRecord) []model.RawRecord {
	if records == nil {
		return []model.RawRecord{}
	}
	return records
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
