package traffic

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"overlay/config"
	"overlay/internal/errors"
)

// Client pages through an ArcGIS-style query endpoint. Any network or
// decode failure aborts the whole fetch; the pipeline must never proceed
// with a partial dataset.
type Client struct {
	cfg        config.TrafficConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a traffic API client with the configured fetch timeout.
func NewClient(cfg config.TrafficConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// FetchFeatures retrieves every feature the configured query matches,
// following resultOffset pagination until the service stops reporting
// exceededTransferLimit or returns an empty page.
func (c *Client) FetchFeatures(ctx context.Context) ([]Feature, error) {
	var all []Feature
	offset := 0

	for {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		if len(page.Features) == 0 {
			break
		}
		all = append(all, page.Features...)
		c.logger.Info("fetched traffic page",
			slog.Int("offset", offset),
			slog.Int("features", len(page.Features)),
			slog.Int("total", len(all)))

		if !page.ExceededTransferLimit {
			break
		}
		offset += c.cfg.PageSize
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) (*queryResponse, error) {
	params := url.Values{}
	params.Set("where", c.cfg.Where)
	params.Set("outFields", c.cfg.OutFields)
	params.Set("returnGeometry", "true")
	params.Set("outSR", "3857")
	params.Set("f", "json")
	params.Set("resultOffset", strconv.Itoa(offset))
	params.Set("resultRecordCount", strconv.Itoa(c.cfg.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build traffic query request")
	}
	req.Header.Set("User-Agent", "route-traffic-overlay/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch traffic page at offset %d", offset)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("traffic query at offset %d returned status %d", offset, resp.StatusCode)
	}

	var page queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrapf(err, "decode traffic page at offset %d", offset)
	}
	if page.Error != nil {
		return nil, errors.Errorf("traffic query at offset %d failed: %d %s", offset, page.Error.Code, page.Error.Message)
	}

	return &page, nil
}
