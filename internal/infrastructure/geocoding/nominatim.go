// Package geocoding 把出生地文本解析为经纬度
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"astro-persona-api/internal/config"
	"astro-persona-api/internal/domain/entity"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
	"astro-persona-api/pkg/tracer"
)

const maxBodyBytes = 1 << 20

// Client Nominatim 兼容的地理编码客户端
type Client struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// NewClient 创建地理编码客户端
func NewClient(cfg config.GeocodingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 5
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "astro-persona-api"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  ua,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve 返回最匹配的坐标
func (c *Client) Resolve(ctx context.Context, query string) (*entity.Location, error) {
	raw, err := c.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}

	var places []place
	if err := json.Unmarshal(raw, &places); err != nil {
		metrics.GeocodingRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, apperrors.ErrGeocodingFailed.WithError(fmt.Errorf("decode geocoding response: %w", err))
	}
	if len(places) == 0 {
		metrics.GeocodingRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.ErrGeocodingFailed.WithDetail(fmt.Sprintf("no match for %q", query))
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		metrics.GeocodingRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, apperrors.ErrGeocodingFailed.WithDetail("invalid coordinates in geocoding response")
	}

	metrics.GeocodingRequestsTotal.WithLabelValues("success").Inc()
	return &entity.Location{Latitude: lat, Longitude: lon, DisplayName: places[0].DisplayName}, nil
}

// Predictions 原样返回候选地点列表
func (c *Client) Predictions(ctx context.Context, query string) (json.RawMessage, error) {
	raw, err := c.search(ctx, query, c.limit)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		metrics.GeocodingRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, apperrors.ErrGeocodingFailed.WithDetail("geocoding provider returned invalid JSON")
	}
	metrics.GeocodingRequestsTotal.WithLabelValues("success").Inc()
	return json.RawMessage(raw), nil
}

func (c *Client) search(ctx context.Context, query string, limit int) (body []byte, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrMissingLocation
	}

	ctx, span := tracer.Start(ctx, "geocoding.search")
	span.SetAttributes(attribute.String("geocoding.query", query))
	defer func() { tracer.End(span, err) }()

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.ErrGeocodingFailed.WithError(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GeocodingRequestsTotal.WithLabelValues("transport_error").Inc()
		logger.Warn(ctx, "geocoding request failed", "error", err.Error())
		return nil, apperrors.ErrGeocodingFailed.WithError(err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.GeocodingRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, apperrors.ErrGeocodingFailed.WithError(err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.GeocodingRequestsTotal.WithLabelValues("http_" + strconv.Itoa(resp.StatusCode)).Inc()
		logger.Warn(ctx, "geocoding provider returned error status", "status", resp.StatusCode)
		return nil, apperrors.ErrGeocodingFailed.WithDetail(fmt.Sprintf("provider status %d", resp.StatusCode))
	}
	return body, nil
}
