package autotask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/totalcareit/partner-metrics/internal/metrics"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// DefaultZoneInfoURL is the global discovery endpoint shared by every Autotask zone.
const DefaultZoneInfoURL = "https://webservices.autotask.net/ATServicesRest/V1.0/zoneInformation"

const apiRoot = "ATServicesRest"

// ZoneInfo is the tenant-specific API location returned by zone discovery.
type ZoneInfo struct {
	// BaseURL is the zone host without the API root, e.g. https://webservices5.autotask.net.
	BaseURL  string
	ZoneName string
	WebURL   string
}

// ZoneResolver looks up which Autotask zone serves a given API user.
type ZoneResolver struct {
	zoneInfoURL string
	httpClient  *http.Client
}

// NewZoneResolver constructs a resolver. An empty URL selects DefaultZoneInfoURL.
func NewZoneResolver(zoneInfoURL string, httpClient *http.Client) *ZoneResolver {
	if strings.TrimSpace(zoneInfoURL) == "" {
		zoneInfoURL = DefaultZoneInfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ZoneResolver{zoneInfoURL: zoneInfoURL, httpClient: httpClient}
}

// Resolve performs the discovery call. Nothing is memoized here; Client keeps the result.
func (r *ZoneResolver) Resolve(ctx context.Context, creds Credentials) (info ZoneInfo, err error) {
	defer func() { metrics.ObserveZoneResolution(err) }()

	if err := creds.Validate(); err != nil {
		return ZoneInfo{}, err
	}

	endpoint, err := url.Parse(r.zoneInfoURL)
	if err != nil {
		return ZoneInfo{}, utils.ConfigurationError("autotask.zone", fmt.Sprintf("invalid zone info url %q", r.zoneInfoURL))
	}
	query := endpoint.Query()
	query.Set("user", creds.Username)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return ZoneInfo{}, utils.NetworkError("autotask.zone", "build request", err)
	}
	req.Header.Set("UserName", creds.Username)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ZoneInfo{}, utils.NetworkError("autotask.zone", "zone info request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); len(strings.TrimSpace(string(body))) > 0 {
			cause = errors.New(strings.TrimSpace(string(body)))
		}
		return ZoneInfo{}, utils.NetworkError("autotask.zone",
			fmt.Sprintf("zone info request returned %d", resp.StatusCode), cause)
	}

	var payload struct {
		URL      string `json:"url"`
		ZoneName string `json:"zoneName"`
		WebURL   string `json:"webUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ZoneInfo{}, utils.NetworkError("autotask.zone", "decode zone info", err)
	}
	base := normaliseBaseURL(payload.URL)
	if base == "" {
		return ZoneInfo{}, utils.NetworkError("autotask.zone", "zone info response carried no url", nil)
	}
	return ZoneInfo{BaseURL: base, ZoneName: payload.ZoneName, WebURL: payload.WebURL}, nil
}

// normaliseBaseURL strips the API root so endpoint paths can always be appended as
// /ATServicesRest/V1.0/...; zone discovery returns the URL with the root included.
func normaliseBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(strings.ToLower(base), "/"+strings.ToLower(apiRoot)) {
		base = base[:len(base)-len(apiRoot)-1]
	}
	return strings.TrimRight(base, "/")
}
