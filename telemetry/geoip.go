package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type geoLocation struct {
	ContinentCode string
	CountryCode   string
}

type ipAPIQuery struct {
	Query  string `json:"query"`
	Fields string `json:"fields"`
}

type ipAPIResponse struct {
	ContinentCode string `json:"continentCode"`
	CountryCode   string `json:"countryCode"`
	Query         string `json:"query"`
}

// lookupIPs batches every distinct IP in the given requests into a
// single POST to ip-api.com/batch, matching requests.rs's lookup_ips.
func (l *Logger) lookupIPs(ctx context.Context, batch []*Request) (map[string]geoLocation, error) {
	seen := make(map[string]struct{}, len(batch))
	queries := make([]ipAPIQuery, 0, len(batch))
	for _, r := range batch {
		ip := r.IP.String()
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		queries = append(queries, ipAPIQuery{Query: ip, Fields: "continentCode,countryCode,query"})
	}

	payload, err := json.Marshal(queries)
	if err != nil {
		return nil, fmt.Errorf("encode geo-ip request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://ip-api.com/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("geo-ip request: %w", err)
	}
	defer resp.Body.Close()

	var parsed []ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode geo-ip response: %w", err)
	}

	result := make(map[string]geoLocation, len(parsed))
	for _, entry := range parsed {
		result[entry.Query] = geoLocation{ContinentCode: entry.ContinentCode, CountryCode: entry.CountryCode}
	}
	return result, nil
}
