// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package etenders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

var (
	// ErrFetch marks transport failures and non-2xx responses from the
	// portal API. The whole run aborts on it.
	ErrFetch = errors.New("fetch from eTenders API failed")

	// ErrDecode marks a response body that is not valid JSON.
	ErrDecode = errors.New("invalid JSON from eTenders API")
)

// Client retrieves the open-tender listing from the eTenders portal.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

// NewClient creates a portal client. The injected http.Client carries the
// fetch timeout; the configured URL already selects page size and the
// open-tenders status filter.
func NewClient(httpClient *http.Client, apiURL, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		userAgent:  userAgent,
	}
}

// listingResponse is the top-level shape of the portal's paginated listing.
// Only the "data" key matters; the portal's DataTables bookkeeping fields
// are ignored.
type listingResponse struct {
	Data []map[string]any `json:"data"`
}

// FetchOpenTenders issues a single GET for the current page of open tenders
// and returns the raw items. A missing "data" key is an empty result, not
// an error.
//
// The portal rejects unidentified clients, so the request carries a browser
// User-Agent.
func (c *Client) FetchOpenTenders(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode)
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if listing.Data == nil {
		listing.Data = []map[string]any{}
	}

	slog.Info("fetched tender items from eTenders API", "count", len(listing.Data))
	return listing.Data, nil
}
