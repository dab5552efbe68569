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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tenderwatch/etenders-adapter/internal/etenders"
)

// --- Mock fetcher ---

type mockFetcher struct {
	items []map[string]any
	err   error
}

func (m *mockFetcher) FetchOpenTenders(_ context.Context) ([]map[string]any, error) {
	return m.items, m.err
}

// --- Mock publisher ---

type mockPublisher struct {
	batches   [][]map[string]any
	failIndex int         // batch index whose call errors; -1 = none
	ackCounts map[int]int // overrides acknowledged count per batch index
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{failIndex: -1}
}

func (m *mockPublisher) PublishBatch(_ context.Context, batchIndex int, records []map[string]any) (int, error) {
	m.batches = append(m.batches, records)
	if batchIndex == m.failIndex {
		return 0, errors.New("service unavailable")
	}
	if n, ok := m.ackCounts[batchIndex]; ok {
		return n, nil
	}
	return len(records), nil
}

// --- Test helpers ---

func validItems(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"id":          fmt.Sprintf("%d", i+1),
			"description": fmt.Sprintf("Tender %d", i+1),
			"tenderNo":    fmt.Sprintf("ET%d", i+1),
		})
	}
	return items
}

// TestChunkRecords verifies the batching property: ceil(N/10) chunks, all
// full except possibly the last, original order preserved.
func TestChunkRecords(t *testing.T) {
	cases := []struct {
		n     int
		sizes []int
	}{
		{0, nil},
		{1, []int{1}},
		{10, []int{10}},
		{11, []int{10, 1}},
		{23, []int{10, 10, 3}},
		{30, []int{10, 10, 10}},
	}

	for _, tc := range cases {
		records := make([]map[string]any, tc.n)
		for i := range records {
			records[i] = map[string]any{"pos": i}
		}

		chunks := chunkRecords(records, 10)
		if len(chunks) != len(tc.sizes) {
			t.Errorf("n=%d: got %d chunks, want %d", tc.n, len(chunks), len(tc.sizes))
			continue
		}

		pos := 0
		for i, chunk := range chunks {
			if len(chunk) != tc.sizes[i] {
				t.Errorf("n=%d: chunk %d has %d records, want %d", tc.n, i, len(chunk), tc.sizes[i])
			}
			for _, rec := range chunk {
				if rec["pos"] != pos {
					t.Errorf("n=%d: order broken at position %d", tc.n, pos)
				}
				pos++
			}
		}
	}
}

// TestRun_EndToEnd runs the full pipeline against a mock portal server: one
// valid item in, one normalized record delivered, success outcome out.
func TestRun_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		data, _ := json.Marshal(map[string]any{
			"data": []map[string]any{
				{
					"id":             "1",
					"description":    "Road Works",
					"datePublished":  "2025-10-01T09:00:00",
					"closingDate":    "2025-10-31T16:00:00",
					"tenderNo":       "ET1",
					"categoryName":   "Infra",
					"tenderType":     "Open",
					"departmentName": "Transport",
				},
			},
		})
		w.Write(data)
	}))
	defer server.Close()

	publisher := newMockPublisher()
	runner := NewRunner(RunnerConfig{
		Fetcher:   etenders.NewClient(server.Client(), server.URL, "test-agent"),
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", outcome.StatusCode, outcome.Body)
	}
	if !strings.Contains(outcome.Body, "Tender data processed") {
		t.Errorf("body = %q", outcome.Body)
	}
	if report.Fetched != 1 || report.Parsed != 1 || report.Skipped != 0 || report.Delivered != 1 {
		t.Errorf("report = %+v", report)
	}

	if len(publisher.batches) != 1 || len(publisher.batches[0]) != 1 {
		t.Fatalf("expected one chunk of one record, got %v", publisher.batches)
	}
	rec := publisher.batches[0][0]
	if rec["title"] != "Road Works" || rec["description"] != "Road Works" {
		t.Errorf("title/description = %v/%v, want Road Works for both", rec["title"], rec["description"])
	}
	if rec["tenderNumber"] != "ET1" {
		t.Errorf("tenderNumber = %v, want ET1", rec["tenderNumber"])
	}
	if rec["source"] != "eTenders" {
		t.Errorf("source = %v, want eTenders", rec["source"])
	}
}

// TestRun_FetchFailure verifies the 502 outcome for a network-level fetch
// failure, with no parsing or delivery attempted.
func TestRun_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	publisher := newMockPublisher()
	runner := NewRunner(RunnerConfig{
		Fetcher:   etenders.NewClient(&http.Client{}, url, "test-agent"),
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", outcome.StatusCode)
	}
	if !strings.Contains(outcome.Body, "Failed to fetch data from source API") {
		t.Errorf("body = %q", outcome.Body)
	}
	if report.Parsed != 0 || report.Delivered != 0 {
		t.Errorf("report = %+v, want zero parsed and delivered", report)
	}
	if len(publisher.batches) != 0 {
		t.Errorf("expected no delivery attempts, got %d", len(publisher.batches))
	}
}

// TestRun_DecodeFailure verifies the distinct 502 outcome for a response
// body that is not valid JSON.
func TestRun_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not json"))
	}))
	defer server.Close()

	runner := NewRunner(RunnerConfig{
		Fetcher:   etenders.NewClient(server.Client(), server.URL, "test-agent"),
		Publisher: newMockPublisher(),
	})

	outcome, _ := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", outcome.StatusCode)
	}
	if !strings.Contains(outcome.Body, "Invalid JSON response from source API") {
		t.Errorf("body = %q", outcome.Body)
	}
}

// TestRun_BatchSizes verifies that 23 valid items produce chunks of
// 10, 10, 3 in order.
func TestRun_BatchSizes(t *testing.T) {
	publisher := newMockPublisher()
	runner := NewRunner(RunnerConfig{
		Fetcher:   &mockFetcher{items: validItems(23)},
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", outcome.StatusCode)
	}
	if report.Delivered != 23 {
		t.Errorf("delivered = %d, want 23", report.Delivered)
	}

	sizes := make([]int, len(publisher.batches))
	for i, b := range publisher.batches {
		sizes[i] = len(b)
	}
	want := []int{10, 10, 3}
	if len(sizes) != len(want) {
		t.Fatalf("chunk sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("chunk sizes = %v, want %v", sizes, want)
		}
	}

	// Order across chunks must match the source order.
	if publisher.batches[2][2]["tenderNumber"] != "ET23" {
		t.Errorf("last record = %v, want ET23", publisher.batches[2][2]["tenderNumber"])
	}
}

// TestRun_SkipsBadItems verifies that a structurally invalid item is
// counted and skipped without failing the run.
func TestRun_SkipsBadItems(t *testing.T) {
	items := validItems(4)
	// No "id" at all — the one condition that fails an item outright.
	items = append(items, map[string]any{"description": "broken"})

	publisher := newMockPublisher()
	runner := NewRunner(RunnerConfig{
		Fetcher:   &mockFetcher{items: items},
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", outcome.StatusCode)
	}
	if report.Fetched != 5 || report.Parsed != 4 || report.Skipped != 1 {
		t.Errorf("report = %+v, want fetched=5 parsed=4 skipped=1", report)
	}
}

// TestRun_ChunkFailureContinues verifies that a failed delivery call skips
// that chunk but the remaining chunks are still attempted.
func TestRun_ChunkFailureContinues(t *testing.T) {
	publisher := newMockPublisher()
	publisher.failIndex = 0

	runner := NewRunner(RunnerConfig{
		Fetcher:   &mockFetcher{items: validItems(15)},
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", outcome.StatusCode)
	}
	if len(publisher.batches) != 2 {
		t.Fatalf("expected both chunks attempted, got %d", len(publisher.batches))
	}
	if report.Delivered != 5 {
		t.Errorf("delivered = %d, want 5 (second chunk only)", report.Delivered)
	}
}

// TestRun_PartialSinkFailure verifies that entries rejected within a
// successful call lower the delivered count but not the outcome.
func TestRun_PartialSinkFailure(t *testing.T) {
	publisher := newMockPublisher()
	publisher.ackCounts = map[int]int{0: 3}

	runner := NewRunner(RunnerConfig{
		Fetcher:   &mockFetcher{items: validItems(5)},
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", outcome.StatusCode)
	}
	if report.Delivered != 3 {
		t.Errorf("delivered = %d, want 3", report.Delivered)
	}
}

// TestRun_EmptyListing verifies that zero fetched items complete cleanly
// with zero delivery calls.
func TestRun_EmptyListing(t *testing.T) {
	publisher := newMockPublisher()
	runner := NewRunner(RunnerConfig{
		Fetcher:   &mockFetcher{items: []map[string]any{}},
		Publisher: publisher,
	})

	outcome, report := runner.Run(context.Background())

	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", outcome.StatusCode)
	}
	if report.Fetched != 0 || report.Delivered != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
	if len(publisher.batches) != 0 {
		t.Errorf("expected no delivery calls, got %d", len(publisher.batches))
	}
}
