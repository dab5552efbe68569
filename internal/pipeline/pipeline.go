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

// Package pipeline orchestrates one ingestion run: fetch the raw tender
// listing, parse each item into a canonical record, chunk the normalized
// records, and deliver the chunks to the queue.
//
// Only fetch and decode failures abort a run. Bad items are skipped, failed
// chunks are logged and the run moves on — the downstream consumer is built
// to tolerate under-delivery.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tenderwatch/etenders-adapter/internal/etenders"
	"github.com/tenderwatch/etenders-adapter/internal/models"
	"github.com/tenderwatch/etenders-adapter/internal/queue"
)

// Fetcher retrieves the raw tender items for one run.
type Fetcher interface {
	FetchOpenTenders(ctx context.Context) ([]map[string]any, error)
}

// Publisher delivers one chunk of normalized records, returning how many
// entries the sink acknowledged.
type Publisher interface {
	PublishBatch(ctx context.Context, batchIndex int, records []map[string]any) (int, error)
}

// ParseFunc converts one raw item into a canonical tender record.
type ParseFunc func(item map[string]any) (models.Tender, error)

// Outcome is the structured result handed back to whatever invoked the job.
// Body is always a small JSON document.
type Outcome struct {
	StatusCode int
	Body       string
}

// Report summarises a completed run. It is observable through logs only —
// skips and delivery failures never change the outward status.
type Report struct {
	Fetched   int
	Parsed    int
	Skipped   int
	Delivered int
}

// Runner executes the fetch → parse → batch → deliver sequence. Each run is
// self-contained; nothing survives between runs.
type Runner struct {
	fetcher   Fetcher
	publisher Publisher
	parse     ParseFunc
	batchSize int
}

// RunnerConfig holds dependencies for the pipeline runner.
type RunnerConfig struct {
	Fetcher   Fetcher
	Publisher Publisher
	Parse     ParseFunc // defaults to etenders.Parse
	BatchSize int       // defaults to queue.MaxBatchSize
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg RunnerConfig) *Runner {
	parse := cfg.Parse
	if parse == nil {
		parse = etenders.Parse
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = queue.MaxBatchSize
	}
	return &Runner{
		fetcher:   cfg.Fetcher,
		publisher: cfg.Publisher,
		parse:     parse,
		batchSize: size,
	}
}

// Run executes a single ingestion run.
func (r *Runner) Run(ctx context.Context) (Outcome, Report) {
	report := Report{}
	log := slog.With("run_id", uuid.New().String())

	log.Info("starting tender processing job")

	// --- Fetch ---
	items, err := r.fetcher.FetchOpenTenders(ctx)
	if err != nil {
		if errors.Is(err, etenders.ErrDecode) {
			log.Error("source API returned invalid JSON", "error", err)
			return errorOutcome("Invalid JSON response from source API"), report
		}
		log.Error("failed to fetch data from source API", "error", err)
		return errorOutcome("Failed to fetch data from source API"), report
	}
	report.Fetched = len(items)

	// --- Validate / Parse ---
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		tender, err := r.parse(item)
		if err != nil {
			report.Skipped++
			log.Warn("skipping tender item",
				"tender_id", parseErrorID(err),
				"error", err,
			)
			continue
		}
		records = append(records, tender.Normalized())
	}
	report.Parsed = len(records)

	log.Info("parsed tender items",
		"parsed", report.Parsed,
		"skipped", report.Skipped,
	)

	// --- Batch & Deliver ---
	for i, batch := range chunkRecords(records, r.batchSize) {
		sent, err := r.publisher.PublishBatch(ctx, i, batch)
		if err != nil {
			log.Error("failed to deliver tender batch",
				"batch", i,
				"size", len(batch),
				"error", err,
			)
			continue
		}
		report.Delivered += sent
	}

	log.Info("tender processing complete",
		"fetched", report.Fetched,
		"parsed", report.Parsed,
		"skipped", report.Skipped,
		"delivered", report.Delivered,
	)

	return successOutcome(), report
}

// chunkRecords partitions records into chunks of at most size, preserving
// order. Empty input yields no chunks.
func chunkRecords(records []map[string]any, size int) [][]map[string]any {
	var chunks [][]map[string]any
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// parseErrorID pulls the offending item's identifier out of a parse
// failure, for the skip log line.
func parseErrorID(err error) string {
	var perr *etenders.ParseError
	if errors.As(err, &perr) {
		return perr.ItemID
	}
	return "Unknown"
}

func successOutcome() Outcome {
	body, _ := json.Marshal(map[string]string{
		"message": "Tender data processed and sent to queue.",
	})
	return Outcome{StatusCode: http.StatusOK, Body: string(body)}
}

func errorOutcome(message string) Outcome {
	body, _ := json.Marshal(map[string]string{"error": message})
	return Outcome{StatusCode: http.StatusBadGateway, Body: string(body)}
}
