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

// eTenders Source Adapter
//
// One-shot job that pulls the current page of open tenders from the
// National Treasury eTenders portal, normalizes them into the canonical
// tender record shape, and forwards them in ordered batches to the shared
// AI-tagging queue. Intended to be triggered on a schedule; each invocation
// is a complete, self-contained run.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tenderwatch/etenders-adapter/internal/config"
	"github.com/tenderwatch/etenders-adapter/internal/etenders"
	"github.com/tenderwatch/etenders-adapter/internal/pipeline"
	"github.com/tenderwatch/etenders-adapter/internal/queue"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting eTenders source adapter")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"api_url", cfg.APIURL,
		"queue_url", cfg.QueueURL,
		"group_id", cfg.MessageGroupID,
		"fetch_timeout", cfg.FetchTimeout,
	)

	ctx := context.Background()

	// --- AWS SQS Client ---
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	// --- Wire the pipeline ---
	// The http.Client carries the hard fetch timeout; expiry aborts the run
	// as a fetch failure.
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	fetcher := etenders.NewClient(httpClient, cfg.APIURL, cfg.UserAgent)
	publisher := queue.NewPublisher(sqsClient, cfg.QueueURL, cfg.MessageGroupID)

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Fetcher:   fetcher,
		Publisher: publisher,
	})

	// --- Run ---
	outcome, report := runner.Run(ctx)

	slog.Info("adapter run finished",
		"status", outcome.StatusCode,
		"body", outcome.Body,
		"fetched", report.Fetched,
		"parsed", report.Parsed,
		"skipped", report.Skipped,
		"delivered", report.Delivered,
	)

	if outcome.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
