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

// Package queue publishes normalized tender records to the shared SQS FIFO
// queue. This is the bridge between the Go source adapters and the AI
// tagging workers downstream.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MaxBatchSize is the SQS SendMessageBatch entry limit.
const MaxBatchSize = 10

// BatchSender is the one SQS operation the publisher needs. *sqs.Client
// satisfies it; tests substitute a mock.
type BatchSender interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// Publisher sends batches of normalized tender records to one FIFO queue.
// The group ID keeps this source's messages ordered independently of the
// other adapters sharing the queue.
type Publisher struct {
	client   BatchSender
	queueURL string
	groupID  string
}

// NewPublisher creates a publisher targeting the specified FIFO queue.
func NewPublisher(client BatchSender, queueURL, groupID string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		groupID:  groupID,
	}
}

// PublishBatch sends one chunk of records as a single SendMessageBatch call
// and returns how many entries the queue acknowledged.
//
// Entry IDs are deterministic from the batch index and position. The
// deduplication ID is a digest of the message body, so a re-invoked run
// cannot enqueue the same record twice within the queue's dedup window.
// Entries the queue rejects inside an otherwise successful call are logged
// individually and not retried.
func (p *Publisher) PublishBatch(ctx context.Context, batchIndex int, records []map[string]any) (int, error) {
	if len(records) > MaxBatchSize {
		return 0, fmt.Errorf("batch %d has %d records, queue limit is %d", batchIndex, len(records), MaxBatchSize)
	}

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(records))
	for i, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			slog.Error("dropping unmarshalable tender record",
				"batch", batchIndex,
				"position", i,
				"error", err,
			)
			continue
		}

		digest := sha256.Sum256(body)
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:                     aws.String(fmt.Sprintf("tender_message_%d_%d", batchIndex, i)),
			MessageBody:            aws.String(string(body)),
			MessageGroupId:         aws.String(p.groupID),
			MessageDeduplicationId: aws.String(hex.EncodeToString(digest[:])),
		})
	}

	if len(entries) == 0 {
		return 0, nil
	}

	out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(p.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return 0, fmt.Errorf("send message batch: %w", err)
	}

	for _, f := range out.Failed {
		slog.Error("queue rejected batch entry",
			"entry_id", aws.ToString(f.Id),
			"code", aws.ToString(f.Code),
			"reason", aws.ToString(f.Message),
			"sender_fault", f.SenderFault,
		)
	}

	slog.Info("published tender batch to queue",
		"batch", batchIndex,
		"entries", len(entries),
		"successful", len(out.Successful),
		"failed", len(out.Failed),
		"group_id", p.groupID,
	)

	return len(out.Successful), nil
}
