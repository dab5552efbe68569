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

// Package etenders is the source variant for the National Treasury eTenders
// portal. It fetches the open-tender listing from the portal's paginated API
// and parses each raw item into the canonical tender record.
package etenders

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tenderwatch/etenders-adapter/internal/models"
)

// Source identifies this adapter in every record it produces.
const Source = "eTenders"

// ParseError reports a raw item that could not be interpreted as a tender
// at all. Partial defects (bad dates, malformed document entries) never
// produce a ParseError — they degrade to absent/empty fields.
type ParseError struct {
	ItemID string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tender %s: %s", e.ItemID, e.Reason)
}

// Tender is a listing from the eTenders portal in canonical form.
type Tender struct {
	models.TenderBase

	TenderNumber string
	Category     string
	TenderType   string
	Department   string
}

// dateLayouts are the timestamp shapes the portal has been seen to emit.
// The API usually omits a zone offset.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTender builds a Tender from one raw item of the portal's listing
// response.
//
// Missing optional strings become empty strings, missing or unparseable
// dates become nil, and document entries that are not {name, url} objects
// are dropped. It fails only when the item has no "id" at all or carries a
// non-string description — those items cannot be trusted as tenders.
func ParseTender(item map[string]any) (*Tender, error) {
	rawID, ok := item["id"]
	if !ok {
		return nil, &ParseError{ItemID: "Unknown", Reason: `missing required field "id"`}
	}
	id := fmt.Sprint(rawID)

	rawDesc, ok := item["description"]
	if !ok {
		rawDesc = ""
	}
	desc, ok := rawDesc.(string)
	if !ok {
		return nil, &ParseError{ItemID: id, Reason: fmt.Sprintf("description has non-string type %T", rawDesc)}
	}
	// The portal does not distinguish title from description, so the one
	// free-text field serves as both.
	desc = strings.TrimSpace(desc)

	return &Tender{
		TenderBase: models.TenderBase{
			Title:               desc,
			Description:         desc,
			Source:              Source,
			PublishedDate:       parseDate(item, "datePublished", id),
			ClosingDate:         parseDate(item, "closingDate", id),
			SupportingDocuments: parseDocuments(item["supportingDocuments"]),
			Tags:                []models.Tag{},
		},
		TenderNumber: trimmedString(item, "tenderNo"),
		Category:     trimmedString(item, "categoryName"),
		TenderType:   trimmedString(item, "tenderType"),
		Department:   trimmedString(item, "departmentName"),
	}, nil
}

// Parse adapts ParseTender to the record interface for pipeline wiring.
func Parse(item map[string]any) (models.Tender, error) {
	t, err := ParseTender(item)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Normalized emits the canonical mapping: the base fields plus the
// portal-specific ones.
func (t *Tender) Normalized() map[string]any {
	m := t.NormalizedBase()
	m["tenderNumber"] = t.TenderNumber
	m["category"] = t.Category
	m["tenderType"] = t.TenderType
	m["department"] = t.Department
	return m
}

// parseDate reads an ISO-8601-ish timestamp field. A missing, empty, or
// unparseable value yields nil; the bad value is logged, never escalated.
func parseDate(item map[string]any, key, itemID string) *time.Time {
	raw, ok := item[key]
	if !ok || raw == nil {
		return nil
	}

	s, ok := raw.(string)
	if !ok {
		slog.Warn("tender has non-string date field",
			"tender_id", itemID,
			"field", key,
		)
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}

	slog.Warn("tender has invalid date field",
		"tender_id", itemID,
		"field", key,
		"value", s,
	)
	return nil
}

// parseDocuments extracts supporting documents from an array-shaped value.
// Entries that are not objects holding both "name" and "url" strings are
// skipped silently — they are field defects, not item failures.
func parseDocuments(raw any) []models.SupportingDocument {
	docs := []models.SupportingDocument{}

	entries, ok := raw.([]any)
	if !ok {
		return docs
	}

	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, nameOK := m["name"].(string)
		url, urlOK := m["url"].(string)
		if !nameOK || !urlOK {
			continue
		}
		docs = append(docs, models.SupportingDocument{Name: name, URL: url})
	}

	return docs
}

// trimmedString reads an optional free-text field, defaulting to "" when
// the key is absent or the value is not a string.
func trimmedString(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return strings.TrimSpace(s)
}
