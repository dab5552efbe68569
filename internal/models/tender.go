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

// Package models defines the canonical tender record shapes shared by all
// source adapters feeding the tagging queue.
package models

import "time"

// SupportingDocument is a downloadable attachment declared by a tender
// (specifications, forms, etc.).
type SupportingDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Tag is an opaque classification object. Adapters never populate tags —
// the field rides along empty and is filled in by the downstream AI
// tagging service.
type Tag map[string]any

// Tender is the capability every source variant provides: rendering itself
// as the canonical normalized mapping that goes onto the queue. Each variant
// package pairs this with its own ParseTender factory for the source's raw
// API shape.
type Tender interface {
	Normalized() map[string]any
}

// TenderBase holds the fields common to every tender regardless of source.
// Source variants embed it and add their own fields.
//
// A nil PublishedDate or ClosingDate means the source did not provide a
// usable value; that is valid, not an error.
type TenderBase struct {
	Title               string
	Description         string
	Source              string
	PublishedDate       *time.Time
	ClosingDate         *time.Time
	SupportingDocuments []SupportingDocument
	Tags                []Tag
}

// NormalizedBase emits the base fields of the canonical mapping. Variants
// call this from Normalized and add their source-specific keys on top.
//
// Dates render as RFC 3339 strings, or nil when absent. The document and
// tag slices are built fresh on every call so no two records ever share a
// backing array.
func (b *TenderBase) NormalizedBase() map[string]any {
	docs := make([]map[string]any, 0, len(b.SupportingDocuments))
	for _, d := range b.SupportingDocuments {
		docs = append(docs, map[string]any{"name": d.Name, "url": d.URL})
	}

	tags := make([]Tag, 0, len(b.Tags))
	tags = append(tags, b.Tags...)

	return map[string]any{
		"title":               b.Title,
		"description":         b.Description,
		"source":              b.Source,
		"publishedDate":       isoOrNil(b.PublishedDate),
		"closingDate":         isoOrNil(b.ClosingDate),
		"supportingDocuments": docs,
		"tags":                tags,
	}
}

func isoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
