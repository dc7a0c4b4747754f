package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// IndexedFields are mapped as untokenized keyword fields.
var IndexedFields = []string{"act", "section", "effective_from", "type", "source"}

// BleveIndex implements MetadataIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = keywordanalyzer.Name

	docMapping := bleve.NewDocumentMapping()
	for _, f := range IndexedFields {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(f, fm)
	}
	im.AddDocumentMapping("passage", docMapping)
	im.DefaultType = "passage"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes the metadata fields of a passage by id.
func (b *BleveIndex) Index(ctx context.Context, id string, fields Fields) error {
	doc := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	return b.index.Index(id, doc)
}

// Lookup runs a conjunction of term queries, one per filter field.
// Values are compared as exact strings.
func (b *BleveIndex) Lookup(ctx context.Context, filter Fields, limit int) ([]string, error) {
	if len(filter) == 0 {
		return nil, ErrEmptyFilter
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]blevequery.Query, 0, len(keys))
	for _, k := range keys {
		tq := bleve.NewTermQuery(filter[k])
		tq.SetField(k)
		terms = append(terms, tq)
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(terms...))
	req.Size = limit
	req.SortBy([]string{"_id"})

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve lookup failed: %w", err)
	}
	ids := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Delete removes a passage from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of passages in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
