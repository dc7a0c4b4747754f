package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// chunkRecord is the on-disk chunk shape read by the indexer.
type chunkRecord struct {
	Act           string `json:"act"`
	ActName       string `json:"act_name"`
	Section       string `json:"section"`
	EffectiveFrom string `json:"effective_from"`
	Text          string `json:"text"`
}

// WriteChunkFiles writes one chunk file per act into dir and returns the paths in
// act order. Even-numbered acts are written as a JSON array, the rest as JSON lines,
// so both formats go through the indexer.
func WriteChunkFiles(dir string, c *Corpus) ([]string, error) {
	byAct := c.ByAct()
	acts := make([]string, 0, len(byAct))
	for act := range byAct {
		acts = append(acts, act)
	}
	sort.Strings(acts)

	paths := make([]string, 0, len(acts))
	for i, act := range acts {
		records := make([]chunkRecord, 0, len(byAct[act]))
		for _, p := range byAct[act] {
			records = append(records, chunkRecord{
				Act: p.Act, ActName: p.ActName, Section: p.Section, EffectiveFrom: p.EffectiveFrom, Text: p.Text,
			})
		}
		var (
			data []byte
			ext  string
			err  error
		)
		if i%2 == 0 {
			data, err = json.MarshalIndent(records, "", "  ")
			ext = ".json"
		} else {
			data, err = jsonLines(records)
			ext = ".jsonl"
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", act, err)
		}
		path := filepath.Join(dir, strings.ToLower(act)+"_chunks"+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func jsonLines(records []chunkRecord) ([]byte, error) {
	var b strings.Builder
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}
