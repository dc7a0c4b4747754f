package indexer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoText is returned for a chunk without a string text field.
var ErrNoText = errors.New("chunk has no text")

// Chunk is one statute passage as produced by corpus preparation. Every field other
// than text is kept as metadata, so legacy key names survive ingestion unchanged.
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// defaultRecordType is applied when a chunk does not say what kind of record it is.
const defaultRecordType = "bare_act"

// ReadChunks decodes chunks from r. Both a JSON array of objects and newline-delimited
// objects are accepted. Chunks whose text is blank are dropped.
func ReadChunks(r io.Reader) ([]Chunk, error) {
	chunks, _, err := readChunks(r)
	return chunks, err
}

// readChunks is ReadChunks that also reports how many blank chunks were dropped.
func readChunks(r io.Reader) ([]Chunk, int, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()
	var raws []map[string]any
	if first == '[' {
		if err := dec.Decode(&raws); err != nil {
			return nil, 0, fmt.Errorf("decode chunk array: %w", err)
		}
	} else {
		for {
			var m map[string]any
			if err := dec.Decode(&m); err == io.EOF {
				break
			} else if err != nil {
				return nil, 0, fmt.Errorf("decode chunk %d: %w", len(raws), err)
			}
			raws = append(raws, m)
		}
	}

	chunks := make([]Chunk, 0, len(raws))
	blank := 0
	for i, raw := range raws {
		text, ok := raw["text"].(string)
		if !ok {
			return nil, 0, fmt.Errorf("chunk %d: %w", i, ErrNoText)
		}
		// adjacent section headings leave an empty body behind
		if strings.TrimSpace(text) == "" {
			blank++
			continue
		}
		chunks = append(chunks, chunkFromMap(text, raw))
	}
	return chunks, blank, nil
}

func chunkFromMap(text string, raw map[string]any) Chunk {
	meta := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "text" {
			continue
		}
		if n, ok := v.(json.Number); ok {
			// section numbers arrive as numbers in some builds
			v = n.String()
		}
		meta[k] = v
	}
	if _, ok := meta["type"]; !ok {
		meta["type"] = defaultRecordType
	}
	return Chunk{Text: text, Metadata: meta}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
