package embedding

import (
	"reflect"
	"testing"
)

func TestWordTokenizer_Tokenize(t *testing.T) {
	ids, attn, types := WordTokenizer{}.Tokenize("Section 303 BNS", 8)
	if len(ids) != 8 || len(attn) != 8 || len(types) != 8 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken || ids[4] != sepToken {
		t.Errorf("framing: got %v", ids)
	}
	for i := 1; i <= 3; i++ {
		if ids[i] < firstWordToken || ids[i] >= vocabSize {
			t.Errorf("word id %d out of range: %d", i, ids[i])
		}
	}
	wantMask := []int64{1, 1, 1, 1, 1, 0, 0, 0}
	if !reflect.DeepEqual(attn, wantMask) {
		t.Errorf("attention mask: got %v, want %v", attn, wantMask)
	}
}

func TestWordTokenizer_TruncatesAndKeepsSep(t *testing.T) {
	ids, attn, _ := WordTokenizer{}.Tokenize("whoever commits theft shall be punished", 4)
	if ids[3] != sepToken {
		t.Errorf("last token: got %d, want SEP", ids[3])
	}
	for i, m := range attn {
		if m != 1 {
			t.Errorf("attention[%d] = %d, want 1 when truncated", i, m)
		}
	}
}

func TestWordTokenizer_CaseInsensitive(t *testing.T) {
	a, _, _ := WordTokenizer{}.Tokenize("Theft", 4)
	b, _, _ := WordTokenizer{}.Tokenize("theft", 4)
	if a[1] != b[1] {
		t.Errorf("case changed the id: %d vs %d", a[1], b[1])
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Section 66C.", []string{"section", "66c"}},
		{"  theft,  cheating ", []string{"theft", "cheating"}},
		{"", nil},
		{"--", nil},
	}
	for _, tt := range tests {
		if got := Words(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Words(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
