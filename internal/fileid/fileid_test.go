package fileid

import (
	"strings"
	"testing"
)

func TestPassageID(t *testing.T) {
	a := PassageID("BNS", "303", "2024-07-01", "Whoever commits theft")
	b := PassageID("BNS", "303", "2024-07-01", "  Whoever commits theft ")
	if a != b {
		t.Errorf("surrounding whitespace should not change the ID: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, passagePrefix) || len(a) != len(passagePrefix)+32 {
		t.Errorf("unexpected ID shape: %q", a)
	}
	if PassageID("BNS", "304", "2024-07-01", "Whoever commits theft") == a {
		t.Error("different section should give a different ID")
	}
	// part boundaries matter
	if PassageID("ab", "c") == PassageID("a", "bc") {
		t.Error("parts should be separated")
	}
}
