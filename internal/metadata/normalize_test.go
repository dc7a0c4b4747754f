package metadata

import (
	"testing"

	"github.com/hyperjump/nyaya/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want models.Metadata
	}{
		{
			name: "current keys",
			raw: map[string]interface{}{
				"act": "BNS", "act_name": "Bharatiya Nyaya Sanhita (BNS)", "section": "318",
				"effective_from": "2024-07-01", "version": "v2", "type": "interpretation",
			},
			want: models.Metadata{
				Act: "BNS", ActDisplayName: "Bharatiya Nyaya Sanhita (BNS)", Section: "318",
				EffectiveFrom: "2024-07-01", Version: "v2", RecordType: models.RecordInterpretation,
			},
		},
		{
			name: "legacy aliases",
			raw:  map[string]interface{}{"law": "IPC", "section": float64(420), "version": "1860", "ver": "old"},
			want: models.Metadata{
				Act: "IPC", ActDisplayName: "IPC", Section: "420", EffectiveFrom: "1860",
				Version: "1860", RecordType: models.RecordBareAct,
			},
		},
		{
			name: "ver alias when version absent",
			raw:  map[string]interface{}{"act": "BNSS", "ver": "draft"},
			want: models.Metadata{
				Act: "BNSS", ActDisplayName: "BNSS", Section: Unknown, EffectiveFrom: Unknown,
				Version: "draft", RecordType: models.RecordBareAct,
			},
		},
		{
			name: "empty record",
			raw:  nil,
			want: models.Metadata{
				Act: Unknown, ActDisplayName: Unknown, Section: Unknown, EffectiveFrom: Unknown,
				RecordType: models.RecordBareAct,
			},
		},
		{
			name: "empty strings fall through",
			raw:  map[string]interface{}{"act": "", "law": "BSA", "section": " ", "type": "statute"},
			want: models.Metadata{
				Act: "BSA", ActDisplayName: "BSA", Section: Unknown, EffectiveFrom: Unknown,
				RecordType: models.RecordBareAct,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"66C", "66C"},
		{float64(303), "303"},
		{float64(2.5), "2.5"},
		{int64(7), "7"},
		{12, "12"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
