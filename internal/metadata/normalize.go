// Package metadata maps the heterogeneous metadata stored with corpus passages onto
// the canonical models.Metadata shape.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/nyaya/internal/models"
)

// Unknown is the value used when neither the current key nor its legacy alias is present.
const Unknown = "Unknown"

// Key names in resolution order: current name first, then legacy aliases.
var (
	actKeys           = []string{"act", "law"}
	sectionKeys       = []string{"section", "section_number", "sec"}
	effectiveFromKeys = []string{"effective_from", "version"}
	actNameKeys       = []string{"act_name", "title_act"}
	versionKeys       = []string{"version", "ver"}
	typeKeys          = []string{"type", "record_type"}
)

// Normalize returns the canonical metadata for raw. It never fails: missing or empty
// fields fall back to their defaults.
func Normalize(raw map[string]interface{}) models.Metadata {
	act := lookup(raw, actKeys...)
	if act == "" {
		act = Unknown
	}
	section := lookup(raw, sectionKeys...)
	if section == "" {
		section = Unknown
	}
	effective := lookup(raw, effectiveFromKeys...)
	if effective == "" {
		effective = Unknown
	}
	actName := lookup(raw, actNameKeys...)
	if actName == "" {
		actName = act
	}
	return models.Metadata{
		Act:            act,
		ActDisplayName: actName,
		Section:        section,
		EffectiveFrom:  effective,
		Version:        lookup(raw, versionKeys...),
		RecordType:     recordType(lookup(raw, typeKeys...)),
	}
}

func recordType(s string) models.RecordType {
	switch t := models.RecordType(strings.ToLower(s)); t {
	case models.RecordBareAct, models.RecordInterpretation, models.RecordCaseLaw:
		return t
	default:
		return models.RecordBareAct
	}
}

// lookup returns the first non-empty value among keys, stringified.
func lookup(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(Stringify(v)); s != "" {
			return s
		}
	}
	return ""
}

// Stringify renders a metadata value the way it is compared and displayed.
// Whole floats (JSON numbers) render without a fractional part.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}
