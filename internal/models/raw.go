package models

// RawFields is the untyped field bag produced by discovery and extraction.
// Sources disagree on field names and shapes; the normalizer reconciles a
// RawFields bag into a canonical Event. Keys that a source could not extract
// are absent, never filled with placeholder text.
type RawFields map[string]any

// URL returns the url field when present as a non-empty string.
func (r RawFields) URL() string {
	if v, ok := r["url"].(string); ok {
		return v
	}
	return ""
}

// String returns the named field as a string, with ok=false when the field
// is absent, nil, or not a string.
func (r RawFields) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Merge returns a copy of r with fields from other layered on top. Enriched
// data wins over discovery data for keys present in both.
func (r RawFields) Merge(other RawFields) RawFields {
	merged := make(RawFields, len(r)+len(other))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range other {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}
