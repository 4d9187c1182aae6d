// Package normalize reconciles raw field bags from heterogeneous sources
// into canonical event records. Sources disagree on field names; each
// canonical field has an ordered alias list and the first key present in the
// input wins, even when its value is null. Missing required fields get
// sentinel values rather than failing the record, except the URL, which is
// the record's identity.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventdash/eventdash/internal/models"
)

// ErrMissingURL is returned for records without a usable URL. These cannot
// be stored because the URL is the upsert key.
var ErrMissingURL = errors.New("event must have a url")

// Alias lists are ordered by preference; the first key present in the raw
// record wins.
var fieldAliases = []struct {
	field   string
	aliases []string
}{
	{"name", []string{"name", "title"}},
	{"url", []string{"url", "link"}},
	{"date", []string{"date", "start_date", "event_date"}},
	{"start_date", []string{"start_date", "date", "event_date"}},
	{"end_date", []string{"end_date"}},
	{"location", []string{"location", "city", "venue"}},
	{"city", []string{"city", "location", "venue"}},
	{"remote", []string{"remote", "is_remote"}},
	{"description", []string{"description", "short_description", "summary"}},
	{"short_description", []string{"short_description", "description", "summary"}},
	{"speakers", []string{"speakers"}},
	{"sponsors", []string{"sponsors"}},
	{"ticket_price", []string{"ticket_price", "price", "cost"}},
	{"is_paid", []string{"is_paid", "paid"}},
	{"themes", []string{"themes", "topics", "categories"}},
	{"source", []string{"source", "data_source"}},
}

// Normalize maps a raw field bag onto the canonical event shape.
func Normalize(raw models.RawFields) (*models.Event, error) {
	resolved := make(map[string]any, len(fieldAliases))
	for _, fa := range fieldAliases {
		var value any
		for _, alias := range fa.aliases {
			if v, ok := raw[alias]; ok {
				value = v
				break
			}
		}
		resolved[fa.field] = value
	}

	event := &models.Event{
		Date:             stringField(resolved["date"]),
		StartDate:        stringField(resolved["start_date"]),
		EndDate:          stringField(resolved["end_date"]),
		Location:         stringField(resolved["location"]),
		City:             stringField(resolved["city"]),
		Remote:           boolField(resolved["remote"], []string{"true", "1", "yes", "remote"}),
		Description:      stringField(resolved["description"]),
		ShortDescription: stringField(resolved["short_description"]),
		Speakers:         listField(resolved["speakers"]),
		Sponsors:         listField(resolved["sponsors"]),
		TicketPrice:      priceField(resolved["ticket_price"]),
		IsPaid:           boolField(resolved["is_paid"], []string{"true", "1", "yes", "paid"}),
		Themes:           listField(resolved["themes"]),
		Source:           stringField(resolved["source"]),
	}

	if name := stringField(resolved["name"]); name != nil {
		event.Name = *name
	}

	if u := stringField(resolved["url"]); u != nil && *u != "" {
		event.URL = *u
	} else {
		return nil, ErrMissingURL
	}

	applyDefaults(event)

	return event, nil
}

func applyDefaults(e *models.Event) {
	if e.Name == "" {
		e.Name = "Event at " + e.URL
	}
	if isBlank(e.Date) && isBlank(e.StartDate) {
		tbd := models.SentinelTBD
		e.Date = &tbd
	}
	if isBlank(e.Location) && isBlank(e.City) {
		loc := models.SentinelTBD
		if e.Remote {
			loc = "Remote"
		}
		e.Location = &loc
	}
	if isBlank(e.Description) && isBlank(e.ShortDescription) {
		desc := "No description available"
		e.Description = &desc
	}
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func stringField(v any) *string {
	if v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// boolField coerces untyped truthiness. Strings are true only when in
// truthyStrings; other values follow their natural truthiness.
func boolField(v any, truthyStrings []string) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		lower := strings.ToLower(val)
		for _, t := range truthyStrings {
			if lower == t {
				return true
			}
		}
		return false
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// listField accepts native lists, comma-separated strings, and lone scalars.
func listField(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return val
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, stringify(item))
		}
		return items
	case string:
		if val == "" {
			return []string{}
		}
		var items []string
		for _, part := range strings.Split(val, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return items
	default:
		return []string{stringify(val)}
	}
}

// priceField keeps structured prices as-is and wraps scalars.
func priceField(v any) map[string]any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return val
	default:
		return map[string]any{"price": stringify(val)}
	}
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "02/01/2006"}

// NormalizeDate validates a date string against the accepted layouts and
// reformats it as YYYY-MM-DD. Unparseable input returns "".
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
