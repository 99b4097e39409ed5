package core

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/spreadsheet"
)

// Candidate is a row mapped onto the record fields, before validation.
type Candidate struct {
	Row      int // spreadsheet line number
	Name     string
	Position string
	Level    string
	// Empty marks a row that produced none of the record fields.
	Empty bool
}

// Record converts a candidate into a record. Call only on validated candidates.
func (c Candidate) Record() domain.Record {
	return domain.Record{Name: c.Name, Position: c.Position, Level: domain.Level(c.Level)}
}

// Normalize maps one decoded row onto the record fields. Header names are
// matched case-insensitively after trimming, values are coerced to trimmed
// strings and a recognised level is canonicalised. Unknown columns are
// ignored. When several headers name the same field, the leftmost non-empty
// one wins.
func Normalize(row spreadsheet.Row) Candidate {
	c := Candidate{Row: row.Line}

	for _, key := range columnOrder(row) {
		v := row.Cells[key]
		switch strings.ToLower(CleanCell(key)) {
		case "name":
			c.Name = firstNonEmpty(c.Name, cellString(v))
		case "position":
			c.Position = firstNonEmpty(c.Position, cellString(v))
		case "level":
			c.Level = firstNonEmpty(c.Level, cellString(v))
		}
	}

	if l, ok := domain.ParseLevel(c.Level); ok {
		c.Level = string(l)
	}

	c.Empty = c.Name == "" && c.Position == "" && c.Level == ""
	return c
}

// NormalizeAll normalizes rows in order.
func NormalizeAll(rows []spreadsheet.Row) []Candidate {
	out := make([]Candidate, len(rows))
	for i, r := range rows {
		out[i] = Normalize(r)
	}
	return out
}

// columnOrder returns the cell keys in sheet order. Keys missing from
// row.Columns follow in sorted order.
func columnOrder(row spreadsheet.Row) []string {
	keys := make([]string, 0, len(row.Cells))
	seen := make(map[string]bool, len(row.Cells))
	for _, k := range row.Columns {
		if _, ok := row.Cells[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for _, k := range slices.Sorted(maps.Keys(row.Cells)) {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

func firstNonEmpty(cur, next string) string {
	if cur != "" {
		return cur
	}
	return next
}

// cellString renders a decoded cell as text.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return CleanCell(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.DateOnly)
	case fmt.Stringer:
		return CleanCell(x.String())
	default:
		return CleanCell(fmt.Sprint(x))
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CleanCell trims whitespace and strips the Excel text-formula wrapper
// (="...") and surrounding double quotes left by some exports.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
