package region

import (
	"strings"

	"go.uber.org/zap"
)

// SelectAll is the literal that selects the whole table.
const SelectAll = "all"

// Select resolves a comma-separated list of country codes against the table.
// An empty list or "all" (any case) selects every country. Unknown codes are
// ignored. Results follow table order, not the order of raw.
func Select(t *Table, raw string) ([]Country, error) {
	codes := ParseCodes(raw)
	if len(codes) == 0 || (len(codes) == 1 && codes[0] == SelectAll) {
		if t.Len() == 0 {
			return nil, ErrEmptySelection
		}
		return t.All(), nil
	}

	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		if _, ok := t.Get(c); !ok {
			zap.L().Debug("ignoring unknown country code", zap.String("code", c))
			continue
		}
		wanted[c] = true
	}

	var out []Country
	for _, c := range t.countries {
		if wanted[c.Code] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptySelection
	}
	return out, nil
}

// ParseCodes splits, trims and lowercases a comma-separated list, dropping blanks.
func ParseCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
