package tally

import (
	"strconv"
	"strings"

	"github.com/stranger-beers/ingestion/internal/models"
)

// Field types that carry option ids instead of display text.
const (
	TypeMultipleChoice = "MULTIPLE_CHOICE"
	TypeDropdown       = "DROPDOWN"
	TypeMultiSelect    = "MULTI_SELECT"
	TypeCheckboxes     = "CHECKBOXES"
	TypeLinearScale    = "LINEAR_SCALE"
)

// IsChoiceType reports whether fields of type t are answered with option ids.
func IsChoiceType(t string) bool {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case TypeMultipleChoice, TypeDropdown, TypeMultiSelect, TypeCheckboxes:
		return true
	}
	return false
}

// fieldIndex looks fields up case-insensitively by key and by label.
// A later field with the same key or label replaces an earlier one.
type fieldIndex struct {
	byKey   map[string]*Field
	byLabel map[string]*Field
}

func newFieldIndex(fields []Field) fieldIndex {
	ix := fieldIndex{
		byKey:   make(map[string]*Field, len(fields)),
		byLabel: make(map[string]*Field, len(fields)),
	}
	for i := range fields {
		f := &fields[i]
		if k := strings.ToLower(f.Key); k != "" {
			ix.byKey[k] = f
		}
		if l := strings.ToLower(f.Label); l != "" {
			ix.byLabel[l] = f
		}
	}
	return ix
}

// lookup walks candidates in order, trying the key index before the label index for each.
func (ix fieldIndex) lookup(candidates []string) (*Field, bool) {
	for _, c := range candidates {
		c = strings.ToLower(c)
		if c == "" {
			continue
		}
		if f, ok := ix.byKey[c]; ok {
			return f, true
		}
		if f, ok := ix.byLabel[c]; ok {
			return f, true
		}
	}
	return nil, false
}

// Extract returns the normalized value of the first field matching candidates.
// The first candidate that hits decides, even when its value is empty.
func Extract(fields []Field, candidates []string) (string, bool) {
	f, ok := newFieldIndex(fields).lookup(candidates)
	if !ok {
		return "", false
	}
	return f.Value.Normalize()
}

// ResolveChoice returns the display text of a choice field's selection(s).
// Ids without a matching option fall back to their raw form.
func ResolveChoice(f Field) (string, bool) {
	if f.Value.IsAbsent() || len(f.Options) == 0 {
		return f.Value.Normalize()
	}
	texts := make(map[string]string, len(f.Options))
	for _, opt := range f.Options {
		texts[opt.ID.String()] = opt.Text
	}
	if f.Value.Kind() != KindList {
		if text, ok := texts[f.Value.String()]; ok {
			text = strings.TrimSpace(text)
			return text, text != ""
		}
		return f.Value.Normalize()
	}
	resolved := make([]Value, 0, len(f.Value.Items()))
	for _, item := range f.Value.Items() {
		if text, ok := texts[item.String()]; ok {
			resolved = append(resolved, String(text))
			continue
		}
		resolved = append(resolved, item)
	}
	return List(resolved...).Normalize()
}

// ExtractProfile fills FormFields from a signup submission using ProfileFieldMap.
func ExtractProfile(fields []Field) models.FormFields {
	var out models.FormFields
	ix := newFieldIndex(fields)
	for _, entry := range ProfileFieldMap {
		f, ok := ix.lookup(entry.Candidates)
		if !ok {
			continue
		}
		isScale := strings.EqualFold(strings.TrimSpace(f.Type), TypeLinearScale)
		if entry.Score != nil {
			if !isScale {
				continue
			}
			if n, ok := f.Value.Int(); ok {
				entry.Score(&out, n)
			}
			continue
		}
		var (
			text  string
			found bool
		)
		switch {
		case IsChoiceType(f.Type):
			text, found = ResolveChoice(*f)
		case isScale:
			if n, ok := f.Value.Int(); ok {
				text, found = strconv.Itoa(n), true
			}
		default:
			text, found = f.Value.Normalize()
		}
		if found {
			entry.Text(&out, text)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
