package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Category is one expense category and the keywords that select it.
// Keywords match case-insensitively as substrings of the description.
type Category struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// FieldMapping ties a category to a line of the tax form.
type FieldMapping struct {
	Line         string `json:"line"`
	FieldPattern string `json:"field_pattern"`
	Description  string `json:"description"`
}

// DefaultCategories returns the built-in business categories in rule order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Office Supplies", Keywords: []string{"staples", "office depot", "amazon", "office supplies"}},
		{Name: "Travel", Keywords: []string{"airline", "hotel", "airbnb", "uber", "lyft", "taxi", "rental car"}},
		{Name: "Meals & Entertainment", Keywords: []string{"restaurant", "cafe", "coffee", "doordash", "grubhub", "ubereats"}},
		{Name: "Software & Subscriptions", Keywords: []string{"github", "aws", "google cloud", "microsoft", "zoom", "slack", "adobe"}},
		{Name: "Marketing", Keywords: []string{"facebook ads", "google ads", "marketing", "advertising"}},
		{Name: "Professional Services", Keywords: []string{"lawyer", "accountant", "consulting", "legal"}},
		{Name: "Utilities", Keywords: []string{"phone", "internet", "electricity", "water", "gas"}},
		{Name: "Rent", Keywords: []string{"rent", "lease", "coworking"}},
		{Name: DefaultCategoryName, Keywords: []string{}},
	}
}

// DefaultFieldMappings maps the built-in categories to Schedule C lines.
func DefaultFieldMappings() map[string]FieldMapping {
	line := func(num, field string) FieldMapping {
		return FieldMapping{Line: num, FieldPattern: field, Description: "Schedule C Line " + num}
	}
	return map[string]FieldMapping{
		"Office Supplies":          line("18", "f1_28"),
		"Travel":                   line("24a", "f1_17"),
		"Meals & Entertainment":    line("24b", "f1_35"),
		"Software & Subscriptions": line("27a", "f1_39"),
		"Marketing":                line("8", "f1_10"),
		"Professional Services":    line("17", "f1_18"),
		"Utilities":                line("25", "f1_37"),
		"Rent":                     line("20b", "f1_32"),
		DefaultCategoryName:        line("27a", "f1_39"),
	}
}

// LoadCategories reads a category file: a JSON object of
// "category name" -> ["keyword", ...]. Object order is rule order, so the
// file is decoded token by token rather than into a map.
func LoadCategories(path string) ([]Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open categories file: %w", ErrMalformedConfiguration, err)
	}
	defer f.Close()

	cats, err := ParseCategories(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cats, nil
}

// ParseCategories decodes an ordered category object.
func ParseCategories(r io.Reader) ([]Category, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: categories must be a JSON object", ErrMalformedConfiguration)
	}

	var cats []Category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
		}
		name, _ := tok.(string)

		var keywords []string
		if err := dec.Decode(&keywords); err != nil {
			return nil, fmt.Errorf("%w: keywords of %q: %w", ErrMalformedConfiguration, name, err)
		}
		cats = append(cats, Category{Name: name, Keywords: keywords})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
	}

	if err := validateCategories(cats); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
	}
	return cats, nil
}

// WriteCategories writes cats as an ordered category object, the format
// LoadCategories reads.
func WriteCategories(w io.Writer, cats []Category) error {
	var b strings.Builder
	b.WriteString("{\n")
	for i, c := range cats {
		name, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keywords := c.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		kw, err := json.Marshal(keywords)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  %s: %s", name, kw)
		if i < len(cats)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// LoadFieldMappings reads {"schedule_c_mappings": {category: {line,
// field_pattern, description}}}.
func LoadFieldMappings(path string) (map[string]FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read field mappings: %w", ErrMalformedConfiguration, err)
	}

	var doc struct {
		Mappings map[string]FieldMapping `json:"schedule_c_mappings"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedConfiguration, path, err)
	}
	if doc.Mappings == nil {
		return nil, fmt.Errorf("%w: %s has no schedule_c_mappings", ErrMalformedConfiguration, path)
	}
	for cat, m := range doc.Mappings {
		if m.Line == "" {
			return nil, fmt.Errorf("%w: %s: mapping for %q has no line", ErrMalformedConfiguration, path, cat)
		}
	}
	return doc.Mappings, nil
}

// CategoryNames returns the names of cats in order.
func CategoryNames(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

func validateCategories(cats []Category) error {
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return errors.New("category with empty name")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate category %q", name)
		}
		seen[key] = true
	}
	return nil
}
