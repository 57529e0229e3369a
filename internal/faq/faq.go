package faq

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_faq.yaml
var defaultFAQ []byte

// HelpText answers questions nothing in the table matches.
const HelpText = "Sorry, I could not find an answer to that. Try asking about the weather in a city, " +
	"attractions worth visiting, booking changes, or say \"what can you do\" for a list of features."

type Category struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type Item struct {
	ID         string   `yaml:"id" json:"id"`
	CategoryID string   `yaml:"category" json:"categoryId"`
	Question   string   `yaml:"question" json:"question"`
	Answer     string   `yaml:"answer" json:"answer"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
}

// Table is a loaded FAQ document.
type Table struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Items      []Item     `yaml:"items" json:"items"`
}

// Load reads the FAQ table from path, or the embedded default when path is empty.
func Load(path string) (*Table, error) {
	data := defaultFAQ
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return nil, fmt.Errorf("read faq: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse faq: %w", err)
	}
	for i, it := range t.Items {
		if strings.TrimSpace(it.Question) == "" || strings.TrimSpace(it.Answer) == "" {
			return nil, fmt.Errorf("faq item %d (%q): question and answer are required", i, it.ID)
		}
	}
	return &t, nil
}

// Match returns the first item whose question appears in q, then the first
// item with a keyword that appears in q.
func (t *Table) Match(q string) (Item, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || t == nil {
		return Item{}, false
	}
	for _, it := range t.Items {
		if strings.Contains(q, strings.ToLower(strings.TrimSpace(it.Question))) {
			return it, true
		}
	}
	for _, it := range t.Items {
		for _, k := range it.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(q, k) {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Answer is Match with the help text as fallback.
func (t *Table) Answer(q string) string {
	if it, ok := t.Match(q); ok {
		return it.Answer
	}
	return HelpText
}
