// Package prompts serves the interviewer's instruction templates.
// Each embedded JSON file maps a template key to its text; placeholders
// are written {{.Name}}.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var templateFS embed.FS

var (
	mu     sync.RWMutex
	parsed = make(map[string]map[string]string)
)

// Get returns the template stored under key in filename (e.g. "interview.json").
func Get(filename, key string) (string, error) {
	templates, err := templatesIn(filename)
	if err != nil {
		return "", err
	}
	text, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return text, nil
}

// MustGet is Get for templates the process cannot run without.
func MustGet(filename, key string) string {
	text, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return text
}

// Format fills {{.Name}} placeholders from data. Placeholders without a
// value are left in place.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(data))
	for name, value := range data {
		pairs = append(pairs, "{{."+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Render looks up a template and fills its placeholders.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	return Format(template, data), nil
}

// templatesIn parses filename once and serves later lookups from memory.
func templatesIn(filename string) (map[string]string, error) {
	mu.RLock()
	templates, ok := parsed[filename]
	mu.RUnlock()
	if ok {
		return templates, nil
	}

	raw, err := templateFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	mu.Lock()
	parsed[filename] = templates
	mu.Unlock()
	return templates, nil
}
