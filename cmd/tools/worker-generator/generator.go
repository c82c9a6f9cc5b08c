// cmd/tools/worker-generator/generator.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"listing-search-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	Timeout      string
	ErrorCodes   []string
	InputFields  string
	OutputFields string
}

func newWorkerData(a *registry.Activity) WorkerData {
	timeout := a.Timeout
	if timeout == "" {
		timeout = "10s"
	}
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  strings.ReplaceAll(a.ID, "-", ""),
		TaskType:     a.TaskType,
		Description:  a.Description,
		Timeout:      timeout,
		ErrorCodes:   a.ErrorCodes,
		InputFields:  generateStructFields(parseSchema(a.InputSchema)),
		OutputFields: generateStructFields(parseSchema(a.OutputSchema)),
	}
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	}
	return "interface{}"
}

// generateStructFields renders one field per schema property, sorted by name
// so regenerating a worker gives a stable diff.
func generateStructFields(properties map[string]interface{}) string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, name := range names {
		details, _ := properties[name].(map[string]interface{})
		field := fmt.Sprintf("\t%s %s `json:\"%s\"`", upperFirst(name), goTypeFromJSONType(details["type"]), name)
		if desc, ok := details["description"].(string); ok && desc != "" {
			field += " // " + desc
		}
		fields = append(fields, field)
	}
	return strings.Join(fields, "\n")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// mapCategoryToDirectory maps registry categories to directory names
func mapCategoryToDirectory(category string) string {
	switch category {
	case "search", "ranking":
		return "search"
	case "data-access":
		return "data-access"
	}
	return strings.ToLower(strings.ReplaceAll(category, " ", "-"))
}

// generate writes the worker scaffold for activity under outputDir and
// returns the paths it created. Existing files are never overwritten.
func generate(activity *registry.Activity, outputDir string) ([]string, error) {
	data := newWorkerData(activity)
	workerDir := filepath.Join(outputDir, mapCategoryToDirectory(activity.Category), activity.ID)
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		return nil, fmt.Errorf("create worker directory: %w", err)
	}

	files := []struct {
		name string
		tmpl string
	}{
		{"config.go", configTemplate},
		{"models.go", modelsTemplate},
		{"handler.go", handlerTemplate},
		{"handler_test.go", testTemplate},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(workerDir, f.name)
		if _, err := os.Stat(path); err == nil {
			return created, fmt.Errorf("%s already exists", path)
		}

		tmpl, err := template.New(f.name).Parse(f.tmpl)
		if err != nil {
			return created, fmt.Errorf("parse template %s: %w", f.name, err)
		}

		out, err := os.Create(path)
		if err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		err = tmpl.Execute(out, data)
		out.Close()
		if err != nil {
			return created, fmt.Errorf("render %s: %w", f.name, err)
		}
		created = append(created, path)
	}
	return created, nil
}
