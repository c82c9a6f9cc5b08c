// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"listing-search-workers/internal/common/validation"
)

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"verified":    true,
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating the directory.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// FindByTaskType returns the activity bound to a Zeebe task type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, unique IDs, task type naming and that
// every declared input/output schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if err := validation.ValidateTaskType(activity.TaskType); err != nil {
			return fmt.Errorf("activity %s: %w", activity.ID, err)
		}
		if activity.ImplementationStatus != "" && !validStatuses[activity.ImplementationStatus] {
			return fmt.Errorf("activity %s has unknown status %q", activity.ID, activity.ImplementationStatus)
		}
		if activity.Timeout != "" {
			if _, err := time.ParseDuration(activity.Timeout); err != nil {
				return fmt.Errorf("activity %s has invalid timeout: %w", activity.ID, err)
			}
		}
		if len(activity.InputSchema) > 0 {
			if _, err := validation.CompileSchema(activity.InputSchema); err != nil {
				return fmt.Errorf("activity %s inputSchema: %w", activity.ID, err)
			}
		}
		if len(activity.OutputSchema) > 0 {
			if _, err := validation.CompileSchema(activity.OutputSchema); err != nil {
				return fmt.Errorf("activity %s outputSchema: %w", activity.ID, err)
			}
		}
	}
	return nil
}
