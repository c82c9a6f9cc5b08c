// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"strconv"

	"listing-search-workers/pkg/registry"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var path string

	root := &cobra.Command{
		Use:   "registry-updater",
		Short: "Maintain the worker activity registry",
		Long:  `Add, update, validate and inspect activities in the JSON registry the worker manager reads input schemas from.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&path, "path", defaultRegistryPath, "Path to registry file")

	root.AddCommand(
		newAddCmd(&path),
		newUpdateCmd(&path),
		newValidateCmd(&path),
		newShowCmd(&path),
	)
	return root
}

func newAddCmd(path *string) *cobra.Command {
	var a registry.Activity

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new activity to the registry",
		Example: `  registry-updater add --id search-listings --displayName "Search Listings" \
    --category search --taskType search-listings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.ID == "" || a.DisplayName == "" || a.Category == "" || a.TaskType == "" {
				return fmt.Errorf("id, displayName, category, and taskType are required for add")
			}

			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				if !os.IsNotExist(err) {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = &registry.ActivityRegistry{Version: "1.0.0"}
			}

			if _, exists := findByID(reg, a.ID); exists {
				return fmt.Errorf("activity with ID %s already exists", a.ID)
			}

			a.InputSchema = map[string]interface{}{}
			a.OutputSchema = map[string]interface{}{}
			a.ErrorCodes = []string{}
			a.Workflows = []string{}
			a.Tags = []string{}
			reg.Activities = append(reg.Activities, a)

			if err := reg.Validate(); err != nil {
				return err
			}
			if err := reg.Save(*path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "Activity ID (e.g., search-listings)")
	f.StringVar(&a.DisplayName, "displayName", "", "Display Name (e.g., Search Listings)")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "", "Category (e.g., search)")
	f.StringVar(&a.TaskType, "taskType", "", "Camunda Task Type (e.g., search-listings)")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	f.StringVar(&a.Timeout, "timeout", "10s", "Job timeout")
	f.IntVar(&a.Retries, "retries", 3, "Job retries")
	return cmd
}

func newUpdateCmd(path *string) *cobra.Command {
	var id, field, value string

	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update an existing activity's field",
		Example: `  registry-updater update --id search-listings --field status --value completed`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" || field == "" || value == "" {
				return fmt.Errorf("id, field, and value are required for update")
			}

			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			target, ok := findByID(reg, id)
			if !ok {
				return fmt.Errorf("activity with ID %s not found", id)
			}

			switch field {
			case "status":
				target.ImplementationStatus = value
			case "version":
				target.Version = value
			case "displayName":
				target.DisplayName = value
			case "description":
				target.Description = value
			case "category":
				target.Category = value
			case "taskType":
				target.TaskType = value
			case "timeout":
				target.Timeout = value
			case "retries":
				retries, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("invalid retries value: %w", err)
				}
				target.Retries = retries
			default:
				return fmt.Errorf("unknown field: %s", field)
			}

			if err := reg.Validate(); err != nil {
				return err
			}
			if err := reg.Save(*path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Activity ID to update")
	f.StringVar(&field, "field", "", "Field to update (status, version, etc.)")
	f.StringVar(&value, "value", "", "New value for the field")
	return cmd
}

func newValidateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

// newShowCmd prints one activity as YAML, which reads better than the
// registry's JSON when reviewing schemas.
func newShowCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-type>",
		Short: "Print an activity as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			activity, ok := reg.FindByTaskType(args[0])
			if !ok {
				return fmt.Errorf("no activity with task type %s", args[0])
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(activity); err != nil {
				return fmt.Errorf("encode activity: %w", err)
			}
			return enc.Close()
		},
	}
}

func findByID(reg *registry.ActivityRegistry, id string) (*registry.Activity, bool) {
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			return &reg.Activities[i], true
		}
	}
	return nil, false
}
