// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"listing-search-workers/pkg/registry"
)

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., search-listings)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> [--output <dir>] [--registry <path>]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var found *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activity {
			found = &reg.Activities[i]
			break
		}
	}
	if found == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	created, err := generate(found, *outputDir)
	for _, path := range created {
		fmt.Printf("✓ Generated %s\n", path)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  3. Add its settings under workers: in configs/config.yaml\n")
}
