// pkg/registry/schema.go
package registry

type ActivityRegistry struct {
	Version     string     `json:"version" yaml:"version"`
	LastUpdated string     `json:"lastUpdated" yaml:"lastUpdated,omitempty"`
	Activities  []Activity `json:"activities" yaml:"activities"`
}

type Activity struct {
	ID                   string                 `json:"id" yaml:"id"`
	DisplayName          string                 `json:"displayName" yaml:"displayName"`
	Description          string                 `json:"description" yaml:"description,omitempty"`
	Category             string                 `json:"category" yaml:"category"`
	Version              string                 `json:"version" yaml:"version"`
	TaskType             string                 `json:"taskType" yaml:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus" yaml:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema" yaml:"inputSchema,omitempty"`
	OutputSchema         map[string]interface{} `json:"outputSchema" yaml:"outputSchema,omitempty"`
	ErrorCodes           []string               `json:"errorCodes" yaml:"errorCodes,omitempty"`
	Timeout              string                 `json:"timeout" yaml:"timeout"`
	Retries              int                    `json:"retries" yaml:"retries"`
	Workflows            []string               `json:"workflows" yaml:"workflows,omitempty"`
	Tags                 []string               `json:"tags" yaml:"tags,omitempty"`
}
