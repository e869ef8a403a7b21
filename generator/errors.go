package generator

import (
	"fmt"
	"sort"
	"strings"
)

// GenerationError reports malformed generator input. It is raised before any I/O.
type GenerationError struct {
	Reason string
	Fields map[string]string
}

func (e *GenerationError) Error() string {
	if len(e.Fields) == 0 {
		return "generation: " + e.Reason
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Fields[k]))
	}
	return fmt.Sprintf("generation: %s (%s)", e.Reason, strings.Join(parts, ", "))
}
