package apitable

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/datastack-labs/fedsql/pkg/resultset"
)

// ParamSpec describes one keyword parameter of the remote function.
type ParamSpec struct {
	Required    bool
	Type        string
	Description string
}

// ParamsSchema maps parameter names onto their specs.
type ParamsSchema map[string]ParamSpec

// ResponseField is one field the remote function is documented to return.
type ResponseField struct {
	Name string
	Type string
}

// Response is what a remote invocation yields: a tabular frame, plus an
// optional timestamp axis for results that are indexed by time instead of
// carrying it as a column.
type Response struct {
	Frame *resultset.ResultSet

	// TimeIndex, when non-empty, is materialized as the leading column
	// under TimeIndexName (default "date") before post-processing.
	TimeIndex     []time.Time
	TimeIndexName string
}

// InvokeFunc is the bound remote call. Parameters arrive as the keyword
// map assembled from pushdown.
type InvokeFunc func(ctx context.Context, params map[string]any) (*Response, error)

// Definition is everything needed to build a Table for one remote function.
// Built once at backend registration, immutable afterwards.
type Definition struct {
	Name     string
	Params   ParamsSchema
	Response []ResponseField
	Invoke   InvokeFunc

	// Provider, when set, is injected into every call.
	Provider string

	// DocsURL, when set, terminates every generated reference text.
	DocsURL string
}

// docstring renders the machine-readable parameter reference appended to
// every error the translator surfaces.
func (t *Table) docstring() string {
	var b strings.Builder
	b.WriteString("Docstring:")

	names := make([]string, 0, len(t.def.Params))
	for name := range t.def.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := t.def.Params[name]
		optional := ""
		if !spec.Required {
			optional = " (optional)"
		}
		fmt.Fprintf(&b, "\n  * %s%s: %s", name, optional, spec.Type)
		if spec.Description != "" {
			b.WriteString("\n")
			b.WriteString(spec.Description)
		}
	}

	if t.def.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nFor more information check %s", t.def.DocsURL)
	}
	return b.String()
}

// isTemporal reports whether a declared annotation names a time type.
func isTemporal(annotation string) bool {
	switch strings.ToLower(annotation) {
	case "datetime", "date", "timestamp":
		return true
	}
	return false
}
