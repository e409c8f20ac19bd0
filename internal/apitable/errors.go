package apitable

import (
	"fmt"
	"strings"
)

// UnsupportedQueryError means the query asks for something the translator
// deliberately does not do: disjunctive filters, missing required
// parameters, or projection targets it cannot resolve. The message always
// carries the generated parameter reference so the caller can correct the
// query without reading code.
type UnsupportedQueryError struct {
	Reason  string
	Missing []string
	Docs    string
}

func (e *UnsupportedQueryError) Error() string {
	msg := e.Reason
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("you must specify the following arguments in the WHERE statement: %s",
			strings.Join(e.Missing, ", "))
	}
	if e.Docs != "" {
		msg += "\n\n" + e.Docs
	}
	return msg
}

// DataShapeError means the remote call produced no usable data: nothing
// came back, or limiting left an empty result.
type DataShapeError struct {
	Reason string
	Docs   string
}

func (e *DataShapeError) Error() string {
	msg := e.Reason
	if e.Docs != "" {
		msg += "\n\n" + e.Docs
	}
	return msg
}

// remediation maps an error-message substring onto extra guidance. The
// matching is a best-effort heuristic over remote error text, not a
// guaranteed taxonomy; rules are evaluated in order and the first hit wins.
type remediation struct {
	substring string
	guidance  string
}

var remediations = []remediation{
	{
		substring: "table not found",
		guidance: "Check that the remote function behind this table exists and that its name has no typo." +
			" If the function belongs to an extension, the extension may need to be installed first.",
	},
	{
		substring: "missing credential",
		guidance:  "Configure access credentials for the remote provider in the data source settings.",
	},
}

// wrapRemoteError re-wraps a remote failure so the caller always sees both
// the proximate error and usable reference material.
func (t *Table) wrapRemoteError(err error) error {
	lower := strings.ToLower(err.Error())
	for _, rule := range remediations {
		if strings.Contains(lower, rule.substring) {
			return fmt.Errorf("%w\n\n%s", err, rule.guidance)
		}
	}
	return fmt.Errorf("%w\n\n%s", err, t.docstring())
}
