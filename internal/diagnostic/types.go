package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// Notice codes emitted by the merger.
const (
	CodeNoMatch            = "no-match"
	CodeUnmatchedSecondary = "unmatched-secondary"
	CodeMalformedRow       = "malformed-row"
)

// Diagnostics holds all notices from a merge, grouped by severity.
// Within a severity, notices keep emission order.
type Diagnostics struct {
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
	Infos    []Diagnostic `json:"infos,omitempty"`
}

// Diagnostic represents a single notice.
type Diagnostic struct {
	// Severity of the notice.
	Severity Severity `json:"severity"`
	// Code is a stable identifier for this kind of notice.
	Code string `json:"code"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Table names the table the notice relates to (if any).
	Table string `json:"table,omitempty"`
	// Key is the join key value involved (if any).
	Key string `json:"key,omitempty"`
	// Row is the 1-based record position inside Table (0 if unknown).
	Row int `json:"row,omitempty"`
}

// Severity represents the severity level of a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// AddError adds an error notice.
func (d *Diagnostics) AddError(code, message, table, key string, row int) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		Table:    table,
		Key:      key,
		Row:      row,
	})
}

// AddWarning adds a warning notice.
func (d *Diagnostics) AddWarning(code, message, table, key string, row int) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Table:    table,
		Key:      key,
		Row:      row,
	})
}

// AddInfo adds an info notice.
func (d *Diagnostics) AddInfo(code, message, table, key string, row int) {
	d.Infos = append(d.Infos, Diagnostic{
		Severity: SeverityInfo,
		Code:     code,
		Message:  message,
		Table:    table,
		Key:      key,
		Row:      row,
	})
}

// HasErrors returns true if there are any error notices.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Len returns the total number of notices.
func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// WithCode returns all notices carrying code, errors first.
func (d *Diagnostics) WithCode(code string) []Diagnostic {
	var out []Diagnostic
	for _, group := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, n := range group {
			if n.Code == code {
				out = append(out, n)
			}
		}
	}
	return out
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// Error returns a combined error from all error notices, or nil.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted notice.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Table != "" {
		prefix = append(prefix, "["+d.Table+"]")
	}

	if d.Row > 0 {
		prefix = append(prefix, fmt.Sprintf("row %d", d.Row))
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
