package model

import "fmt"

// Severity of a validation issue.
type Severity string

const (
	SeverityFatal       Severity = "fatal"
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Blocking reports whether an issue of this severity stops processing.
func (s Severity) Blocking() bool {
	return s == SeverityFatal || s == SeverityError
}

// Issue is a single validator message.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
}

func (i Issue) String() string {
	if i.Location == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s (at %s)", i.Severity, i.Message, i.Location)
}

// Outcome is an ordered list of issues.
type Outcome struct {
	Issues []Issue `json:"issue"`
}

// Add appends an issue.
func (o *Outcome) Add(sev Severity, code, message, location string) {
	o.Issues = append(o.Issues, Issue{Severity: sev, Code: code, Message: message, Location: location})
}

// Merge appends all issues of other.
func (o *Outcome) Merge(other Outcome) {
	o.Issues = append(o.Issues, other.Issues...)
}

// HasBlocking reports whether any issue is fatal or error.
func (o Outcome) HasBlocking() bool {
	for _, i := range o.Issues {
		if i.Severity.Blocking() {
			return true
		}
	}
	return false
}

// Split separates blocking issues from warnings and information.
func (o Outcome) Split() (blocking, nonBlocking Outcome) {
	for _, i := range o.Issues {
		if i.Severity.Blocking() {
			blocking.Issues = append(blocking.Issues, i)
		} else {
			nonBlocking.Issues = append(nonBlocking.Issues, i)
		}
	}
	return blocking, nonBlocking
}

// Empty reports whether there are no issues.
func (o Outcome) Empty() bool { return len(o.Issues) == 0 }
