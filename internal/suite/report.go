package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Outcome is the final state of a case.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of one case.
type Result struct {
	Case     string        `json:"case" yaml:"case"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	Failures []Assertion   `json:"failures,omitempty" yaml:"failures,omitempty"`
	Logs     []string      `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// Report aggregates the results of one run.
type Report struct {
	ID        uuid.UUID     `json:"id" yaml:"id"`
	Library   string        `json:"library,omitempty" yaml:"library,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	Results   []Result      `json:"results" yaml:"results"`
}

// Counts tallies results by outcome.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Counts returns the outcome tally.
func (r *Report) Counts() Counts {
	c := Counts{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomePassed:
			c.Passed++
		case OutcomeFailed:
			c.Failed++
		case OutcomeSkipped:
			c.Skipped++
		}
	}
	return c
}

// Passed reports whether every case passed.
func (r *Report) Passed() bool {
	c := r.Counts()
	return c.Passed == c.Total
}

// ExitCode returns 0 if every case passed and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

// Summary returns a one-line description of the run.
func (r *Report) Summary() string {
	c := r.Counts()
	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	return fmt.Sprintf("%s: %d cases, %d passed, %d failed, %d skipped (%s)",
		status, c.Total, c.Passed, c.Failed, c.Skipped, r.Duration.Round(time.Microsecond))
}

// Result returns the result for a case ID.
func (r *Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.Case == id {
			return res, true
		}
	}
	return Result{}, false
}

// Format selects a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Encode writes the report to w.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return r.encodeText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (r *Report) encodeText(w io.Writer) error {
	var b strings.Builder
	for _, res := range r.Results {
		label := "PASS"
		switch res.Outcome {
		case OutcomeFailed:
			label = "FAIL"
		case OutcomeSkipped:
			label = "SKIP"
		}
		fmt.Fprintf(&b, "--- %s: %s (%s)\n", label, res.Case, res.Duration.Round(time.Microsecond))
		for _, line := range res.Logs {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		for _, f := range res.Failures {
			for _, line := range strings.Split(strings.TrimRight(f.Message, "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	b.WriteString(r.Summary())
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
