// Package dump prints the first-action method of each transaction in a page.
package dump

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
)

// NullMarker is printed for records whose first action has no method.
const NullMarker = "null"

// Policy decides what happens to records without actions.
type Policy string

const (
	// PolicyFail aborts the whole batch before any line is written.
	PolicyFail Policy = "fail"
	// PolicySkip drops the record and logs a warning.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name. Empty means PolicyFail.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown malformed-record policy %q", name)
	}
}

// MalformedRecordError reports a record whose actions list is empty.
type MalformedRecordError struct {
	Index int
	ID    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d (id %q): actions list is empty", e.Index, e.ID)
}

// Methods returns one entry per record, in input order: the method of actions[0],
// or nil when that action carries none. An empty actions list fails with
// *MalformedRecordError.
func Methods(txns []model.Transaction) ([]*string, error) {
	out := make([]*string, 0, len(txns))
	for i, txn := range txns {
		method, err := firstMethod(i, txn)
		if err != nil {
			return nil, err
		}
		out = append(out, method)
	}
	return out, nil
}

func firstMethod(index int, txn model.Transaction) (*string, error) {
	action, ok := txn.FirstAction()
	if !ok {
		return nil, &MalformedRecordError{Index: index, ID: txn.ID}
	}
	method, ok := action.Method()
	if !ok {
		return nil, nil
	}
	return &method, nil
}

// Dumper writes methods line by line.
type Dumper struct {
	out    io.Writer
	policy Policy
	logger *zap.Logger
}

func NewDumper(out io.Writer, policy Policy, logger *zap.Logger) *Dumper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyFail
	}
	return &Dumper{out: out, policy: policy, logger: logger}
}

// Dump writes one line per record and returns the number of lines written.
// Lines are rendered before anything is written, so a failing batch leaves the
// writer untouched.
func (d *Dumper) Dump(txns []model.Transaction) (int, error) {
	lines := make([]string, 0, len(txns))
	for i, txn := range txns {
		method, err := firstMethod(i, txn)
		if err != nil {
			if d.policy != PolicySkip {
				return 0, err
			}
			d.logger.Warn("skip malformed record", zap.Int("index", i), zap.String("id", txn.ID), zap.Error(err))
			continue
		}
		if method == nil {
			lines = append(lines, NullMarker)
			continue
		}
		lines = append(lines, *method)
	}

	writer := bufio.NewWriter(d.out)
	for _, line := range lines {
		if _, err := writer.WriteString(line); err != nil {
			return 0, fmt.Errorf("write line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return 0, fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}

	return len(lines), nil
}
