package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMaxDailyTasks indicates the daily task ID sequence is exhausted.
var ErrMaxDailyTasks = errors.New("maximum tasks per day (999) exceeded")

// ErrMaxSubtasks indicates the per-parent subtask sequence is exhausted.
var ErrMaxSubtasks = errors.New("maximum subtasks per task (999) exceeded")

// TaskID is an immutable task identifier of the form YYYYMMDDNNN for a
// task (date plus a 3-digit daily sequence) or YYYYMMDDNNN.MMM for a
// subtask (3-digit per-parent sequence). Both sequences run 1-999.
type TaskID struct {
	value string
}

// ParseTaskID validates a raw string and returns it as a TaskID.
func ParseTaskID(raw string) (TaskID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TaskID{}, errors.New("task ID cannot be empty")
	}

	datePart := raw
	seqPart := ""
	subPart := ""

	if i := strings.IndexByte(raw, '.'); i >= 0 {
		subPart = raw[i+1:]
		datePart = raw[:i]
		if len(subPart) != 3 {
			return TaskID{}, fmt.Errorf("invalid task ID %q: subtask sequence must be 3 digits", raw)
		}
	}
	if len(datePart) != 11 {
		return TaskID{}, fmt.Errorf("invalid task ID %q: expected YYYYMMDDNNN format", raw)
	}
	seqPart = datePart[8:]
	datePart = datePart[:8]

	if _, err := time.Parse("20060102", datePart); err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID %q: bad date part %q", raw, datePart)
	}
	if err := validateSequence(seqPart); err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID %q: %w", raw, err)
	}
	if subPart != "" {
		if err := validateSequence(subPart); err != nil {
			return TaskID{}, fmt.Errorf("invalid task ID %q: %w", raw, err)
		}
	}

	return TaskID{value: raw}, nil
}

// MustTaskID parses a raw string and panics on error. Intended for tests
// and compile-time-constant identifiers.
func MustTaskID(raw string) TaskID {
	id, err := ParseTaskID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func validateSequence(s string) error {
	if len(s) != 3 {
		return fmt.Errorf("sequence %q must be 3 digits", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("sequence %q is not numeric", s)
	}
	if n < 1 || n > 999 {
		return fmt.Errorf("sequence %q out of range 1-999", s)
	}
	return nil
}

// String returns the raw identifier value.
func (id TaskID) String() string { return id.value }

// MarshalJSON encodes the TaskID as its raw string value.
func (id TaskID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes and validates a TaskID from a JSON string. The
// zero value round-trips as "".
func (id *TaskID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*id = TaskID{}
		return nil
	}
	parsed, err := ParseTaskID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsZero reports whether the TaskID is the zero value.
func (id TaskID) IsZero() bool { return id.value == "" }

// DatePart returns the YYYYMMDD portion.
func (id TaskID) DatePart() string { return id.value[:8] }

// SequencePart returns the 3-digit daily sequence.
func (id TaskID) SequencePart() string {
	main := id.value
	if i := strings.IndexByte(main, '.'); i >= 0 {
		main = main[:i]
	}
	return main[8:]
}

// SubtaskSequence returns the 3-digit subtask sequence, or "" for a main task.
func (id TaskID) SubtaskSequence() string {
	if i := strings.IndexByte(id.value, '.'); i >= 0 {
		return id.value[i+1:]
	}
	return ""
}

// IsSubtask reports whether the ID identifies a subtask.
func (id TaskID) IsSubtask() bool { return strings.IndexByte(id.value, '.') >= 0 }

// ParentID returns the parent task's ID for a subtask ID.
func (id TaskID) ParentID() (TaskID, error) {
	i := strings.IndexByte(id.value, '.')
	if i < 0 {
		return TaskID{}, fmt.Errorf("cannot get parent task ID for main task %s", id.value)
	}
	return TaskID{value: id.value[:i]}, nil
}

// Int returns the numeric form of the identifier: the daily sequence for
// a main task, or parentSequence*1000+subtaskSequence for a subtask.
func (id TaskID) Int() int {
	seq, _ := strconv.Atoi(id.SequencePart())
	if sub := id.SubtaskSequence(); sub != "" {
		n, _ := strconv.Atoi(sub)
		return seq*1000 + n
	}
	return seq
}

// GenerateTaskID returns the next unused task ID for today, scanning
// existingIDs for the highest daily sequence sharing today's date prefix.
func GenerateTaskID(existingIDs []string) (TaskID, error) {
	prefix := time.Now().Format("20060102")

	maxSeq := 0
	for _, raw := range existingIDs {
		if len(raw) != 11 || !strings.HasPrefix(raw, prefix) {
			continue
		}
		if n, err := strconv.Atoi(raw[8:]); err == nil && n > maxSeq {
			maxSeq = n
		}
	}

	next := maxSeq + 1
	if next > 999 {
		return TaskID{}, ErrMaxDailyTasks
	}
	return TaskID{value: fmt.Sprintf("%s%03d", prefix, next)}, nil
}

// GenerateSubtaskID returns the next unused subtask ID under parent,
// scanning existingIDs for the highest subtask sequence of that parent.
// The parent must not itself be a subtask.
func GenerateSubtaskID(parent TaskID, existingIDs []string) (TaskID, error) {
	if parent.IsSubtask() {
		return TaskID{}, errors.New("cannot create subtask of a subtask")
	}

	prefix := parent.value + "."
	maxSeq := 0
	for _, raw := range existingIDs {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		if n, err := strconv.Atoi(raw[len(prefix):]); err == nil && n > maxSeq {
			maxSeq = n
		}
	}

	next := maxSeq + 1
	if next > 999 {
		return TaskID{}, ErrMaxSubtasks
	}
	return TaskID{value: fmt.Sprintf("%s%03d", prefix, next)}, nil
}

// TaskIDFromInt builds today's task ID with n as the daily sequence.
func TaskIDFromInt(n int) (TaskID, error) {
	if n <= 0 {
		return TaskID{}, fmt.Errorf("task ID sequence must be positive, got %d", n)
	}
	if n > 999 {
		return TaskID{}, fmt.Errorf("task ID sequence cannot exceed 999, got %d", n)
	}
	return TaskID{value: fmt.Sprintf("%s%03d", time.Now().Format("20060102"), n)}, nil
}
