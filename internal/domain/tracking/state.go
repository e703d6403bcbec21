package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// State describes an entity's pending mutation relative to its last known
// persisted state. The zero value is Unchanged.
type State int

const (
	Unchanged State = iota
	Added
	Modified
	Deleted
)

var stateNames = [...]string{"Unchanged", "Added", "Modified", "Deleted"}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

func (s State) Valid() bool {
	return s >= Unchanged && s <= Deleted
}

// ParseState accepts a state name (any case) or its numeric value.
func ParseState(raw string) (State, error) {
	raw = strings.TrimSpace(raw)
	for i, name := range stateNames {
		if strings.EqualFold(raw, name) {
			return State(i), nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && State(n).Valid() {
		return State(n), nil
	}
	return Unchanged, fmt.Errorf("invalid tracking state %q", raw)
}

// MarshalJSON writes the numeric value, which is what existing trackable
// clients exchange on the wire.
func (s State) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid tracking state %d", int(s))
	}
	return []byte(strconv.Itoa(int(s))), nil
}

func (s *State) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Unchanged
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
