package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyMake is returned when a blank make name is chosen.
var ErrEmptyMake = errors.New("make name is empty")

// Provenance records where a make entry came from.
type Provenance string

const (
	// ProvenanceDefault marks entries copied from category or request data.
	ProvenanceDefault Provenance = "default"
	// ProvenanceUser marks entries chosen or added while editing.
	ProvenanceUser Provenance = "user"
)

// MakeEntry is one candidate brand for an item.
type MakeEntry struct {
	Make       string
	Enabled    bool
	Provenance Provenance
}

type makeEntryWire struct {
	Make       string          `json:"make"`
	Enabled    json.RawMessage `json:"enabled,omitempty"`
	Provenance Provenance      `json:"provenance,omitempty"`
}

// MarshalJSON always writes enabled as a JSON boolean.
func (e MakeEntry) MarshalJSON() ([]byte, error) {
	p := e.Provenance
	if p == "" {
		p = ProvenanceDefault
	}
	return json.Marshal(struct {
		Make       string     `json:"make"`
		Enabled    bool       `json:"enabled"`
		Provenance Provenance `json:"provenance"`
	}{e.Make, e.Enabled, p})
}

// UnmarshalJSON accepts enabled as a boolean or as the legacy "true"/"false" string.
func (e *MakeEntry) UnmarshalJSON(data []byte) error {
	var w makeEntryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	enabled, err := parseEnabled(w.Enabled)
	if err != nil {
		return fmt.Errorf("make %q: %w", w.Make, err)
	}
	e.Make = w.Make
	e.Enabled = enabled
	e.Provenance = w.Provenance
	if e.Provenance == "" {
		e.Provenance = ProvenanceDefault
	}
	return nil
}

func parseEnabled(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("enabled: unsupported value %s", raw)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("enabled: unsupported value %q", s)
	}
}

// NormalizeMake folds a make name for comparison: trimmed, NFC, case-folded.
func NormalizeMake(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// MakeList is an ordered radio set of makes.
// Order is significant: the first enabled entry wins when data is ambiguous.
type MakeList []MakeEntry

// NewMakeList builds a list of disabled default entries.
func NewMakeList(names ...string) MakeList {
	return MakeList(nil).add(ProvenanceDefault, names...)
}

// Clone returns a copy of the list.
func (l MakeList) Clone() MakeList {
	if l == nil {
		return nil
	}
	out := make(MakeList, len(l))
	copy(out, l)
	return out
}

// Index returns the position of the named make, or -1.
func (l MakeList) Index(name string) int {
	key := NormalizeMake(name)
	for i, e := range l {
		if NormalizeMake(e.Make) == key {
			return i
		}
	}
	return -1
}

// Enabled returns the first enabled entry.
func (l MakeList) Enabled() (MakeEntry, bool) {
	for _, e := range l {
		if e.Enabled {
			return e, true
		}
	}
	return MakeEntry{}, false
}

// AllDisabled reports whether the list is non-empty and nothing is enabled.
func (l MakeList) AllDisabled() bool {
	if len(l) == 0 {
		return false
	}
	_, ok := l.Enabled()
	return !ok
}

// Names returns the make names in order.
func (l MakeList) Names() []string {
	names := make([]string, len(l))
	for i, e := range l {
		names[i] = e.Make
	}
	return names
}

// Select returns a new list where exactly the named make is enabled.
// A make not yet present is appended with user provenance.
func (l MakeList) Select(name string) (MakeList, error) {
	if NormalizeMake(name) == "" {
		return nil, ErrEmptyMake
	}
	out := l.Clone()
	idx := out.Index(name)
	if idx < 0 {
		out = append(out, MakeEntry{Make: strings.TrimSpace(name), Provenance: ProvenanceUser})
		idx = len(out) - 1
	}
	for i := range out {
		out[i].Enabled = i == idx
	}
	out[idx].Provenance = ProvenanceUser
	return out, nil
}

// Add returns a new list with the given makes appended as disabled user entries.
// Blank names and names already present are skipped.
func (l MakeList) Add(names ...string) MakeList {
	return l.add(ProvenanceUser, names...)
}

func (l MakeList) add(p Provenance, names ...string) MakeList {
	out := l.Clone()
	for _, name := range names {
		if NormalizeMake(name) == "" || out.Index(name) >= 0 {
			continue
		}
		out = append(out, MakeEntry{Make: strings.TrimSpace(name), Provenance: p})
	}
	return out
}

// AsDefaults returns a copy with every entry marked as default provenance.
func (l MakeList) AsDefaults() MakeList {
	out := l.Clone()
	for i := range out {
		out[i].Provenance = ProvenanceDefault
	}
	return out
}

// MarshalJSON writes the {"list": [...]} envelope.
func (l MakeList) MarshalJSON() ([]byte, error) {
	list := []MakeEntry(l)
	if list == nil {
		list = []MakeEntry{}
	}
	return json.Marshal(struct {
		List []MakeEntry `json:"list"`
	}{list})
}

// UnmarshalJSON reads either the {"list": [...]} envelope or a bare array.
// Extra enabled entries after the first are cleared.
func (l *MakeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var entries []MakeEntry
	if data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("make list: %w", err)
		}
	} else {
		var env struct {
			List []MakeEntry `json:"list"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("make list: %w", err)
		}
		entries = env.List
	}
	seen := false
	for i := range entries {
		if entries[i].Enabled {
			if seen {
				entries[i].Enabled = false
			}
			seen = true
		}
	}
	*l = entries
	return nil
}
