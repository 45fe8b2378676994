// Package schema turns a section's client data into an ordered list of
// fill instructions.
//
// Each supported form page has a pure builder registered under its section
// name. Builders read the data only to decide structure: which of a
// not-applicable pair to emit, whether a Yes/No gate opens its dependent
// block, how many rows a list needs. Values themselves are resolved later,
// at fill time, from each instruction's Path.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/record"
)

// ErrNoSchema is returned by Build for a section without a builder.
var ErrNoSchema = errors.New("schema: no mapping for section")

// Kind is the control kind an instruction fills.
type Kind string

const (
	KindText     Kind = "text"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
	KindCheckbox Kind = "checkbox"
	KindArray    Kind = "array"  // whole repeating group from a list of rows
	KindExpand   Kind = "expand" // ensure a list row exists before its fields
)

// Policy adjusts how the orchestrator steps through an instruction.
type Policy string

const (
	PolicyNone Policy = ""
	// PolicyWaitBeforeResolve waits before locating the control, for
	// controls the page repopulates after an earlier change.
	PolicyWaitBeforeResolve Policy = "waitBeforeResolve"
	// PolicyPreventRedundantWrite leaves a select alone when the matching
	// option is already selected.
	PolicyPreventRedundantWrite Policy = "preventRedundantWrite"
)

// Transform maps a resolved raw value to a fillable one. present reports
// whether the path resolved; returning false skips the instruction.
type Transform func(raw any, present bool) (any, bool)

// Instruction is one step of a section fill.
type Instruction struct {
	Path      string        `json:"path"`
	Locator   dom.Locator   `json:"locator"`
	Fallbacks []dom.Locator `json:"fallbacks,omitempty"`
	Kind      Kind          `json:"kind"`
	Transform Transform     `json:"-"`
	Row       *RowAction    `json:"row,omitempty"`
	Group     *RowGroup     `json:"group,omitempty"`
	Policy    Policy        `json:"policy,omitempty"`
	MaxLength int           `json:"maxLength,omitempty"`
}

// With returns a copy using t as value transform.
func (i Instruction) With(t Transform) Instruction {
	i.Transform = t
	return i
}

// Max returns a copy truncating text values to n characters.
func (i Instruction) Max(n int) Instruction {
	i.MaxLength = n
	return i
}

// Wait returns a copy that waits before locating its control.
func (i Instruction) Wait() Instruction {
	i.Policy = PolicyWaitBeforeResolve
	return i
}

// Guard returns a copy that skips redundant select writes.
func (i Instruction) Guard() Instruction {
	i.Policy = PolicyPreventRedundantWrite
	return i
}

// RowAction asks for list row Index to exist. The row is created through
// the add-another control of row Index-1.
type RowAction struct {
	Group RowGroup `json:"group"`
	Index int      `json:"index"`
}

// Builder produces the instructions of one section.
type Builder func(d record.Data) []Instruction

// Registry maps section names to builders. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	Version  string
	builders map[string]Builder
}

// NewRegistry returns an empty registry tagged with version.
func NewRegistry(version string) *Registry {
	return &Registry{Version: version, builders: make(map[string]Builder)}
}

// Register binds a builder to a section, replacing any previous one.
func (r *Registry) Register(section string, b Builder) {
	r.builders[section] = b
}

// Build runs the section's builder.
func (r *Registry) Build(section string, d record.Data) ([]Instruction, error) {
	b, ok := r.builders[section]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoSchema, section)
	}
	return b(d), nil
}

// Has reports whether a builder is registered for section.
func (r *Registry) Has(section string) bool {
	_, ok := r.builders[section]
	return ok
}

// Sections lists registered section names, sorted.
func (r *Registry) Sections() []string {
	out := make([]string, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Version of the shipped mappings. Bump when a form page changes its
// control identifiers.
const Version = "2025.2"

// Default returns a registry with every shipped section.
func Default() *Registry {
	r := NewRegistry(Version)
	r.Register(PersonalInfo1, personalInfo1)
	r.Register(PersonalInfo2, personalInfo2)
	r.Register(AddressAndPhone, addressAndPhone)
	r.Register(PassportInfo, passportInfo)
	r.Register(TravelInfo, travelInfo)
	r.Register(TravelCompanions, travelCompanions)
	r.Register(PreviousTravel, previousTravel)
	r.Register(USContact, usContact)
	r.Register(FamilyRelatives, familyRelatives)
	return r
}

// Section names.
const (
	PersonalInfo1    = "personalInfo1"
	PersonalInfo2    = "personalInfo2"
	AddressAndPhone  = "addressAndPhone"
	PassportInfo     = "passportInfo"
	TravelInfo       = "travelInfo"
	TravelCompanions = "travelCompanions"
	PreviousTravel   = "previousTravel"
	USContact        = "usContact"
	FamilyRelatives  = "familyRelatives"
)
