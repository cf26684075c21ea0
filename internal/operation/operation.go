// Package operation defines the closed set of field mutations that can be
// queued for delivery to the tracking backend.
//
// An Operation describes exactly one mutation of one attribute path on a
// container (assign a scalar, append to a series, mutate a string set,
// delete, copy). Operations are immutable once constructed and serialize to
// single-line records, see codec.go.
package operation

import (
	"strings"
	"time"
)

// Path is an attribute path on a container, ordered from root to leaf.
type Path []string

// NewPath parses a slash-separated attribute path.
func NewPath(s string) Path {
	return strings.Split(s, "/")
}

// String joins the path segments with slashes.
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Kind identifies one operation type in the closed set.
type Kind string

// All supported operation kinds.
const (
	KindAssignFloat    Kind = "AssignFloat"
	KindAssignInt      Kind = "AssignInt"
	KindAssignBool     Kind = "AssignBool"
	KindAssignString   Kind = "AssignString"
	KindAssignDatetime Kind = "AssignDatetime"
	KindLogFloats      Kind = "LogFloats"
	KindLogStrings     Kind = "LogStrings"
	KindClearFloatLog  Kind = "ClearFloatLog"
	KindClearStringLog Kind = "ClearStringLog"
	KindAddStrings     Kind = "AddStrings"
	KindRemoveStrings  Kind = "RemoveStrings"
	KindClearStringSet Kind = "ClearStringSet"
	KindDelete         Kind = "DeleteAttribute"
	KindCopy           Kind = "CopyAttribute"
)

// Operation is one serializable mutation of one attribute path.
//
// The set of implementations is closed: the codec and every consumer switch
// exhaustively over Kind, and the unexported method prevents implementations
// outside this package.
type Operation interface {
	// Kind returns the operation type tag.
	Kind() Kind

	// AttributePath returns the path of the mutated attribute.
	AttributePath() Path

	sealed()
}

// AssignFloat sets a float attribute.
type AssignFloat struct {
	Path  Path    `json:"path"`
	Value float64 `json:"value"`
}

// AssignInt sets an integer attribute.
type AssignInt struct {
	Path  Path  `json:"path"`
	Value int64 `json:"value"`
}

// AssignBool sets a boolean attribute.
type AssignBool struct {
	Path  Path `json:"path"`
	Value bool `json:"value"`
}

// AssignString sets a string attribute.
type AssignString struct {
	Path  Path   `json:"path"`
	Value string `json:"value"`
}

// AssignDatetime sets a datetime attribute.
// The value is stored with millisecond precision.
type AssignDatetime struct {
	Path Path  `json:"path"`
	// ValueMs is the value as Unix milliseconds.
	ValueMs int64 `json:"value"`
}

// NewAssignDatetime creates an AssignDatetime from a time.Time.
func NewAssignDatetime(path Path, t time.Time) *AssignDatetime {
	return &AssignDatetime{Path: path, ValueMs: t.UnixMilli()}
}

// Value returns the assigned datetime in UTC.
func (op *AssignDatetime) Value() time.Time {
	return time.UnixMilli(op.ValueMs).UTC()
}

// FloatLogValue is one appended entry of a float series.
type FloatLogValue struct {
	Value float64 `json:"value"`
	// Step is the optional x-axis position of the entry.
	Step *float64 `json:"step,omitempty"`
	// TS is the entry timestamp as Unix seconds with fractional part.
	TS float64 `json:"ts"`
}

// StringLogValue is one appended entry of a string series.
type StringLogValue struct {
	Value string   `json:"value"`
	Step  *float64 `json:"step,omitempty"`
	TS    float64  `json:"ts"`
}

// LogFloats appends entries to a float series attribute.
type LogFloats struct {
	Path   Path            `json:"path"`
	Values []FloatLogValue `json:"values"`
}

// LogStrings appends entries to a string series attribute.
type LogStrings struct {
	Path   Path             `json:"path"`
	Values []StringLogValue `json:"values"`
}

// ClearFloatLog removes all entries of a float series attribute.
type ClearFloatLog struct {
	Path Path `json:"path"`
}

// ClearStringLog removes all entries of a string series attribute.
type ClearStringLog struct {
	Path Path `json:"path"`
}

// AddStrings adds values to a string set attribute.
type AddStrings struct {
	Path   Path     `json:"path"`
	Values []string `json:"values"`
}

// RemoveStrings removes values from a string set attribute.
type RemoveStrings struct {
	Path   Path     `json:"path"`
	Values []string `json:"values"`
}

// ClearStringSet removes all values of a string set attribute.
type ClearStringSet struct {
	Path Path `json:"path"`
}

// Delete removes an attribute and its value entirely.
type Delete struct {
	Path Path `json:"path"`
}

// Copy sets an attribute from the value of an attribute on another
// container.
type Copy struct {
	Path                Path   `json:"path"`
	SourceContainerID   string `json:"source_container_id"`
	SourceContainerType string `json:"source_container_type"`
	SourcePath          Path   `json:"source_path"`
}

// Kind implements Operation.
func (op *AssignFloat) Kind() Kind { return KindAssignFloat }

// Kind implements Operation.
func (op *AssignInt) Kind() Kind { return KindAssignInt }

// Kind implements Operation.
func (op *AssignBool) Kind() Kind { return KindAssignBool }

// Kind implements Operation.
func (op *AssignString) Kind() Kind { return KindAssignString }

// Kind implements Operation.
func (op *AssignDatetime) Kind() Kind { return KindAssignDatetime }

// Kind implements Operation.
func (op *LogFloats) Kind() Kind { return KindLogFloats }

// Kind implements Operation.
func (op *LogStrings) Kind() Kind { return KindLogStrings }

// Kind implements Operation.
func (op *ClearFloatLog) Kind() Kind { return KindClearFloatLog }

// Kind implements Operation.
func (op *ClearStringLog) Kind() Kind { return KindClearStringLog }

// Kind implements Operation.
func (op *AddStrings) Kind() Kind { return KindAddStrings }

// Kind implements Operation.
func (op *RemoveStrings) Kind() Kind { return KindRemoveStrings }

// Kind implements Operation.
func (op *ClearStringSet) Kind() Kind { return KindClearStringSet }

// Kind implements Operation.
func (op *Delete) Kind() Kind { return KindDelete }

// Kind implements Operation.
func (op *Copy) Kind() Kind { return KindCopy }

// AttributePath implements Operation.
func (op *AssignFloat) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *AssignInt) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *AssignBool) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *AssignString) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *AssignDatetime) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *LogFloats) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *LogStrings) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *ClearFloatLog) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *ClearStringLog) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *AddStrings) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *RemoveStrings) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *ClearStringSet) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *Delete) AttributePath() Path { return op.Path }

// AttributePath implements Operation.
func (op *Copy) AttributePath() Path { return op.Path }

func (op *AssignFloat) sealed()    {}
func (op *AssignInt) sealed()      {}
func (op *AssignBool) sealed()     {}
func (op *AssignString) sealed()   {}
func (op *AssignDatetime) sealed() {}
func (op *LogFloats) sealed()      {}
func (op *LogStrings) sealed()     {}
func (op *ClearFloatLog) sealed()  {}
func (op *ClearStringLog) sealed() {}
func (op *AddStrings) sealed()     {}
func (op *RemoveStrings) sealed()  {}
func (op *ClearStringSet) sealed() {}
func (op *Delete) sealed()         {}
func (op *Copy) sealed()           {}
