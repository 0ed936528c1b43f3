// Package transform implements the Transformation Contract: it reads a
// package's entity-marked types and event-marked methods and generates the
// Invoke/SignatureFor dispatch, ordinal table, and PostX/AwaitX
// scheduling stubs a modeler would otherwise hand-write. cmd/primemovergen
// is the CLI front end.
package transform

import "fmt"

// EntityMarker is the doc-comment marker identifying a type as a
// transformable entity. It must be embedded alongside entity.Base.
const EntityMarker = "primemover:entity"

// EventMarker tags a non-blocking event method; its generated PostX stub
// calls PostEvent and returns immediately with only the post's error.
const EventMarker = "primemover:event"

// BlockingMarker tags a blocking event method; its generated stub calls
// PostContinuingEvent and returns the call's eventual result.
const BlockingMarker = "primemover:blocking"

// GeneratedHeader is the first line of every primemovergen output file.
// Generate does not check for it; later runs recognize an already
// transformed package by the primemover:ordinals marker comments instead.
const GeneratedHeader = "// Code generated by primemovergen. DO NOT EDIT."

// Param describes one method parameter in declaration order.
type Param struct {
	Name string
	Type string // the Go source form of the parameter's type, e.g. "int", "*Customer"
}

// Method is one qualifying event method on an Entity: exported, declared on
// a type carrying EntityMarker, and tagged with EventMarker or
// BlockingMarker in its doc comment - or, when no method of the type carries
// either marker, any exported method (as a non-blocking event).
type Method struct {
	Name      string
	Ordinal   int
	Blocking  bool
	Params    []Param
	ResultType string // "" for void
	Signature  string // "Type.Method(argTypes) retType", used for SignatureFor
}

// Entity is one type found to carry EntityMarker, with its qualifying
// methods assigned stable ordinals.
type Entity struct {
	Name     string // the Go type name, e.g. "Server"
	Receiver string // the receiver variable name used in the original methods, e.g. "s"
	Methods  []Method
}

// Package is the analysis result for one directory: every entity type
// found and enough context to regenerate or validate against a prior
// generation.
type Package struct {
	Name     string
	Dir      string
	Entities []Entity
}

// OrdinalTable maps ordinal -> signature for one entity, the
// "already transformed" marker table spec.md §4.4 describes. It is
// embedded as a comment in generated output and re-parsed on the next run
// to detect incompatible ordinal reassignment.
type OrdinalTable map[int]string

func (e Entity) ordinalTable() OrdinalTable {
	t := make(OrdinalTable, len(e.Methods))
	for _, m := range e.Methods {
		t[m.Ordinal] = m.Signature
	}
	return t
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%s, %d methods)", e.Name, len(e.Methods))
}
