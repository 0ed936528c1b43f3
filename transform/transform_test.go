package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestModule materializes a minimal standalone module on disk so
// packages.Load has a real go.mod to resolve against,
// mirroring how primemovergen is actually invoked: inside a real module
// checkout, never against bare in-memory source.
func writeTestModule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	moduleRoot := filepath.Dir(cwd) // transform/ sits directly under the module root.

	goMod := "module example.com/entitytest\n\ngo 1.24\n\n" +
		"require github.com/signalsfoundry/primemover v0.0.0\n\n" +
		"replace github.com/signalsfoundry/primemover => " + filepath.ToSlash(moduleRoot) + "\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644); err != nil {
		t.Fatal(err)
	}

	const source = `package entitytest

import "github.com/signalsfoundry/primemover/entity"

// primemover:entity
type Server struct{ entity.Base }

// primemover:event
func (s *Server) Arrive(customerID int) error { return nil }

// primemover:blocking
func (s *Server) Depart(customerID int) (int, error) { return customerID, nil }

func (s *Server) helper() {}
`
	if err := os.WriteFile(filepath.Join(dir, "server.go"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// writeDefaultModeModule is writeTestModule's sibling: an entity with no
// primemover:event/primemover:blocking marker anywhere, exercising the
// "default event set" rule - every exported method becomes a (non-blocking)
// event method when the type declares no explicit markers at all.
func writeDefaultModeModule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	moduleRoot := filepath.Dir(cwd)

	goMod := "module example.com/entitytest\n\ngo 1.24\n\n" +
		"require github.com/signalsfoundry/primemover v0.0.0\n\n" +
		"replace github.com/signalsfoundry/primemover => " + filepath.ToSlash(moduleRoot) + "\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644); err != nil {
		t.Fatal(err)
	}

	const source = `package entitytest

import "github.com/signalsfoundry/primemover/entity"

// primemover:entity
type Lamp struct{ entity.Base }

func (l *Lamp) TurnOn() error { return nil }

func (l *Lamp) TurnOff() error { return nil }

func (l *Lamp) isLit() bool { return false }
`
	if err := os.WriteFile(filepath.Join(dir, "lamp.go"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAnalyzeDefaultsToAllExportedMethodsWhenUnmarked(t *testing.T) {
	dir := writeDefaultModeModule(t)
	pkg, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(pkg.Entities) != 1 {
		t.Fatalf("Entities = %v, want exactly one", pkg.Entities)
	}
	e := pkg.Entities[0]
	if e.Name != "Lamp" {
		t.Fatalf("entity name = %q, want Lamp", e.Name)
	}
	if len(e.Methods) != 2 {
		t.Fatalf("methods = %v, want exactly two (isLit is unexported)", e.Methods)
	}
	for _, m := range e.Methods {
		if m.Blocking {
			t.Fatalf("method %+v defaulted to blocking, want non-blocking", m)
		}
	}
	if e.Methods[0].Name != "TurnOff" || e.Methods[1].Name != "TurnOn" {
		t.Fatalf("methods = %v, want [TurnOff, TurnOn] in lexical order", e.Methods)
	}
}

func TestAnalyzeFindsMarkedEntityAndMethods(t *testing.T) {
	dir := writeTestModule(t)
	pkg, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(pkg.Entities) != 1 {
		t.Fatalf("Entities = %v, want exactly one", pkg.Entities)
	}
	e := pkg.Entities[0]
	if e.Name != "Server" {
		t.Fatalf("entity name = %q, want Server", e.Name)
	}
	if len(e.Methods) != 2 {
		t.Fatalf("methods = %v, want exactly two (helper is non-event)", e.Methods)
	}
	// Ordinals assigned by lexical method-name order: Arrive < Depart.
	if e.Methods[0].Name != "Arrive" || e.Methods[0].Ordinal != 0 {
		t.Fatalf("methods[0] = %+v, want Arrive at ordinal 0", e.Methods[0])
	}
	if e.Methods[1].Name != "Depart" || e.Methods[1].Ordinal != 1 || !e.Methods[1].Blocking {
		t.Fatalf("methods[1] = %+v, want blocking Depart at ordinal 1", e.Methods[1])
	}
}

func TestGenerateProducesDispatchAndStubs(t *testing.T) {
	dir := writeTestModule(t)
	pkg, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	outPath := filepath.Join(dir, "server_eventgen.go")
	if err := Generate(pkg, outPath); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"func (s *Server) Invoke(ordinal int, args []any) (any, error) {",
		"func (s *Server) SignatureFor(ordinal int) string {",
		"func (s *Server) PostArrive(",
		"func (s *Server) AwaitDepart(",
		"primemover:ordinals Server 0 Server.Arrive(int) error",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("generated output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateRejectsIncompatibleOrdinalReassignment(t *testing.T) {
	dir := writeTestModule(t)
	pkg, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	outPath := filepath.Join(dir, "server_eventgen.go")
	if err := Generate(pkg, outPath); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Simulate changing Arrive's signature without renaming the method
	// (e.g. a parameter type changed) by hand-editing the fresh analysis
	// result; the ordinal table written by the first Generate is what it is
	// compared against.
	pkg.Entities[0].Methods[0].Signature = "Server.Arrive(string) error"

	err = Generate(pkg, outPath)
	if err == nil {
		t.Fatalf("Generate did not reject an incompatible ordinal reassignment")
	}
	if _, ok := err.(*AlreadyTransformedMismatch); !ok {
		t.Fatalf("Generate error = %T, want *AlreadyTransformedMismatch", err)
	}
}
