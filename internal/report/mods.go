package report

import (
	"fmt"
	"io"

	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/modpack"
)

// Mod writes one mod with its file and requirements.
func Mod(w io.Writer, m *mod.Mod) {
	fmt.Fprintf(w, "%s (%s) %s\n", m.Name, m.ID, m.Version.Raw())
	fmt.Fprintf(w, " ->  file: %s\n", m.JarName())
	if m.Parent != nil {
		fmt.Fprintf(w, " ->  bundled in: %s\n", m.Parent.ID)
	}
	for _, dep := range m.Dependencies {
		fmt.Fprintf(w, " ->  requires: %s %s (%s)\n", dep.ModID, dep, requiredLabel(dep.Required))
	}
	for _, dep := range m.Dependents {
		fmt.Fprintf(w, " ->  required by: %s %s (%s)\n", dep.ModID, dep, requiredLabel(dep.Required))
	}
}

// Problems writes the result of validating a pack and returns the number of
// problems found.
func Problems(w io.Writer, p *modpack.Pack, bad []*mod.Mod) int {
	for _, m := range bad {
		fmt.Fprintf(w, "%s (%s) %s:\n", m.Name, m.ID, m.Version.Raw())
		fmt.Fprintf(w, " ->  [file]: %s\n", m.JarName())
		for _, e := range m.Errors {
			fmt.Fprintf(w, " --> %s\n", e)
		}
		fmt.Fprintln(w)
	}
	for _, e := range p.Errors {
		fmt.Fprintf(w, " -> %s\n", e)
	}
	n := p.ProblemCount(bad)
	if n == 0 {
		fmt.Fprintln(w, " -> [PASS]")
		return 0
	}
	fmt.Fprintf(w, "%d problem(s) found\n", n)
	return n
}

// Why writes the requirements of a mod in both directions.
func Why(w io.Writer, why *modpack.Why) {
	m := why.Mod
	fmt.Fprintf(w, "%s (%s) [%s]:\n", m.Name, m.ID, m.Version.Raw())
	fmt.Fprintf(w, " -> File: %q\n\n", m.JarName())

	fmt.Fprintln(w, " -> Dependencies")
	for _, e := range why.Dependencies {
		edge(w, e)
	}
	fmt.Fprintln(w, " -> Dependents")
	for _, e := range why.Dependents {
		edge(w, e)
	}
}

func edge(w io.Writer, e modpack.Edge) {
	fmt.Fprintf(w, "   -> name:      %s\n", e.Name)
	fmt.Fprintf(w, "   -> modid:     %s\n", e.ModID)
	fmt.Fprintf(w, "   -> required:  %s\n", yesNo(e.Required))
	fmt.Fprintf(w, "   -> installed: %s\n", yesNo(e.Installed))
	fmt.Fprintf(w, "   -> versions:  %s\n", e.Versions)
	if !e.Satisfied {
		fmt.Fprintln(w, "   -> satisfied: no")
	}
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}
