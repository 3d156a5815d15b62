// Package cli maps the modbisect command line onto the application. It owns
// the cobra command tree, validates flag values and turns failures into an
// ExitError carrying the process exit code.
package cli
