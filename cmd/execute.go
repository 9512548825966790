// Package cmd is the top-level driver for the micc compiler: command-line
// argument parsing and the single batch-compile pass it drives.
//
// Grounded on chai's cmd/execute.go (olive.NewCLI, AddPrimaryArg/AddFlag,
// result.Subcommand/PrimaryArg), trimmed from its multi-command
// build/mod/version surface to spec.md §6's single positional-argument
// form: `micc [-I <path>]... <mainModule>`.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ComedicChimera/olive"

	"micc/diag"
	"micc/mil"
	"micc/module"
	"micc/token"
	"micc/types"
)

// Version is the compiler's own version string, chai's common.ChaiVersion
// equivalent for the "version" subcommand.
const Version = "0.1.0"

// Execute runs the micc CLI and exits the process with a status reflecting
// compilation success (spec.md §6: "Exits 0 on success, non-zero if any
// module failed").
func Execute() {
	roots, rest := extractImportRoots(os.Args[1:])

	cli := olive.NewCLI("micc", "micc compiles M source into MIL", true)
	cli.AddSubcommand("version", "print the compiler version", false)
	cli.AddPrimaryArg("mainModule", "path to the main module's source file", false)

	result, err := olive.ParseArgs(cli, append([]string{os.Args[0]}, rest...))
	if err != nil {
		diag.PrintError("CLI Usage Error", err)
		os.Exit(1)
	}

	if subcmdName, _, _ := result.Subcommand(); subcmdName == "version" {
		fmt.Println(Version)
		return
	}

	mainPath, ok := result.PrimaryArg()
	if !ok {
		diag.PrintError("CLI Usage Error", fmt.Errorf("missing main module path"))
		os.Exit(1)
	}

	os.Exit(compile(mainPath, roots))
}

// extractImportRoots pulls every "-I <path>" pair out of args, in the order
// given, before olive ever sees them: spec.md §6 requires -I to repeat,
// which doesn't fit olive's one-value-per-named-argument surface, so it is
// handled as a dedicated pre-pass instead (the rest of args, positional
// argument and subcommand included, is untouched and handed to olive as
// usual).
func extractImportRoots(args []string) (roots []string, rest []string) {
	for i := 0; i < len(args); i++ {
		if args[i] == "-I" {
			if i+1 >= len(args) {
				diag.PrintError("CLI Usage Error", fmt.Errorf("-I requires a path argument"))
				os.Exit(1)
			}
			roots = append(roots, args[i+1])
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return roots, rest
}

// compile runs one single-threaded batch compilation of mainPath and every
// module it transitively imports (spec.md §5), printing MIL text to stdout
// and every accumulated diagnostic to stderr. Returns the process exit
// code: 0 if no module failed, 1 otherwise.
func compile(mainPath string, roots []string) int {
	absPath, err := filepath.Abs(mainPath)
	if err != nil {
		diag.PrintError("Path Error", err)
		return 1
	}

	sink := diag.NewSink()
	mgr := module.New(roots, token.NewTable(), types.NewRegistry(), sink, mil.NewEmitter(mil.NewTextRenderer(os.Stdout)))

	if err := mgr.LoadManifest(filepath.Dir(absPath)); err != nil {
		diag.PrintError("Manifest Error", err)
	}

	if !runCompile(mgr, absPath, sink) {
		return 1
	}

	sink.Report()
	if sink.HasErrors() {
		return 1
	}
	return 0
}

// runCompile recovers an *diag.AbortError raised by an INTERNAL-kind
// contract failure (diag.Sink.Abort) so a compiler defect exits cleanly
// instead of letting a bare panic escape to the user, matching chai's
// placeholder LogFatal path generalized into a real abort (DESIGN.md).
func runCompile(mgr *module.Manager, mainPath string, sink *diag.Sink) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if ae, isAbort := r.(*diag.AbortError); isAbort {
				diag.PrintError("Internal Error", ae)
				ok = false
				return
			}
			panic(r)
		}
	}()

	mgr.LoadMain(mainPath)
	return true
}
