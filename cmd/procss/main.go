// procss CLI - compiles CSS+ stylesheets to CSS
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/procss/compiler"
	"github.com/chazu/procss/server"
)

const version = "0.1.0"

func main() {
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: procss [options] <file>\n")
		fmt.Fprintf(os.Stderr, "       procss [options] build [build options]\n")
		fmt.Fprintf(os.Stderr, "       procss [options] lsp\n\n")
		fmt.Fprintf(os.Stderr, "Parses and flattens a CSS+ file, printing the CSS to standard output.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  build   Compile the project described by procss.toml\n")
		fmt.Fprintf(os.Stderr, "  lsp     Start the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "  A regular file named build or lsp in the current directory is\n")
		fmt.Fprintf(os.Stderr, "  compiled instead of running the command.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  procss app.scss            # Print flattened CSS\n")
		fmt.Fprintf(os.Stderr, "  procss build               # Build ./src into ./dist\n")
		fmt.Fprintf(os.Stderr, "  procss -v build -o public  # Build into ./public with debug logging\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch subcommand(args[0]) {
	case "build":
		handleBuildCommand(args[1:])
		return
	case "lsp":
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	css, err := compileFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(css)
}

// subcommand returns arg when it names a subcommand. A regular file of the
// same name wins, so `procss build` still compiles a stylesheet called build.
func subcommand(arg string) string {
	switch arg {
	case "build", "lsp":
		if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
			return ""
		}
		return arg
	}
	return ""
}

// compileFile parses and flattens a single file. Imports, mixins and
// variables are left as written; `procss build` applies them.
func compileFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tree, err := compiler.Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return tree.Flatten().String(), nil
}
