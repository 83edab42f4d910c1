// csrngctl drives the CSRNG register model from the command line.
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	configPath = flag.String("config", "", "path to config file")

	// Version information (set at build time)
	version = "dev"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "kat":
		err = cmdKAT(args)
	case "generate":
		err = cmdGenerate(args)
	case "regmap":
		err = cmdRegmap(args)
	case "trace":
		err = cmdTrace(args)
	case "watch":
		err = cmdWatch(args)
	case "version":
		fmt.Printf("csrngctl %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `csrngctl - CSRNG register model driver

Usage: csrngctl [options] <command> [args]

Commands:
  kat [-vectors file]                       Run known-answer vectors
  generate -blocks N [-seed w,..|-entropy]  Instantiate, generate and print GENBITS words
  regmap                                    Print the register map
  trace [-session name]                     List traced sessions or one session's accesses
  watch [-vectors file]                     Re-run vectors whenever the config file changes
  version                                   Print version
  help                                      Show this help message

Options:
  -config <path>  Path to config file (default: $XDG_CONFIG_HOME/csrngemu/config.toml)`)
}
