// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses arguments and dispatches commands for the finops
// command-line tool.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdStatus Command = iota
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdQuery
	CmdGenerate
	CmdKPI
	CmdOptimizations
	CmdSpend
	CmdExport
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON  bool // raw JSON output instead of summaries
	Quiet bool

	// Command-specific
	Email    string
	Password string
	Query    string
	Engine   string
	Table    string
	Format   string

	// Raw holds the positional arguments after the command name.
	Raw []string
}

// Parse reads os.Args and returns the command with its arguments.
func Parse() (Command, Args) {
	remaining, parsed := parseGlobalFlags(os.Args[1:])

	if len(remaining) == 0 {
		return CmdHelp, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "status", "s":
		return CmdStatus, parsed

	case "login":
		if len(remaining) >= 1 {
			parsed.Email = remaining[0]
		}
		if len(remaining) >= 2 {
			parsed.Password = remaining[1]
		}
		return CmdLogin, parsed

	case "logout":
		return CmdLogout, parsed

	case "whoami", "me":
		return CmdWhoami, parsed

	case "query", "q":
		parseQueryArgs(&parsed, remaining)
		return CmdQuery, parsed

	case "generate", "ask":
		parseGenerateArgs(&parsed, remaining)
		return CmdGenerate, parsed

	case "kpi", "kpis":
		return CmdKPI, parsed

	case "optimizations", "opt":
		return CmdOptimizations, parsed

	case "spend":
		return CmdSpend, parsed

	case "export":
		if len(remaining) >= 1 {
			parsed.Format = remaining[0]
		}
		return CmdExport, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags strips leading flags that apply to every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	var remaining []string
	for _, arg := range args {
		switch arg {
		case "--json":
			parsed.JSON = true
		case "--quiet", "-q":
			parsed.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// parseQueryArgs reads the SQL text and an optional --engine flag.
func parseQueryArgs(parsed *Args, args []string) {
	var queryParts []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--engine" && i+1 < len(args) {
			parsed.Engine = args[i+1]
			i++
			continue
		}
		queryParts = append(queryParts, args[i])
	}
	parsed.Query = strings.Join(queryParts, " ")
}

// parseGenerateArgs reads the natural-language question and an optional
// --table flag.
func parseGenerateArgs(parsed *Args, args []string) {
	var queryParts []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--table" && i+1 < len(args) {
			parsed.Table = args[i+1]
			i++
			continue
		}
		queryParts = append(queryParts, args[i])
	}
	parsed.Query = strings.Join(queryParts, " ")
}

// PrintUsage writes the command summary.
func PrintUsage() {
	fmt.Print(`finops - FinOps analytics dashboard CLI

Usage:
  finops <command> [arguments]

Commands:
  status                   Check backend health
  login <email> <pass>     Authenticate and start a session
  logout                   End the current session
  whoami                   Show the current user and role
  query <sql>              Run a SQL query (--engine athena|trino)
  generate <question>      Generate SQL from natural language (--table t)
  kpi                      Fetch headline cost KPIs
  optimizations            Fetch cost optimization recommendations
  spend                    Fetch spend analytics
  export <format>          Record a data export (csv, xlsx)
  version                  Print version information
  help                     Show this help

Flags:
  --json                   Print raw JSON responses
  --quiet, -q              Suppress non-essential output

Demo accounts:
  admin@techcorp.com / admin123
  analyst@techcorp.com / analyst123
  viewer@techcorp.com / viewer123
`)
}

// PrintVersion writes build information.
func PrintVersion() {
	fmt.Printf("finops %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
