// finops - command-line client for the FinOps analytics dashboard.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/techcorp/finops-go/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdWhoami:
		err = cli.HandleWhoami(args)
	case cli.CmdQuery:
		err = cli.HandleQuery(args)
	case cli.CmdGenerate:
		err = cli.HandleGenerate(args)
	case cli.CmdKPI, cli.CmdOptimizations, cli.CmdSpend:
		err = cli.HandleRead(cmd, args)
	case cli.CmdExport:
		err = cli.HandleExport(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
