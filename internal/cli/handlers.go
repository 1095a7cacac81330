// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/techcorp/finops-go/internal/apiclient"
	"github.com/techcorp/finops-go/internal/auth"
	"github.com/techcorp/finops-go/internal/config"
	"github.com/techcorp/finops-go/internal/finops"
	"github.com/techcorp/finops-go/internal/kv"
	"github.com/techcorp/finops-go/internal/userdata"
)

// commandTimeout bounds every CLI-initiated backend call.
const commandTimeout = 2 * time.Minute

// app bundles the wired SDK components for one command invocation.
type app struct {
	cfg      config.Config
	store    kv.Store
	auth     *auth.Manager
	userdata *userdata.Store
	client   *apiclient.Client
	service  *finops.Service
}

// newApp loads configuration and wires the SDK. The store backend is a
// directory of JSON files by default; FINOPS_STORE=sqlite selects the
// single-file database instead.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dir := os.Getenv("FINOPS_DATA_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".finops")
	}

	var store kv.Store
	if os.Getenv("FINOPS_STORE") == "sqlite" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err = kv.NewSQLiteStore(filepath.Join(dir, "finops.db"))
	} else {
		store, err = kv.NewFileStore(filepath.Join(dir, "store"))
	}
	if err != nil {
		return nil, err
	}

	mgr := auth.NewManager(store)
	ud := userdata.NewStore(store, mgr)
	mgr.SetSeeder(ud)

	client := apiclient.New(cfg)
	return &app{
		cfg:      cfg,
		store:    store,
		auth:     mgr,
		userdata: ud,
		client:   client,
		service:  finops.NewService(cfg, client),
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// printPayload renders a raw backend payload, indented unless --json.
func printPayload(data json.RawMessage, args Args) {
	if args.JSON {
		fmt.Println(string(data))
		return
	}
	var buf map[string]any
	if err := json.Unmarshal(data, &buf); err != nil {
		fmt.Println(string(data))
		return
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(string(pretty))
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleStatus probes backend health.
func HandleStatus(args Args) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	status := a.client.CheckHealth(ctx)
	if args.JSON {
		out, _ := json.Marshal(status)
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Backend:  %s\n", a.cfg.BaseURL)
	fmt.Printf("Status:   %s\n", status.Status)
	if status.IsHealthy {
		fmt.Printf("Latency:  %dms\n", status.ResponseTimeMS)
		if status.Version != "" {
			fmt.Printf("Version:  %s\n", status.Version)
		}
	} else if status.Error != "" {
		fmt.Printf("Error:    %s\n", status.Error)
	}
	return nil
}

// HandleLogin authenticates and persists a session.
func HandleLogin(args Args) error {
	if args.Email == "" || args.Password == "" {
		return fmt.Errorf("usage: finops login <email> <password>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := a.auth.Authenticate(args.Email, args.Password)
	if !result.Success {
		return fmt.Errorf("%s", result.Error)
	}
	if !args.Quiet {
		fmt.Printf("Logged in as %s (%s)\n", result.User.Name, result.User.Role)
	}
	return nil
}

// HandleLogout removes the persisted session.
func HandleLogout(args Args) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.auth.Logout(); err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Println("Logged out")
	}
	return nil
}

// HandleWhoami shows the current session and its permissions.
func HandleWhoami(args Args) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	user := a.auth.CurrentUser()
	if user == nil {
		fmt.Println("Not logged in")
		return nil
	}

	if args.JSON {
		out, _ := json.Marshal(user)
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	fmt.Printf("Role:         %s\n", user.Role)
	fmt.Printf("Organization: %s\n", user.Organization)
	fmt.Println("Permissions:")
	for perm, allowed := range auth.PermissionsFor(user.Role) {
		if allowed {
			fmt.Printf("  %s\n", perm)
		}
	}
	return nil
}

// HandleQuery runs a SQL query and records it in the user's history.
func HandleQuery(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("usage: finops query <sql>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.auth.HasPermission(auth.PermRunQueries) {
		return fmt.Errorf("current user may not run queries")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	start := time.Now()
	data, err := a.service.ExecuteQuery(ctx, args.Query, args.Engine)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	a.userdata.AppendHistory(userdata.HistoryEntry{
		Query:      args.Query,
		Engine:     args.Engine,
		Status:     status,
		DurationMS: time.Since(start).Milliseconds(),
	}, "")
	if err != nil {
		return err
	}

	printPayload(data, args)
	return nil
}

// HandleGenerate turns a natural-language question into SQL.
func HandleGenerate(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("usage: finops generate <question>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.auth.HasPermission(auth.PermUseAI) {
		return fmt.Errorf("current user may not use AI features")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data, err := a.service.GenerateQuery(ctx, finops.GenerateQueryRequest{
		UserQuery:       args.Query,
		IncludeExamples: true,
		TargetTable:     args.Table,
	})
	if err != nil {
		return err
	}

	printPayload(data, args)
	return nil
}

// HandleRead serves the kpi, optimizations, and spend commands.
func HandleRead(cmd Command, args Args) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.auth.HasPermission(auth.PermViewDashboard) {
		return fmt.Errorf("not logged in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var data json.RawMessage
	switch cmd {
	case CmdKPI:
		data, err = a.service.GetKPIs(ctx)
	case CmdOptimizations:
		data, err = a.service.GetOptimizations(ctx)
	case CmdSpend:
		data, err = a.service.GetSpendAnalytics(ctx)
	default:
		return fmt.Errorf("unsupported read command")
	}
	if err != nil {
		return err
	}

	printPayload(data, args)
	return nil
}

// HandleExport fetches spend analytics and records the export in the
// user's cost-analytics history.
func HandleExport(args Args) error {
	format := args.Format
	if format == "" {
		format = "csv"
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.auth.HasPermission(auth.PermExportData) {
		return fmt.Errorf("current user may not export data")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data, err := a.service.GetSpendAnalytics(ctx)
	if err != nil {
		return err
	}

	// Best-effort shape probe for row count and total.
	var payload struct {
		Items []json.RawMessage `json:"items"`
		Total float64           `json:"total"`
	}
	_ = json.Unmarshal(data, &payload)

	if !a.userdata.RecordExport(format, len(payload.Items), payload.Total, "", "") {
		return fmt.Errorf("failed to record export")
	}
	if !args.Quiet {
		fmt.Printf("Exported %d rows as %s\n", len(payload.Items), format)
	}
	printPayload(data, args)
	return nil
}
