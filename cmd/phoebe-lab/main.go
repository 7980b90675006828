package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aprsa/phoebe-lab/internal/app"
	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/config"
	"github.com/aprsa/phoebe-lab/internal/logging"
	"github.com/aprsa/phoebe-lab/internal/store"
	"github.com/aprsa/phoebe-lab/internal/stub"
	"github.com/aprsa/phoebe-lab/internal/types"
)

const usageText = `phoebe-lab is a terminal front end for a PHOEBE modeling worker.

Usage:
  phoebe-lab [command] [flags]

Commands:
  ui        run the terminal UI (default)
  sessions  list sessions held by the worker
  stub      run a stand-in worker for local development
  version   print the version
  help      show help

Flags:
  -h, --help   show help

Examples:
  phoebe-lab
  phoebe-lab sessions
  phoebe-lab stub --addr 127.0.0.1:8001
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func exitOnErr(name string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
	os.Exit(1)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("ui", runUI(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "sessions":
		exitOnErr("sessions", runSessions(args[1:]))
	case "stub":
		exitOnErr("stub", runStub(args[1:]))
	case "version":
		fmt.Fprintln(os.Stdout, buildVersion())
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	server := fs.String("server", "", "worker address override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server.Address = *server
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	statePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StorageBackend(), statePath)
	if err != nil {
		return err
	}
	defer st.Close()

	api := client.New(cfg.ServerBaseURL())
	return app.Run(api, st, cfg, logger)
}

func runSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	server := fs.String("server", "", "worker address override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server.Address = *server
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	api := client.New(cfg.ServerBaseURL())
	sessions, err := api.GetSessions(ctx)
	if err != nil {
		return err
	}
	printSessions(sessions)
	return nil
}

func runStub(args []string) error {
	fs := flag.NewFlagSet("stub", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "listen address (defaults to the configured worker address)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	listen := *addr
	if listen == "" {
		listen = cfg.ServerAddress()
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "stub worker listening on %s\n", listen)
	server := stub.NewServer(buildVersion(), logger)
	return server.Run(ctx, listen)
}

func printSessions(sessions map[string]types.SessionInfo) {
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, info := range sessions {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(a, b int) bool {
		return infos[a].LastActivity > infos[b].LastActivity
	})

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "SESSION\tPROJECT\tOWNER\tMORPHOLOGY\tLAST ACTIVITY")
	for _, info := range infos {
		activity := "-"
		if t := info.LastActivityTime(); !t.IsZero() {
			activity = t.Format(time.RFC3339)
		}
		morphology := info.Morphology
		if morphology == "" {
			morphology = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", info.SessionID, info.ProjectName, info.OwnerName(), morphology, activity)
	}
	writer.Flush()
}

func openLogger(cfg config.Config) (logging.Logger, func(), error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(filepath.Join(dir, "phoebe-lab.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(file, logging.ParseLevel(cfg.LogLevel()))
	return logger, func() { file.Close() }, nil
}

func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
