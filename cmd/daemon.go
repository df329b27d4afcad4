package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/daemon"
	"github.com/theirongolddev/bopt/internal/ledger"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
	flagDaemonJSON         bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the budget sweeper with HTTP/SSE and metrics endpoints",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and sweep status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

var daemonSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one sweep now: complete expired budgets and report limit alerts",
	RunE:  runDaemonSweep,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default daemon.addr)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Sweep interval (default daemon.sweep_interval)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.DataDir(), "boptd.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.DataDir(), "boptd.log"), "Log file for detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Events kept in memory (default daemon.events_buffer)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run the daemon in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonStatusCmd.Flags().BoolVar(&flagDaemonJSON, "json", false, "Print the raw /v1/status document")
	daemonSweepCmd.Flags().BoolVar(&flagDaemonJSON, "json", false, "Print the sweep status as JSON")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd, daemonSweepCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return startDetached(pidFile(flagDaemonPIDFile))
	default:
		return serveDaemon(pidFile(flagDaemonPIDFile))
	}
}

func startDetached(pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}
	if err := pf.ensureDir(); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-executes this binary
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Log:    %s\n", flagDaemonLogFile)
	fmt.Printf("  Status: bopt daemon status --pid-file %s\n", pf)
	return nil
}

// newDaemon opens the services with the ledger's event hook routed to the
// daemon, which only exists once the ledger does.
func newDaemon() (*app, *daemon.Service, error) {
	var svc *daemon.Service
	a, err := openApp(func(e ledger.Event) {
		if svc != nil {
			svc.OnLedgerEvent(e)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cfg := daemon.Config{
		OwnerID:      a.owner,
		StorePath:    a.storePath,
		Interval:     a.cfg.Daemon.SweepEvery(),
		Addr:         a.cfg.Daemon.Addr,
		EventsBuffer: a.cfg.Daemon.EventsBuffer,
	}
	if flagDaemonInterval > 0 {
		cfg.Interval = flagDaemonInterval
	}
	if flagDaemonAddr != "" {
		cfg.Addr = flagDaemonAddr
	}
	if flagDaemonEventsBuffer > 0 {
		cfg.EventsBuffer = flagDaemonEventsBuffer
	}
	svc = daemon.New(cfg, a.ledger, a.store, a.log)
	return a, svc, nil
}

func serveDaemon(pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}
	if err := pf.ensureDir(); err != nil {
		return err
	}
	a, svc, err := newDaemon()
	if err != nil {
		return err
	}
	defer a.Close()

	st := daemonState{
		PID:       os.Getpid(),
		Addr:      svc.Addr(),
		OwnerID:   a.owner,
		StorePath: a.storePath,
		StartedAt: time.Now(),
	}
	if err := pf.write(st); err != nil {
		return err
	}
	defer pf.remove()

	fmt.Printf("  bopt daemon listening on http://%s\n", st.Addr)
	fmt.Printf("  Sweeping %s every %s\n", st.StorePath, a.cfg.Daemon.SweepEvery())
	fmt.Printf("  Stop with: bopt daemon stop --pid-file %s\n", pf)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonSweep(_ *cobra.Command, _ []string) error {
	a, svc, err := newDaemon()
	if err != nil {
		return err
	}
	defer a.Close()

	svc.Sweep(context.Background())
	st := svc.Status()
	if flagDaemonJSON {
		return printJSON(st)
	}
	if st.LastError != "" {
		return fmt.Errorf("sweep failed: %s", st.LastError)
	}
	printSweepStatus(st)
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := pf.state(); err == nil && st.Addr != "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = config.DefaultConfig().Daemon.Addr
	}

	st, err := fetchDaemonStatus(addr)
	if err != nil {
		fmt.Printf("  Daemon PID: %d\n", pid)
		fmt.Printf("  API: unreachable at http://%s (%v)\n", addr, err)
		return nil
	}
	if flagDaemonJSON {
		return printJSON(st)
	}
	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address:    http://%s\n", addr)
	printSweepStatus(st)
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short local probe
	if err != nil {
		return st, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func printSweepStatus(st daemon.Status) {
	s := st.Summary
	if st.LastSweepAt.IsZero() {
		fmt.Println("  Last sweep: pending")
	} else {
		fmt.Printf("  Last sweep: %s (%d total)\n", st.LastSweepAt.Local().Format(time.RFC3339), st.SweepCount)
	}
	fmt.Printf("  Budgets:    %s (%d open, %d exceeded)\n", cli.FormatNumber(int64(s.Budgets)), s.Open, s.Exceeded)
	fmt.Printf("  Spent:      %s of %s\n", s.Spent, s.Total)
	fmt.Printf("  Alerts:     %d limits near or over\n", s.AlertingLimits)
	fmt.Printf("  Pending:    %d suggestions\n", s.PendingSuggestions)
	fmt.Printf("  Events:     %d (%d subscribers)\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := pidFile(flagDaemonPIDFile).stop(8 * time.Second)
	if err != nil {
		return err
	}
	fmt.Printf("  Stopped daemon (pid %d)\n", pid)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
