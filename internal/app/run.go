package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/pesterhq/pester/internal/command"
	"github.com/pesterhq/pester/internal/confirm"
	"github.com/pesterhq/pester/internal/discord"
	"github.com/pesterhq/pester/internal/state"
)

func run(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	stateFile := fs.String("state", "", "path to the state file (default ./state.json)")
	pidFile := fs.String("pid-file", "", "write process PID to file (for runtime control)")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	dotenvPath := fs.String("dotenv", "", "load environment variables from file (dev only)")
	opsAddr := fs.String("ops-addr", "", "serve /healthz and /metrics on this address")
	watch := fs.Bool("watch", false, "watch the state file for external edits")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*dotenvPath) != "" {
		if err := godotenv.Load(strings.TrimSpace(*dotenvPath)); err != nil {
			fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
			return 1
		}
	}

	cfg, err := loadRunConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	// Flags set explicitly win over the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "state":
			cfg.StateFile = *stateFile
		case "pid-file":
			cfg.PIDFile = *pidFile
		case "log-level":
			cfg.LogLevel = *logLevel
		case "ops-addr":
			cfg.OpsAddr = *opsAddr
		case "watch":
			cfg.Watch = *watch
		}
	})

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	slog.SetDefault(logger)

	releasePIDFile, err := claimPIDFile(strings.TrimSpace(cfg.PIDFile))
	if err != nil {
		logger.Error("pid_file_failed", slog.Any("err", err))
		return 1
	}
	defer releasePIDFile()

	token, err := cfg.resolveToken()
	if err != nil {
		logger.Error("token_missing", slog.Any("err", err))
		return 1
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	confirms := confirm.NewTracker()
	metrics := newRuntimeMetrics(confirms.PendingCount)

	store := state.NewStore(cfg.StateFile,
		state.WithStoreLogger(logger),
		state.WithObserveSave(func(err error) { metrics.observeSave(err == nil) }),
		state.WithObserveAttempt(func(error) { metrics.observeSaveAttemptFailure() }),
	)
	doc := store.Load()
	logger.Info("state_loaded",
		slog.String("path", cfg.StateFile),
		slog.Int("guilds", len(doc)),
	)

	accessor := state.NewAccessor(doc, store, logger)
	handler := command.NewHandler(accessor, store, confirms, logger,
		command.WithObserve(metrics.observeCommand),
	)

	if cfg.TracingEndpoint != "" {
		shutdown, err := initTracing(ctx, cfg.TracingEndpoint, cfg.TracingInsecure, func(err error) {
			logger.Warn("tracing_export_error", slog.Any("err", err))
		})
		if err != nil {
			logger.Error("tracing_init_failed", slog.Any("err", err))
			return 1
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing_shutdown_failed", slog.Any("err", err))
			}
		}()
		logger.Info("tracing_enabled", slog.String("endpoint", cfg.TracingEndpoint))
	}

	var reloadMu sync.Mutex
	reloadNow := func(trigger string) {
		reloadMu.Lock()
		defer reloadMu.Unlock()

		doc, err := store.TryLoad()
		if err != nil {
			logger.Error("state_reload_failed",
				slog.String("trigger", trigger),
				slog.Any("err", err),
			)
			metrics.observeReload(trigger, false)
			return
		}
		handler.ReloadDocument(doc)
		logger.Info("state_reloaded",
			slog.String("trigger", trigger),
			slog.Int("guilds", len(doc)),
		)
		metrics.observeReload(trigger, true)
	}

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hupCh:
				reloadNow("signal_sighup")
			}
		}
	}()

	if cfg.Watch {
		go watchStateFile(ctx, cfg.StateFile, logger, store.LastWriteAt, func() {
			reloadNow("watch")
		})
	}

	if cfg.OpsAddr != "" {
		ln, err := net.Listen("tcp", cfg.OpsAddr)
		if err != nil {
			logger.Error("ops_listen_failed", slog.Any("err", err))
			return 1
		}
		srv := &http.Server{
			Handler:           withAccessLog(logger, newOpsMux(metrics)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		serveOnListener(logger, "ops", srv, ln, cancel)
		logger.Info("ops_listening", slog.String("addr", ln.Addr().String()))
	}

	bot, err := discord.New(token, handler, logger)
	if err != nil {
		logger.Error("discord_init_failed", slog.Any("err", err))
		return 1
	}
	bot.ObserveAutoReply = metrics.observeAutoReply
	if err := bot.Open(); err != nil {
		logger.Error("discord_open_failed", slog.Any("err", err))
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.Warn("discord_close_failed", slog.Any("err", err))
		}
	}()
	logger.Info("pester_started", slog.String("state", cfg.StateFile))

	<-ctx.Done()
	logger.Info("shutting_down")
	return 0
}

// watchStateFile reloads on external edits of the state file. The store's
// own atomic writes also show up as filesystem events; edits close to the
// last own write are skipped so saves do not trigger reload churn.
func watchStateFile(ctx context.Context, path string, logger *slog.Logger, lastOwnWrite func() time.Time, reload func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if reload == nil {
		return
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("watch_disabled", slog.Any("err", err))
		return
	}
	defer w.Close()

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		logger.Warn("watch_disabled", slog.Any("err", err))
		return
	}

	logger.Info("watching_state", slog.String("path", path))

	// Debounce to coalesce bursty editor/atomic-write events.
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(200 * time.Millisecond)
		}
		timerCh = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if lastOwnWrite != nil && time.Since(lastOwnWrite()) < time.Second {
				continue
			}
			schedule()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch_error", slog.Any("err", err))
		case <-timerCh:
			timerCh = nil
			reload()
		}
	}
}

func claimPIDFile(pidFile string) (func(), error) {
	pidFile = strings.TrimSpace(pidFile)
	if pidFile == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o755); err != nil {
		return nil, err
	}

	if pid, err := readPIDFile(pidFile); err == nil && pid > 0 {
		if pidRunning(pid) {
			return nil, fmt.Errorf("pid file %q points to running process %d", pidFile, pid)
		}
	}

	pid := os.Getpid()
	if err := writePIDFile(pidFile, pid); err != nil {
		return nil, err
	}

	return func() {
		cur, err := readPIDFile(pidFile)
		if err != nil {
			return
		}
		if cur == pid {
			_ = os.Remove(pidFile)
		}
	}, nil
}

func writePIDFile(pidFile string, pid int) error {
	tmp, err := os.CreateTemp(filepath.Dir(pidFile), "."+filepath.Base(pidFile)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	keepTemp := false
	defer func() {
		_ = tmp.Close()
		if !keepTemp {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tmp, "%d\n", pid); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, pidFile); err != nil {
		return err
	}
	keepTemp = true
	return nil
}

func readPIDFile(pidFile string) (int, error) {
	b, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return 0, fmt.Errorf("pid file %q is empty", pidFile)
	}
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q contains invalid pid %q", pidFile, raw)
	}
	return pid, nil
}

func pidRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombiePID(pid) {
		return false
	}
	return processExists(pid)
}

func isZombiePID(pid int) bool {
	statPath := fmt.Sprintf("/proc/%d/stat", pid)
	data, err := os.ReadFile(statPath)
	if err != nil {
		return false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return false
	}
	return fields[2] == "Z"
}
