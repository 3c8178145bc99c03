package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/glamour"
	"github.com/hylla/projboard/internal/adapters/metrics"
	serveradapter "github.com/hylla/projboard/internal/adapters/server"
	"github.com/hylla/projboard/internal/adapters/storage/sqlite"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/component"
	"github.com/hylla/projboard/internal/config"
	"github.com/hylla/projboard/internal/platform"
	"github.com/hylla/projboard/internal/tui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP, MCP, and web serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// replayFormats lists the supported replay output formats.
var replayFormats = []string{"json", "yaml", "markdown", "pretty"}

// main runs the root command through fang.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the CLI with explicit args and writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flag values.
type rootOptions struct {
	configPath string
	appName    string
	devMode    bool
}

// runtimeEnv is the resolved state shared by every command.
type runtimeEnv struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

// newRootCommand builds the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("PROJBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("PROJBOARD_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:     "projboard",
		Short:   "Track active and finished projects on a drag-and-drop board",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts, stderr),
		newReplayCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
	)
	return root
}

// newServeCommand builds `projboard serve`.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board page, JSON API, MCP tools, and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := prepareRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.close(stderr)
			if cmd.Flags().Changed("http") {
				env.cfg.Server.HTTPBind = httpBind
			}
			if cmd.Flags().Changed("api-endpoint") {
				env.cfg.Server.APIEndpoint = apiEndpoint
			}
			if cmd.Flags().Changed("mcp-endpoint") {
				env.cfg.Server.MCPEndpoint = mcpEndpoint
			}
			return runServe(cmd.Context(), env)
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "JSON API mount path (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP mount path (default from config)")
	return cmd
}

// newReplayCommand builds `projboard replay`.
func newReplayCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		inPath string
		format string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Play a YAML script of add and move gestures on a fresh board and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if !slices.Contains(replayFormats, format) {
				return fmt.Errorf("unsupported --format %q (want one of %s)", format, strings.Join(replayFormats, ", "))
			}
			env, err := prepareRuntime(opts, stderr, false)
			if err != nil {
				return err
			}
			defer env.close(stderr)
			return runReplay(cmd.Context(), env, inPath, format, stdout)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "script path (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: "+strings.Join(replayFormats, "|"))
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// newPathsCommand builds `projboard paths`.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", resolveConfigPath(opts, paths))
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "activity: %s\n", paths.ActivityPath)
			return nil
		},
	}
}

// resolvePaths resolves platform paths for the selected app.
func resolvePaths(opts *rootOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
}

// resolveConfigPath applies the --config flag, then PROJBOARD_CONFIG, then the platform default.
func resolveConfigPath(opts *rootOptions, paths platform.Paths) string {
	if path := strings.TrimSpace(opts.configPath); path != "" {
		return path
	}
	if envPath := strings.TrimSpace(os.Getenv("PROJBOARD_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// prepareRuntime resolves paths, loads config, and builds the logger;
// quietConsole mutes the console sink before the first log line.
func prepareRuntime(opts *rootOptions, stderr io.Writer, quietConsole bool) (*runtimeEnv, error) {
	paths, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	configPath := resolveConfigPath(opts, paths)
	cfg, err := config.Load(configPath, config.Default(paths.ActivityPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "activity_path", cfg.Activity.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtimeEnv{
		appName:    opts.appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// close releases the logger.
func (e *runtimeEnv) close(stderr io.Writer) {
	if closeErr := e.logger.Close(); closeErr != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// openActivity opens the configured ledger, or returns nil when it is disabled.
func openActivity(env *runtimeEnv) (*sqlite.Repository, error) {
	if !env.cfg.Activity.Enabled {
		env.logger.Info("activity ledger disabled")
		return nil, nil
	}
	path := strings.TrimSpace(env.cfg.Activity.Path)
	if path == "" {
		env.logger.Info("opening in-memory activity ledger")
		repo, err := sqlite.OpenInMemory()
		if err != nil {
			return nil, fmt.Errorf("open in-memory activity ledger: %w", err)
		}
		return repo, nil
	}
	env.logger.Info("opening sqlite activity ledger", "path", path)
	repo, err := sqlite.Open(path)
	if err != nil {
		env.logger.Error("sqlite open failed", "path", path, "err", err)
		return nil, fmt.Errorf("open activity ledger: %w", err)
	}
	env.logger.Info("activity ledger ready", "path", path, "session_id", repo.SessionID())
	return repo, nil
}

// closeActivity closes repo when it is open.
func closeActivity(env *runtimeEnv, repo *sqlite.Repository) {
	if repo == nil {
		return
	}
	if err := repo.Close(); err != nil {
		env.logger.Warn("sqlite close failed", "err", err)
	}
}

// newStore builds the store with the optional ledger and observer.
func newStore(env *runtimeEnv, repo *sqlite.Repository, observer app.StoreObserver) *app.Store {
	opts := []app.StoreOption{app.WithLogger(env.logger)}
	if repo != nil {
		opts = append(opts, app.WithActivityRecorder(repo))
	}
	if observer != nil {
		opts = append(opts, app.WithObserver(observer))
	}
	return app.NewStore(opts...)
}

// runTUI runs the interactive board.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	// Runtime logs stay in the dev-file sink while the board owns the terminal.
	env, err := prepareRuntime(opts, stderr, true)
	if err != nil {
		return err
	}
	defer env.close(stderr)

	repo, err := openActivity(env)
	if err != nil {
		return err
	}
	defer closeActivity(env, repo)

	store := newStore(env, repo, nil)
	m := tui.NewModel(store,
		tui.WithFormRules(env.cfg.FormRules()),
		tui.WithLogger(env.logger),
		tui.WithUIConfig(tui.UIConfig{
			RenderMarkdown:   env.cfg.UI.RenderMarkdown,
			ShowDescriptions: env.cfg.UI.ShowDescriptions,
		}),
		tui.WithKeyConfig(tui.KeyConfig{
			Grab: env.cfg.Keys.Grab,
			Yank: env.cfg.Keys.Yank,
			Help: env.cfg.Keys.Help,
			Quit: env.cfg.Keys.Quit,
		}),
	)
	defer m.Close()

	env.logger.Info("command flow start", "command", "tui")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui", "projects", len(store.Projects()))
	return nil
}

// runServe runs the HTTP surfaces until ctx ends.
func runServe(ctx context.Context, env *runtimeEnv) error {
	repo, err := openActivity(env)
	if err != nil {
		return err
	}
	defer closeActivity(env, repo)

	m := metrics.New()
	store := newStore(env, repo, m)
	deps := serveradapter.Dependencies{
		Store:     store,
		Metrics:   m,
		Logger:    env.logger,
		FormRules: env.cfg.FormRules(),
	}
	if repo != nil {
		deps.Activity = repo
	}
	cfg := serveradapter.Config{
		HTTPBind:      env.cfg.Server.HTTPBind,
		APIEndpoint:   env.cfg.Server.APIEndpoint,
		MCPEndpoint:   env.cfg.Server.MCPEndpoint,
		ServerName:    env.appName,
		ServerVersion: version,
	}
	env.logger.Info("command flow start", "command", "serve", "http", cfg.HTTPBind)
	if err := serveCommandRunner(ctx, cfg, deps); err != nil {
		env.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	env.logger.Info("command flow complete", "command", "serve")
	return nil
}

// runReplay plays a script on a fresh board and writes the final snapshot.
func runReplay(ctx context.Context, env *runtimeEnv, inPath, format string, stdout io.Writer) error {
	script, err := readScript(inPath)
	if err != nil {
		return err
	}

	store := newStore(env, nil, nil)
	doc, err := component.NewDocument()
	if err != nil {
		return fmt.Errorf("load board document: %w", err)
	}
	board, err := component.NewBoard(doc, store,
		component.WithFormRules(env.cfg.FormRules()),
		component.WithLogger(env.logger),
	)
	if err != nil {
		return fmt.Errorf("mount board: %w", err)
	}
	defer board.Close()

	result, err := component.Replay(app.WithActor(ctx, app.ActorReplay), board, script, env.logger)
	if err != nil {
		return fmt.Errorf("replay %s: %w", inPath, err)
	}
	env.logger.Info("replay complete", "added", result.Added, "moved", result.Moved, "rejected", result.Rejected, "ignored", result.Ignored)

	snapshot := app.ExportSnapshot(store.Projects(), time.Now())
	return writeSnapshot(stdout, snapshot, format)
}

// readScript loads a replay script from a file or stdin.
func readScript(inPath string) (component.Script, error) {
	inPath = strings.TrimSpace(inPath)
	if inPath == "" {
		return component.Script{}, errors.New("--in is required")
	}
	var r io.Reader = os.Stdin
	if inPath != "-" {
		file, err := os.Open(inPath)
		if err != nil {
			return component.Script{}, fmt.Errorf("open replay script: %w", err)
		}
		defer file.Close()
		r = file
	}
	script, err := component.ParseScript(r)
	if err != nil {
		return component.Script{}, fmt.Errorf("read replay script %s: %w", inPath, err)
	}
	return script, nil
}

// writeSnapshot renders snapshot in format.
func writeSnapshot(w io.Writer, snapshot app.Snapshot, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("flush snapshot yaml: %w", err)
		}
	case "pretty":
		renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(80))
		if err != nil {
			return fmt.Errorf("build markdown renderer: %w", err)
		}
		rendered, err := renderer.Render(snapshot.Markdown())
		if err != nil {
			return fmt.Errorf("render snapshot: %w", err)
		}
		_, _ = io.WriteString(w, rendered)
	default:
		_, _ = io.WriteString(w, snapshot.Markdown())
	}
	return nil
}

// parseBoolEnv parses a boolean environment variable, reporting whether it was set and valid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
