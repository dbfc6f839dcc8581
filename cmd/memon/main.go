package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/srodi/memon/pkg/collector/snapshot"
	"github.com/srodi/memon/pkg/config"
	"github.com/srodi/memon/pkg/logging"
	"github.com/srodi/memon/pkg/monitor"
	"github.com/srodi/memon/pkg/report"
	"github.com/srodi/memon/pkg/ui"
)

const (
	exitOK      = 0
	exitFailure = 1 // nothing matched or the process table could not be read
	exitUsage   = 2
)

var version = "dev"

// Seams for tests.
var (
	newSource  = snapshot.New
	isTerminal = term.IsTerminal
)

var (
	errUsage     = errors.New("usage")
	errBlankName = errors.New("PROCESS_NAME must not be blank")
)

type options struct {
	configPath string
	verbose    bool
	noColor    bool
	debug      bool
	watch      float64
	output     string
	nameWidth  int
	source     string
	version    bool
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.SortFlags = false
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "show command-line arguments and extra indicators")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	fs.Float64VarP(&o.watch, "watch", "w", 0, "refresh every `SECONDS` until interrupted")
	fs.StringVarP(&o.output, "output", "o", config.OutputText, "output format: text or yaml")
	fs.IntVar(&o.nameWidth, "name-width", 0, "display width for process names (default 40)")
	fs.StringVar(&o.source, "source", string(snapshot.KindAuto), "process table source: auto, gopsutil or procfs")
	fs.StringVar(&o.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/memon/config.yaml)")
	fs.BoolVar(&o.debug, "debug", false, "log diagnostics to stderr")
	fs.BoolVarP(&o.version, "version", "V", false, "print the version and exit")
}

// resolve layers flags that were set explicitly over env and file settings.
func (o *options) resolve(fs *pflag.FlagSet, cfg config.Config) (config.Config, error) {
	if fs.Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if fs.Changed("no-color") {
		cfg.NoColor = o.noColor
	}
	if fs.Changed("watch") {
		if o.watch <= 0 {
			return cfg, fmt.Errorf("%w: --watch %g", monitor.ErrInvalidInterval, o.watch)
		}
		cfg.Watch = o.watch
	}
	if fs.Changed("output") {
		cfg.Output = o.output
	}
	if fs.Changed("name-width") {
		cfg.NameWidth = o.nameWidth
	}
	if fs.Changed("source") {
		cfg.Source = o.source
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}
	cfg.Output = strings.ToLower(cfg.Output)
	return cfg, cfg.Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "memon [flags] PROCESS_NAME",
		Short: "Show matching processes and their children as memory trees",
		Long: "memon finds processes whose name matches PROCESS_NAME, draws each match\n" +
			"with its descendants as a tree and marks the three largest by resident memory.",
		Version:       version,
		Args:          nameArg,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), cmd.Flags(), opts, args[0], stdout, stderr)
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.SetVersionTemplate("memon {{.Version}}\n")
	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, monitor.ErrNoMatch):
		return exitFailure
	case errors.Is(err, snapshot.ErrUnavailable):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	default:
		fmt.Fprintf(stderr, "error: %v\nRun 'memon --help' for usage.\n", err)
		return exitUsage
	}
}

// nameArg requires exactly one process name with something other than spaces in it.
func nameArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if strings.TrimSpace(args[0]) == "" {
		return errBlankName
	}
	return nil
}

func execute(ctx context.Context, fs *pflag.FlagSet, opts *options, query string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		return err
	}
	// The configured level is not known until env and flags are applied, so
	// env parsing reports to a logger at the default level.
	colorLogs := writerIsTerminal(stderr)
	early, err := logging.New(stderr, logging.DefaultLevel, colorLogs)
	if err != nil {
		return err
	}
	config.ApplyEnvOverrides(&cfg, early)
	cfg, err = opts.resolve(fs, cfg)
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel, colorLogs)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	kind, err := snapshot.ParseKind(cfg.Source)
	if err != nil {
		return err
	}
	source, err := newSource(kind, logger.Named("snapshot"))
	if err != nil {
		return fmt.Errorf("%w: %w", snapshot.ErrUnavailable, err)
	}
	mon := monitor.New(source, nil, logger.Named("monitor"))

	interactive := writerIsTerminal(stdout)
	renderer := newRenderer(cfg, interactive)

	if cfg.Watch <= 0 {
		res, err := mon.Analyze(ctx, query)
		return render(stdout, renderer, query, res, err)
	}
	return watch(ctx, mon, renderer, cfg, query, stdout, interactive, logger)
}

func newRenderer(cfg config.Config, interactive bool) report.Renderer {
	if cfg.Output == config.OutputYAML {
		return report.YAMLRenderer{}
	}
	return report.NewTextRenderer(report.Options{
		Verbose:   cfg.Verbose,
		Color:     !cfg.NoColor && interactive,
		NameWidth: cfg.NameWidth,
	})
}

// render writes one cycle's outcome. A missing match is rendered and still
// returned so the caller can pick the exit code.
func render(w io.Writer, r report.Renderer, query string, res *monitor.Result, err error) error {
	if errors.Is(err, monitor.ErrNoMatch) {
		if rerr := r.RenderNoMatch(w, query); rerr != nil {
			return rerr
		}
		return err
	}
	if err != nil {
		return err
	}
	return r.Render(w, report.Report{
		Term:        res.Term,
		Matched:     res.Matched,
		Forest:      res.Forest,
		SystemBytes: res.SystemBytes,
	})
}

func watch(ctx context.Context, mon *monitor.Monitor, r report.Renderer, cfg config.Config, query string, stdout io.Writer, interactive bool, logger *zap.SugaredLogger) error {
	interval := cfg.WatchInterval()
	yamlStream := cfg.Output == config.OutputYAML
	color := !cfg.NoColor && interactive

	if interactive && !yamlStream {
		cleanupTerminal := enableSingleView(stdout, logger)
		defer cleanupTerminal()
	}

	return monitor.Watch(ctx, interval, func(ctx context.Context) error {
		var buf bytes.Buffer
		if yamlStream {
			buf.WriteString("---\n")
		} else {
			if color {
				buf.WriteString(ui.Banner())
			} else {
				buf.WriteString(ui.PlainBanner())
			}
			fmt.Fprintf(&buf, "memon (press Ctrl+C to exit)\n")
			fmt.Fprintf(&buf, "Updated: %s | Interval: %v\n\n", time.Now().Format(time.RFC3339), interval)
		}

		res, err := mon.Analyze(ctx, query)
		if err := render(&buf, r, query, res, err); err != nil && !errors.Is(err, monitor.ErrNoMatch) {
			logger.Warnf("snapshot failed: %v", err)
			fmt.Fprintf(&buf, "[!] snapshot failed: %v\n", err)
		}

		if interactive && !yamlStream {
			clearScreen(stdout)
		}
		_, werr := stdout.Write(buf.Bytes())
		return werr
	})
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(int(f.Fd()))
}
