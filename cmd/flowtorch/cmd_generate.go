package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowtorch/bootstrap"
	"github.com/kbukum/flowtorch/graph"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/storage/local"
	"github.com/kbukum/flowtorch/transpiler"
)

// generateOptions are the flags of the generate command.
type generateOptions struct {
	file        string
	out         string
	format      bool
	noFormat    bool
	strictRoots bool
	quiet       bool
}

var generateFlags generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate -f graph.yaml",
	Short: "Transpile a workflow graph into Python artifacts",
	Long: "Transpile a workflow graph into one Python artifact per terminal node.\n\n" +
		"Without --out the artifacts are printed to stdout. Use -f - to read\n" +
		"the graph from stdin.",
	Example: "  " + appName + " generate -f model.yaml\n" +
		"  " + appName + " generate -f model.json --out ./build --format",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd, true)
		if err != nil {
			return err
		}
		return runGenerate(cmd.Context(), cfg, generateFlags, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateFlags.file, "file", "f", "", "workflow graph file (YAML or JSON), - for stdin")
	f.StringVarP(&generateFlags.out, "out", "o", "", "directory to write <terminal>.py files into")
	f.BoolVar(&generateFlags.format, "format", false, "run the configured formatter over the artifacts")
	f.BoolVar(&generateFlags.noFormat, "no-format", false, "never format, even when enabled in config")
	f.BoolVar(&generateFlags.strictRoots, "strict-roots", false, "fail artifacts whose path has more than one root")
	f.BoolVarP(&generateFlags.quiet, "quiet", "q", false, "do not print the run report")
	_ = generateCmd.MarkFlagRequired("file")
	generateCmd.MarkFlagsMutuallyExclusive("format", "no-format")
}

// readGraph loads the workflow named by file, or stdin for "-".
func readGraph(file string, stdin io.Reader) (*graph.Graph, error) {
	if file != "-" {
		return graph.Load(file)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("graph: reading stdin: %w", err)
	}
	g, err := graph.Decode(data, graph.FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("graph: parsing stdin: %w", err)
	}
	return g, nil
}

// runGenerate transpiles one graph and writes the artifacts to stdout or
// opts.out. It fails when any artifact could not be produced, after
// writing the ones that could.
func runGenerate(ctx context.Context, cfg *AppConfig, opts generateOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	g, err := readGraph(opts.file, stdin)
	if err != nil {
		return err
	}
	if opts.format {
		cfg.Formatter.Enabled = true
	}
	if opts.strictRoots {
		cfg.Transpiler.StrictRoots = true
	}

	log := commandLogger(cfg)
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(log), bootstrap.WithOutput(io.Discard))
	if err != nil {
		return err
	}

	metrics, shutdown, err := setupTelemetry(ctx, cfg)
	app.OnStop(shutdown)
	if err != nil {
		_ = app.Shutdown()
		return err
	}
	d, err := wire(ctx, cfg, metrics, needsStorage(cfg, false), log)
	if err != nil {
		_ = app.Shutdown()
		return err
	}
	app.AddHealthCheck(d.checkers...)

	return app.RunTask(ctx, func(ctx context.Context) error {
		req := transpiler.NewRequest(g)
		req.SkipFormat = opts.noFormat
		res, err := d.service.Transpile(ctx, req)
		if err != nil {
			return err
		}

		written := map[string]string{}
		if opts.out != "" {
			if written, err = exportDir(ctx, opts.out, res); err != nil {
				return err
			}
		} else {
			printCode(stdout, res)
		}
		if !opts.quiet {
			printReport(stderr, res, written)
		}

		log.Debug("generate finished", logger.Fields("artifacts", len(res.Artifacts), "failures", len(res.Failures)))
		if !res.OK() {
			return fmt.Errorf("%d of %d artifacts failed", len(res.Failures), len(res.Terminals))
		}
		return nil
	})
}

// exportDir writes the artifacts of res into dir and returns the file
// written for each terminal.
func exportDir(ctx context.Context, dir string, res *transpiler.Result) (map[string]string, error) {
	store, err := local.NewStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if _, err := transpiler.ExportArtifacts(ctx, store, "", res); err != nil {
		return nil, err
	}
	written := make(map[string]string, len(res.Artifacts))
	for term := range res.Artifacts {
		written[term] = transpiler.ArtifactKey("", term)
	}
	return written, nil
}
