package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/arxivtex/arxivtex/pkg/arxiv"
	"github.com/arxivtex/arxivtex/pkg/assistant"
	"github.com/arxivtex/arxivtex/pkg/config"
	"github.com/arxivtex/arxivtex/pkg/domain"
	"github.com/arxivtex/arxivtex/pkg/repository"
	"github.com/arxivtex/arxivtex/pkg/service"
	"github.com/arxivtex/arxivtex/pkg/source"
	"github.com/arxivtex/arxivtex/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"ARXIVTEX_CONFIG" description:"path to yaml config file"`
	Cache  string `long:"cache" env:"ARXIVTEX_CACHE" description:"cache directory, overrides config"`

	Ask   AskCmd   `command:"ask" description:"ask a question about a paper, or start an interactive session"`
	Load  LoadCmd  `command:"load" description:"download and cache a paper, print its main file"`
	List  ListCmd  `command:"list" description:"list cached papers"`
	Stats struct{} `command:"stats" description:"show cache statistics"`
	Clear struct{} `command:"clear" description:"remove all cached papers"`
	Serve ServeCmd `command:"serve" description:"run read-only browse API over the cache"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

// AskCmd hands a paper to the assistant
type AskCmd struct {
	Interactive bool `short:"i" long:"interactive" description:"start interactive session for multiple questions"`
	Args        struct {
		ID       string   `positional-arg-name:"paper-id" required:"yes" description:"arXiv paper ID (e.g. 2404.11397)"`
		Question []string `positional-arg-name:"question" description:"question to ask about the paper"`
	} `positional-args:"yes"`
}

// LoadCmd loads a paper without asking anything
type LoadCmd struct {
	Args struct {
		ID string `positional-arg-name:"paper-id" required:"yes" description:"arXiv paper ID"`
	} `positional-args:"yes"`
}

// ListCmd lists cached papers
type ListCmd struct {
	Limit int `short:"n" long:"limit" default:"0" description:"max papers to show, 0 for all"`
}

// ServeCmd runs the browse API
type ServeCmd struct {
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
}

var revision = "unknown"

// log destinations, replaced in tests
var logOut, logErr io.Writer = os.Stdout, os.Stderr

// newAssistant makes the assistant backend selected in config
var newAssistant = func(cfg config.AssistantConfig, out io.Writer) assistant.Assistant {
	if cfg.Backend == config.BackendOpenAI {
		return assistant.NewOpenAI(cfg, out)
	}
	return assistant.NewCLI(cfg.Command, out, os.Stderr)
}

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	parser.LongDescription = "Analyze arXiv papers from their LaTeX source.\n\n" +
		"Examples:\n  arxivtex ask 2404.11397 \"What is the main contribution?\"\n  arxivtex ask 1706.03762 -i"
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	setupLog(opts.Debug)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts, parser.Active.Name, os.Stdout)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run executes a single command
func run(ctx context.Context, opts Opts, command string, out io.Writer) error {
	if command == "ask" {
		if err := opts.Ask.validate(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Cache != "" {
		cfg.Cache.Dir = opts.Cache
	}
	if cfg.Assistant.APIKey != "" {
		setupLog(opts.Debug, cfg.Assistant.APIKey)
	}
	log.Printf("[DEBUG] arxivtex %s, cache %s", revision, cfg.Cache.Dir)

	repos, err := repository.NewRepositories(ctx, repository.Config{
		Root:            cfg.Cache.Dir,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] failed to close cache: %v", err)
		}
	}()

	switch command {
	case "ask":
		return askCmd(ctx, cfg, repos, opts.Ask, out)
	case "load":
		return loadCmd(ctx, cfg, repos, opts.Load.Args.ID, out)
	case "list":
		return listCmd(ctx, repos, opts.List.Limit, out)
	case "stats":
		return statsCmd(ctx, repos, out)
	case "clear":
		if err := repos.Paper.DeleteAll(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cache cleared: %s\n", cfg.Cache.Dir)
		return nil
	case "serve":
		if opts.Serve.Listen != "" {
			cfg.Server.Listen = opts.Serve.Listen
		}
		return server.New(cfg, repos.Paper, revision, opts.Debug).Run(ctx)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c AskCmd) validate() error {
	if !c.Interactive && len(c.Args.Question) == 0 {
		return errors.New("either provide a question or use --interactive mode")
	}
	if c.Interactive && len(c.Args.Question) > 0 {
		return errors.New("cannot use both question and --interactive mode")
	}
	return nil
}

func makeLoader(cfg *config.Config, repos *repository.Repositories) *service.Loader {
	fetcher := arxiv.NewMetadataFetcher(cfg.Arxiv.APIURL, cfg.Arxiv.UserAgent, cfg.Arxiv.Timeout)
	retriever := source.NewRetriever(cfg.Cache.Dir, cfg.Arxiv.SourceURL, cfg.Arxiv.UserAgent, cfg.Arxiv.Timeout)
	return service.NewLoader(fetcher, retriever, repos.Paper)
}

func loadPaper(ctx context.Context, cfg *config.Config, repos *repository.Repositories, id string, out io.Writer) (*service.Paper, error) {
	fmt.Fprintf(out, "Loading arXiv paper %s...\n", domain.NormalizeID(id))
	paper, err := makeLoader(cfg, repos).Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if paper.FromCache {
		fmt.Fprintf(out, "%s Found cached: %s\n", color.GreenString("✓"), paper.Metadata.Title)
	} else {
		fmt.Fprintf(out, "%s Downloaded: %s\n", color.GreenString("✓"), paper.Metadata.Title)
	}
	return paper, nil
}

func loadCmd(ctx context.Context, cfg *config.Config, repos *repository.Repositories, id string, out io.Writer) error {
	paper, err := loadPaper(ctx, cfg, repos, id, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Authors: %s\nTeX file: %s\n", assistant.ShortAuthors(paper.Metadata.Authors, 3), paper.MainFile)
	return nil
}

func askCmd(ctx context.Context, cfg *config.Config, repos *repository.Repositories, cmd AskCmd, out io.Writer) error {
	paper, err := loadPaper(ctx, cfg, repos, cmd.Args.ID, out)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(paper.MainFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", paper.MainFile, err)
	}
	req := assistant.Request{Paper: strings.ToValidUTF8(string(data), "")}
	id := domain.NormalizeID(cmd.Args.ID)

	sep := strings.Repeat("=", 60)
	if cmd.Interactive {
		fmt.Fprintf(out, "\nStarting interactive session...\n%s\n", sep)
		fmt.Fprintf(out, "Paper: %s\nAuthors: %s\n%s\n", paper.Metadata.Title,
			assistant.ShortAuthors(paper.Metadata.Authors, 3), strings.Repeat("-", 60))
		fmt.Fprintf(out, "You can now ask questions about this paper.\n%s\n", sep)
		req.Prompt = assistant.InteractivePrompt(id, paper.Metadata)
		req.Interactive = true
	} else {
		fmt.Fprintf(out, "TeX file: %s\n\nAnalyzing...\n%s\n", paper.MainFile, sep)
		req.Prompt = assistant.QuestionPrompt(id, strings.Join(cmd.Args.Question, " "))
	}

	if err := newAssistant(cfg.GetAssistantConfig(), out).Ask(ctx, req); err != nil {
		return fmt.Errorf("assistant failed: %w", err)
	}
	return nil
}

func listCmd(ctx context.Context, repos *repository.Repositories, limit int, out io.Writer) error {
	records, err := repos.Paper.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No cached papers")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tCACHED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.Title, assistant.ShortAuthors(rec.Authors, 3),
			humanize.Time(rec.CachedAt))
	}
	return tw.Flush()
}

func statsCmd(ctx context.Context, repos *repository.Repositories, out io.Writer) error {
	stats, err := repos.Paper.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Cache directory: %s\n", stats.Root)
	fmt.Fprintf(out, "Cached papers:   %d\n", stats.Records)
	fmt.Fprintf(out, "Text size:       %s\n", humanize.Bytes(uint64(stats.TextSize))) //nolint:gosec // sizes are non-negative
	fmt.Fprintf(out, "Disk usage:      %s\n", humanize.Bytes(uint64(stats.DiskSize))) //nolint:gosec // sizes are non-negative
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(logErr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Out(logOut), lgr.Err(logErr), lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFunc, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
