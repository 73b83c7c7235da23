package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/mrlokans/mangaslayer/internal/cachestore"
	"github.com/mrlokans/mangaslayer/internal/config"
	"github.com/mrlokans/mangaslayer/internal/database"
	"github.com/mrlokans/mangaslayer/internal/database/generations"
	"github.com/mrlokans/mangaslayer/internal/offline"
	"github.com/mrlokans/mangaslayer/internal/upstream"
)

const commandTimeout = 5 * time.Minute

// cacheOptions are the flags shared by the cache commands.
type cacheOptions struct {
	DatabasePath string
	OriginURL    string
	Concurrency  int
}

func (o *cacheOptions) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&o.DatabasePath, "db", cfg.Database.Path, "Path to the daemon database file")
	fs.StringVar(&o.OriginURL, "origin", cfg.Origin.BaseURL, "Base URL of the reader app origin")
	fs.IntVar(&o.Concurrency, "concurrency", cfg.Cache.InstallConcurrency, "Pinned resources fetched at once")
}

// openManager builds a cache lifecycle manager over the daemon database.
// The returned close function releases the database.
func (o *cacheOptions) openManager(ctx context.Context, cfg *config.Config) (*offline.Manager, func(), error) {
	db, err := database.NewQuietDatabase(o.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	network, err := upstream.NewClient(upstream.Options{
		BaseURL:        o.OriginURL,
		Timeout:        cfg.Origin.Timeout,
		RequestsPerSec: cfg.Origin.RequestsPerSec,
		Burst:          cfg.Origin.Burst,
		UserAgent:      cfg.Origin.UserAgent,
	})
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	manager := offline.NewManager(
		cachestore.New(db.DB),
		generations.NewRepository(db.DB),
		network,
		offline.WithConcurrency(o.Concurrency),
	)
	if err := manager.Restore(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to restore cache state: %w", err)
	}
	return manager, closeDB, nil
}

// CacheStatusCommand prints installed cache generations.
type CacheStatusCommand struct {
	cacheOptions
	NoColor bool
	Out     io.Writer

	cfg *config.Config
}

func NewCacheStatusCommand() *CacheStatusCommand {
	return &CacheStatusCommand{cfg: config.NewConfig(), Out: os.Stdout}
}

func (cmd *CacheStatusCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cache-status", flag.ContinueOnError)
	cmd.register(fs, cmd.cfg)
	fs.BoolVar(&cmd.NoColor, "no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cache-status [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Show installed offline cache generations and leftover stores.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *CacheStatusCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	manager, closeDB, err := cmd.openManager(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := manager.Status(ctx)
	if err != nil {
		return err
	}
	return writeCacheStatus(cmd.Out, status, !cmd.NoColor)
}

func writeCacheStatus(w io.Writer, status *offline.Status, useColors bool) error {
	green, red, grey := fmt.Sprint, fmt.Sprint, fmt.Sprint
	if useColors {
		green = color.New(color.FgGreen, color.Bold).SprintFunc()
		red = color.New(color.FgRed).SprintFunc()
		grey = color.New(color.FgHiBlack).SprintFunc()
	}

	if len(status.Generations) == 0 {
		_, err := fmt.Fprintln(w, red("No cache generation installed"))
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Generation", "State", "Pinned", "Entries", "Size", "Installed", "Activated"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var rows [][]string
	for _, gen := range status.Generations {
		state := grey("installed")
		if gen.Active {
			state = green("active")
		}
		activated := "-"
		if gen.ActivatedAt != nil {
			activated = gen.ActivatedAt.Format(time.DateTime)
		}
		rows = append(rows, []string{
			gen.ID,
			state,
			fmt.Sprintf("%d", gen.PinnedCount),
			fmt.Sprintf("%d", gen.Entries),
			formatBytes(gen.Bytes),
			gen.InstalledAt.Format(time.DateTime),
			activated,
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !status.Ready {
		if _, err := fmt.Fprintln(w, red("No generation is active; requests go to the network")); err != nil {
			return err
		}
	}
	if len(status.Stray) > 0 {
		if _, err := fmt.Fprintf(w, "%s %s\n", red("Stray stores:"), strings.Join(status.Stray, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

// CacheInstallCommand fetches the pinned manifest into a new generation.
type CacheInstallCommand struct {
	cacheOptions
	Generation string
	Pinned     string
	Activate   bool
	Out        io.Writer

	cfg *config.Config
}

func NewCacheInstallCommand() *CacheInstallCommand {
	return &CacheInstallCommand{cfg: config.NewConfig(), Out: os.Stdout}
}

func (cmd *CacheInstallCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cache-install", flag.ContinueOnError)
	cmd.register(fs, cmd.cfg)
	fs.StringVar(&cmd.Generation, "generation", cmd.cfg.Cache.Generation, "Generation id to install")
	fs.StringVar(&cmd.Pinned, "pinned", strings.Join(cmd.cfg.Cache.Pinned, ","), "Comma-separated resource paths to pin")
	fs.BoolVar(&cmd.Activate, "activate", true, "Activate the generation after a successful install")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cache-install [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch every pinned resource and store them as one cache generation.\n")
		fmt.Fprintf(os.Stderr, "Nothing is stored unless every resource is fetched.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s cache-install -generation manga-slayer-v2\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s cache-install -pinned /,/manifest.json -activate=false\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *CacheInstallCommand) Run() error {
	if cmd.Generation == "" {
		return fmt.Errorf("generation is required")
	}
	pinned := splitPinned(cmd.Pinned)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	manager, closeDB, err := cmd.openManager(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if !cmd.Activate {
		if err := manager.Install(ctx, cmd.Generation, pinned); err != nil {
			return err
		}
		fmt.Fprintf(cmd.Out, "Installed %s (%d resources)\n", cmd.Generation, len(pinned))
		return nil
	}

	report, err := manager.Deploy(ctx, cmd.Generation, pinned)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Installed and activated %s (%d resources)\n", cmd.Generation, len(pinned))
	printReport(cmd.Out, report)
	return nil
}

// CacheActivateCommand switches to an installed generation and removes the others.
type CacheActivateCommand struct {
	cacheOptions
	Generation string
	Out        io.Writer

	cfg *config.Config
}

func NewCacheActivateCommand() *CacheActivateCommand {
	return &CacheActivateCommand{cfg: config.NewConfig(), Out: os.Stdout}
}

func (cmd *CacheActivateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cache-activate", flag.ContinueOnError)
	cmd.register(fs, cmd.cfg)
	fs.StringVar(&cmd.Generation, "generation", cmd.cfg.Cache.Generation, "Installed generation id to activate")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cache-activate [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Activate an installed generation and delete every other cache store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *CacheActivateCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	manager, closeDB, err := cmd.openManager(ctx, cmd.cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := manager.Activate(ctx, cmd.Generation)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Activated %s\n", cmd.Generation)
	printReport(cmd.Out, report)
	return nil
}

func printReport(w io.Writer, report *offline.ActivationReport) {
	if report == nil {
		return
	}
	if len(report.Deleted) > 0 {
		fmt.Fprintf(w, "Deleted: %s\n", strings.Join(report.Deleted, ", "))
	}
	if len(report.Orphaned) > 0 {
		fmt.Fprintf(w, "Could not delete: %s\n", strings.Join(report.Orphaned, ", "))
	}
}

func splitPinned(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
