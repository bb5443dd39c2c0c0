// Command mapgen generates, saves, inspects and serves campaign maps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/campaign-map/internal/api"
	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/config"
	"github.com/talgya/campaign-map/internal/level"
	"github.com/talgya/campaign-map/internal/persistence"
	"github.com/talgya/campaign-map/internal/telemetry"
	"github.com/talgya/campaign-map/internal/world"
)

const usage = `usage: mapgen <command> [flags]

commands:
  generate   build a map and print a summary
  save       build a map, optionally play it, and store the campaign
  load       restore a stored campaign and print a summary
  list       list stored campaigns
  sweep      generate many seeds in parallel and check every graph
  serve      serve a campaign over HTTP

run "mapgen <command> -h" for command flags`

// app carries what every command needs once flags and config are resolved.
type app struct {
	cfg *config.Config
	cat *catalog.Catalog
}

func main() {
	if err := godotenv.Load(); err != nil {
		// Not fatal, env vars might be set directly.
		slog.Debug(".env not loaded", "error", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "generate":
		err = runGenerate(ctx, args)
	case "save":
		err = runSave(ctx, args)
	case "load":
		err = runLoad(ctx, args)
	case "list":
		err = runList(ctx, args)
	case "sweep":
		err = runSweep(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("mapgen failed", "error", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags shared by every command.
type commonFlags struct {
	config string
	seed   string
	size   float64
	db     string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", "", "YAML config file")
	fs.StringVar(&c.seed, "seed", "", "map seed (overrides config)")
	fs.Float64Var(&c.size, "size", 0, "map size in world units (overrides config)")
	fs.StringVar(&c.db, "db", "", "SQLite database path (overrides config)")
	return fs, c
}

// setup loads config and catalog, installs the logger and, when an OTLP
// endpoint is configured, tracing. The returned func flushes telemetry.
func (c *commonFlags) setup(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(c.config)
	if err != nil {
		return nil, nil, err
	}
	if c.seed != "" {
		cfg.Seed = c.seed
	}
	if c.size > 0 {
		cfg.Generation.Size = c.size
	}
	if c.db != "" {
		cfg.DBPath = c.db
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	cleanup := func() {}
	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			slog.Warn("telemetry setup failed, continuing without tracing", "error", err)
		} else {
			cleanup = func() {
				if err := shutdown(context.Background()); err != nil {
					slog.Warn("telemetry shutdown failed", "error", err)
				}
			}
		}
	}

	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &app{cfg: cfg, cat: cat}, cleanup, nil
}

func (a *app) generate(ctx context.Context, seed string) (*world.Map, error) {
	return world.Generate(ctx, seed, a.cfg.Generation, a.cat, level.NewFactory(seed))
}

func (a *app) load(ctx context.Context, st world.SaveState) (*world.Map, error) {
	return world.Load(ctx, st, a.cfg.Generation, a.cat, level.NewFactory(st.Seed))
}

func (a *app) openDB() (*persistence.DB, error) {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", a.cfg.DBPath)
	return db, nil
}

// campaignID returns id, or the most recently saved campaign when id is empty.
func campaignID(db *persistence.DB, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	last, err := db.GetMeta(persistence.LastCampaignKey)
	if err != nil || last == "" {
		return "", errors.New("no campaign id given and no previous save recorded")
	}
	return last, nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs, common := newFlagSet("generate")
	verbose := fs.Bool("v", false, "list every location and connection")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := a.generate(ctx, a.cfg.Seed)
	if err != nil {
		return err
	}
	printSummary(m)
	if *verbose {
		printGraph(m)
	}
	return nil
}

func runSave(ctx context.Context, args []string) error {
	fs, common := newFlagSet("save")
	id := fs.String("id", "", "campaign id to overwrite (default: new id)")
	moves := fs.Int("moves", 0, "random moves to play before saving")
	rounds := fs.Int("rounds", 0, "world progression rounds to play before saving")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := a.generate(ctx, a.cfg.Seed)
	if err != nil {
		return err
	}
	m.OnLocationTypeChanged = func(l *world.Location, prev *catalog.LocationType) {
		fmt.Printf("  %s: %s -> %s\n", l.Name, prev.Identifier, l.TypeName())
	}

	for i := 0; i < *moves; i++ {
		if _, err := m.SelectRandomLocation(true); err != nil {
			return err
		}
		if err := m.MoveToNextLocation(); err != nil {
			return err
		}
		m.ProgressWorld()
	}
	for i := 0; i < *rounds; i++ {
		m.ProgressWorld()
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := db.SaveCampaign(*id, m.Save())
	if err != nil {
		return err
	}
	if err := db.SaveMeta(persistence.LastCampaignKey, saved); err != nil {
		slog.Warn("could not record last campaign", "error", err)
	}

	printSummary(m)
	fmt.Printf("saved campaign %s\n", saved)
	return nil
}

func runLoad(ctx context.Context, args []string) error {
	fs, common := newFlagSet("load")
	id := fs.String("id", "", "campaign id (default: last saved)")
	verbose := fs.Bool("v", false, "list every location and connection")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cid, err := campaignID(db, *id)
	if err != nil {
		return err
	}
	st, err := db.LoadCampaign(cid)
	if err != nil {
		return err
	}
	m, err := a.load(ctx, st)
	if err != nil {
		return err
	}

	fmt.Printf("campaign %s (save format %s)\n", cid, st.Version)
	printSummary(m)
	if *verbose {
		printGraph(m)
	}
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs, common := newFlagSet("list")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	campaigns, err := db.ListCampaigns()
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Println("no saved campaigns")
		return nil
	}
	for _, c := range campaigns {
		fmt.Printf("%s  seed=%-16q size=%-6s at=%-4d saved %s\n",
			c.ID, c.Seed, humanize.Commaf(c.Size), c.CurrentLocation, humanize.Time(c.SavedAt()))
	}
	return nil
}

type sweepResult struct {
	seed        string
	locations   int
	connections int
	dropped     int
	err         error
}

func runSweep(ctx context.Context, args []string) error {
	fs, common := newFlagSet("sweep")
	count := fs.Int("n", 100, "number of seeds")
	workers := fs.Int("workers", 8, "parallel generations")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var mu sync.Mutex
	results := make([]sweepResult, 0, *count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i := 0; i < *count; i++ {
		seed := fmt.Sprintf("%s-%d", a.cfg.Seed, i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := sweepResult{seed: seed}
			m, err := world.Generate(gctx, seed, a.cfg.Generation, a.cat, nil)
			if err == nil {
				res.locations = len(m.Locations())
				res.connections = len(m.Connections())
				res.dropped = m.DroppedLocations
				err = world.CheckConnectivity(m.Locations())
			}
			res.err = err

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].seed < results[j].seed })

	var failed []string
	totalLocations, totalConnections, totalDropped, lossy := 0, 0, 0, 0
	minLocations, maxLocations := -1, 0
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.seed, r.err))
			continue
		}
		totalLocations += r.locations
		totalConnections += r.connections
		totalDropped += r.dropped
		if r.dropped > 0 {
			lossy++
		}
		if minLocations < 0 || r.locations < minLocations {
			minLocations = r.locations
		}
		if r.locations > maxLocations {
			maxLocations = r.locations
		}
	}

	ok := len(results) - len(failed)
	fmt.Printf("%s seeds, %s ok, %s failed\n",
		humanize.Comma(int64(len(results))), humanize.Comma(int64(ok)), humanize.Comma(int64(len(failed))))
	if ok > 0 {
		fmt.Printf("locations: %s total, %d-%d per map, %.1f avg\n",
			humanize.Comma(int64(totalLocations)), minLocations, maxLocations, float64(totalLocations)/float64(ok))
		fmt.Printf("connections: %s total, %.1f avg\n",
			humanize.Comma(int64(totalConnections)), float64(totalConnections)/float64(ok))
		fmt.Printf("dropped: %s disconnected locations across %d maps\n",
			humanize.Comma(int64(totalDropped)), lossy)
	}
	for _, f := range failed {
		fmt.Println("  FAIL", f)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d seeds failed", len(failed), len(results))
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, common := newFlagSet("serve")
	id := fs.String("id", "", "campaign id to resume (default: fresh map from seed)")
	port := fs.Int("port", 0, "HTTP port (overrides config)")
	fs.Parse(args)

	a, cleanup, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var m *world.Map
	if *id != "" {
		st, err := db.LoadCampaign(*id)
		if err != nil {
			return err
		}
		if m, err = a.load(ctx, st); err != nil {
			return err
		}
	} else if m, err = a.generate(ctx, a.cfg.Seed); err != nil {
		return err
	}

	m.OnLocationChanged = func(prev, next *world.Location) {
		slog.Info("location changed", "from", prev.Name, "to", next.Name)
	}
	m.OnLocationTypeChanged = func(l *world.Location, prev *catalog.LocationType) {
		slog.Info("location type changed", "location", l.Name, "from", prev.Identifier, "to", l.TypeName())
	}

	srv := &api.Server{
		Map:        m,
		DB:         db,
		Port:       a.cfg.APIPort,
		AdminKey:   a.cfg.AdminKey,
		CampaignID: *id,
	}
	if *port > 0 {
		srv.Port = *port
	}
	srv.Start()

	printSummary(m)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", srv.Port)
	fmt.Println("Serving... (Ctrl+C to stop)")

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func printSummary(m *world.Map) {
	zones := make(map[int]int)
	types := make(map[string]int)
	for _, l := range m.Locations() {
		zones[l.Zone]++
		types[l.TypeName()]++
	}
	biomes := make(map[string]int)
	for _, c := range m.Connections() {
		biomes[c.BiomeName()]++
	}

	cur := m.CurrentLocation()
	fmt.Printf("seed %q, size %s: %s locations, %s connections\n",
		m.Seed, humanize.Commaf(m.Config.Size),
		humanize.Comma(int64(len(m.Locations()))), humanize.Comma(int64(len(m.Connections()))))
	fmt.Printf("current: #%d %s\n", m.LocationIndex(cur), cur)
	fmt.Printf("zones:   %s\n", formatCounts(zones))
	fmt.Printf("types:   %s\n", formatCounts(types))
	fmt.Printf("biomes:  %s\n", formatCounts(biomes))
}

func printGraph(m *world.Map) {
	for i, l := range m.Locations() {
		mark := " "
		if l.Discovered {
			mark = "*"
		}
		fmt.Printf("%s L%-4d %-24s (%7.1f, %7.1f) zone %d %s\n",
			mark, i, l.Name, l.Position.X, l.Position.Y, l.Zone, l.TypeName())
	}
	for i, c := range m.Connections() {
		mark := " "
		if c.Passed {
			mark = "*"
		}
		levelSeed := ""
		if c.Level != nil {
			levelSeed = c.Level.Seed()
		}
		fmt.Printf("%s C%-4d L%-4d - L%-4d difficulty %5.1f %-20s %s\n",
			mark, i, m.LocationIndex(c.Locations[0]), m.LocationIndex(c.Locations[1]),
			c.Difficulty, c.BiomeName(), levelSeed)
	}
}

// formatCounts renders a count map as "k=v" pairs in key order.
func formatCounts[K int | string](counts map[K]int) string {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%v=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
