package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projectdiscovery/goflags"

	"ipscope/internal/adapter"
	"ipscope/internal/config"
	"ipscope/internal/core/bootstrap"
	"ipscope/internal/handler"
	"ipscope/internal/hub"
	"ipscope/internal/loader"
	"ipscope/internal/logger"
	"ipscope/internal/lookup"
	"ipscope/internal/repository"
	"ipscope/internal/repository/postgres"
	"ipscope/internal/repository/sqlite"
	"ipscope/internal/service"
	"ipscope/internal/watcher"
)

type options struct {
	ConfigPath string
	EnvFile    string
	Inventory  string
	Addr       string
	Driver     string
	DBPath     string
	DSN        string
	Ranges     goflags.StringSlice
	Mode       string
	Posture    string
	Interval   time.Duration
	LogLevel   string
	Once       bool
}

func parseOptions() (*options, error) {
	opts := &options{}

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("ipscope discovers live hosts on configured networks and keeps an inventory of their state")

	flagSet.CreateGroup("config", "Configuration",
		flagSet.StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config file"),
		flagSet.StringVar(&opts.EnvFile, "env-file", "", "path to a .env file"),
		flagSet.StringVar(&opts.Inventory, "inventory", "", "YAML inventory of ranges and owner assignments"),
		flagSet.StringVarP(&opts.Mode, "mode", "m", "", "operating mode (passive, monitor, discovery)"),
		flagSet.StringVarP(&opts.Posture, "posture", "p", "", "scan posture (stealth, cautious, balanced, aggressive)"),
		flagSet.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)"),
	)
	flagSet.CreateGroup("server", "Server",
		flagSet.StringVarP(&opts.Addr, "addr", "a", "", "HTTP listen address"),
	)
	flagSet.CreateGroup("database", "Database",
		flagSet.StringVar(&opts.Driver, "driver", "", "database driver (sqlite, postgres)"),
		flagSet.StringVar(&opts.DBPath, "db", "", "SQLite database path"),
		flagSet.StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string"),
	)
	flagSet.CreateGroup("scan", "Scanning",
		flagSet.StringSliceVarP(&opts.Ranges, "range", "r", nil, "CIDR range to seed (repeatable, comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.DurationVarP(&opts.Interval, "interval", "i", 0, "scheduled scan interval (0 disables)"),
		flagSet.BoolVar(&opts.Once, "once", false, "run a single scan over -range (or the active ranges) and exit"),
	)

	if err := flagSet.Parse(); err != nil {
		return nil, err
	}
	return opts, nil
}

func loadConfig(opts *options) (*config.Config, string, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return nil, "", err
	}

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if opts.ConfigPath != "" {
		cfg, path, err = config.LoadFromPath(opts.ConfigPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}

	// Flags win over file and environment
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if opts.DBPath != "" {
		cfg.Database.Path = opts.DBPath
	}
	if opts.DSN != "" {
		cfg.Database.DSN = opts.DSN
	}
	if len(opts.Ranges) > 0 {
		cfg.Scan.Ranges = opts.Ranges
	}
	if opts.Mode != "" {
		m := config.ParseMode(opts.Mode)
		cfg.Mode = &m
	}
	if opts.Posture != "" {
		cfg.Posture = config.ParsePosture(opts.Posture)
	}
	if opts.Interval > 0 {
		cfg.Scan.Interval = config.Duration(opts.Interval)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Inventory != "" {
		cfg.Inventory.File = opts.Inventory
	}

	return cfg, path, cfg.Validate()
}

func openRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, cfg.Database.DSN, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Database.Path).Msg("Database opened")
		return repo, nil
	}
}

func main() {
	opts, err := parseOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(2)
	}

	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if cfgPath != "" {
		log.Info().Str("path", cfgPath).Msg("Loaded config")
	} else {
		log.Info().Msg("No config file found, using defaults")
	}
	log.Info().Msg(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer repo.Close()

	// Host inspection picks the mode unless one was set explicitly
	seedRanges := cfg.Scan.Ranges
	if cfg.Mode == nil || cfg.Scan.SeedLocalSubnets {
		rec := bootstrap.Run(ctx, bootstrap.DefaultProbes(), log).Recommendation
		if cfg.Mode == nil {
			cfg.Mode = &rec.Mode
			if cfg.ActiveScan.Privileged && !rec.Privileged {
				log.Warn().Msg("No raw socket capability, running nmap unprivileged")
				cfg.ActiveScan.Privileged = false
			}
		}
		if cfg.Scan.SeedLocalSubnets {
			seedRanges = append(seedRanges, rec.Subnets...)
		}
	}

	eventBus := service.NewEventBus()
	behavior := cfg.EffectiveBehavior()
	mode := cfg.EffectiveMode()

	// Vendor table: built-in prefixes plus an optional IEEE/Wireshark file
	vendors := lookup.NewOUITable(cfg.Vendors.CacheSize)
	if cfg.Vendors.OUIFile != "" {
		n, err := vendors.LoadFile(cfg.Vendors.OUIFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Vendors.OUIFile).Msg("Failed to load OUI file, using built-in table")
		} else {
			log.Info().Int("prefixes", n).Str("path", cfg.Vendors.OUIFile).Msg("Loaded OUI file")
		}
	}

	assignments := lookup.NewAssignmentService(repo, cfg.Assignments.CacheSize, cfg.Assignments.CacheTTL.Duration(), log)

	prober := adapter.NewProber(adapter.ExecPinger{}, adapter.ProcNeighborCache{}, adapter.ProberConfig{
		Timeout:       behavior.ProbeTimeout,
		MaxConcurrent: behavior.ProbeConcurrency,
	}, log)
	prober.SetEventPublisher(eventBus)

	// nil interface when the fallback is unavailable, not a typed nil
	var active adapter.ActiveScanner
	if cfg.ActiveScanEnabled() {
		nmapOpts := []adapter.NmapOption{
			adapter.WithHostTimeout(behavior.ActiveHostTimeout),
			adapter.WithMaxRetries(behavior.ActiveMaxRetries),
			adapter.WithPrivileged(cfg.ActiveScan.Privileged),
		}
		if cfg.ActiveScan.BinaryPath != nil {
			nmapOpts = append(nmapOpts, adapter.WithBinaryPath(*cfg.ActiveScan.BinaryPath))
		}
		if cfg.Posture == config.PostureStealth {
			nmapOpts = append(nmapOpts, adapter.WithStealthTiming())
		}
		scanner := adapter.NewNmapScanner(log, nmapOpts...)
		if scanner.Available(ctx) {
			scanner.SetEventPublisher(eventBus)
			active = scanner
			log.Info().Msg("Active scan fallback enabled")
		} else {
			log.Warn().Msg("nmap not available, active scan fallback disabled")
		}
	}

	resolver := service.NewResolver(
		assignments,
		adapter.NewDNSResolver(cfg.Resolver.DNSServer, 0),
		vendors,
		service.ResolverConfig{MaxConcurrent: behavior.ResolveConcurrency, Timeout: behavior.ResolveTimeout},
		log,
	)

	scanSvc := service.NewScanService(repo, prober, active, resolver, eventBus, service.ScanConfig{
		RangePause: behavior.RangePause,
		Retention:  cfg.Scan.Retention.Duration(),
	}, log)
	rangeSvc := service.NewRangeService(repo, eventBus, log)
	liveSvc := service.NewLiveService(repo)

	if err := rangeSvc.Seed(ctx, seedRanges); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed ranges")
	}

	applyInventory := func(path string) {
		inv, err := loader.LoadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to load inventory")
			return
		}
		if _, err := loader.Apply(ctx, inv, rangeSvc, assignments, log); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to apply inventory")
		}
	}
	if cfg.Inventory.File != "" {
		applyInventory(cfg.Inventory.File)
	}

	if opts.Once {
		run, err := scanSvc.Run(ctx, opts.Ranges)
		if err != nil {
			log.Fatal().Err(err).Msg("Scan failed")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(run)
		return
	}

	// SSE hub fed from the event bus
	sseHub := hub.New(log)
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventChan:
				sseHub.Broadcast(event)
			}
		}
	}()

	if cfg.Inventory.Watch {
		inventoryPath := absPath(cfg.Inventory.File)
		ouiPath := absPath(cfg.Vendors.OUIFile)
		w := watcher.New(log, func(path string) {
			switch path {
			case inventoryPath:
				applyInventory(path)
			case ouiPath:
				if n, err := vendors.LoadFile(path); err != nil {
					log.Error().Err(err).Str("path", path).Msg("Failed to reload OUI file")
				} else {
					log.Info().Int("prefixes", n).Msg("Reloaded OUI file")
				}
			}
		}, inventoryPath, ouiPath)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("File watcher stopped")
			}
		}()
	}

	var scheduler *service.Scheduler
	if mode.Allows(config.ModeMonitor) {
		scheduler = service.NewScheduler(scanSvc, cfg.Scan.Interval.Duration(), log)
		scheduler.Start(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	h := handler.New(scanSvc, liveSvc, rangeSvc, assignments, log)
	h.SetScanEnabled(mode.Allows(config.ModeMonitor))
	h.SetEventBus(eventBus)
	router := handler.NewRouter(h, sseHub, log)

	// No write timeout: scans run inside the request and SSE streams stay open
	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("mode", string(mode)).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
