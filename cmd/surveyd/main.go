package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/depth.survey/internal/api"
	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/db"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/monitoring"
	"github.com/banshee-data/depth.survey/internal/telemetry"
	"github.com/banshee-data/depth.survey/internal/tilecache"
	"github.com/banshee-data/depth.survey/internal/timeutil"
	"github.com/banshee-data/depth.survey/internal/version"
)

// Environment variables consulted for flag defaults after .env is loaded.
const (
	envListen  = "SURVEY_LISTEN"
	envDB      = "SURVEY_DB"
	envDataDir = "SURVEY_DATA_DIR"
	envConfig  = "SURVEY_CONFIG"
	envMAVLink = "SURVEY_MAVLINK_URL"
)

type options struct {
	listen      string
	dbPath      string
	dataDir     string
	configPath  string
	mavlinkURL  string
	diagLog     string
	traceLog    string
	showVersion bool
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.listen, "listen", envOr(envListen, ":8080"), "Listen address")
	fs.StringVar(&o.dbPath, "db", envOr(envDB, "survey.db"), "SQLite database path")
	fs.StringVar(&o.dataDir, "data-dir", envOr(envDataDir, "survey-data"), "Directory for logs, maps and the tile cache")
	fs.StringVar(&o.configPath, "config", envOr(envConfig, config.DefaultConfigPath), "Survey config JSON")
	fs.StringVar(&o.mavlinkURL, "mavlink-url", os.Getenv(envMAVLink), "MAVLink REST bridge base URL (overrides config)")
	fs.StringVar(&o.diagLog, "diag-log", "", "Write the diag stream to this file (off when empty)")
	fs.StringVar(&o.traceLog, "trace-log", "", "Write the trace stream to this file (off when empty)")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.listen == "" {
		return o, errors.New("listen address is required")
	}
	return o, nil
}

// loadConfig reads the survey config. A missing file at the default path
// is not an error; every setting then takes its built-in default.
func loadConfig(path string) (*config.SurveyConfig, error) {
	if path == config.DefaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Printf("no config at %s, using defaults", path)
			return config.EmptySurveyConfig(), nil
		}
	}
	return config.LoadSurveyConfig(path)
}

func openStream(path string) (io.Writer, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// vehicleDialer discovers the bridge layout at the start of each session.
func vehicleDialer(baseURL string, clock timeutil.Clock) telemetry.Dialer {
	client := httputil.NewClient(5 * time.Second)
	return func(ctx context.Context) (telemetry.Source, error) {
		ep, err := telemetry.Discover(ctx, client, baseURL)
		if err != nil {
			log.Printf("MAVLink discovery failed, using default components: %v", err)
		}
		return telemetry.NewMAVLinkSource(client, ep, clock), nil
	}
}

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", envOr(envDB, "survey.db"), "SQLite database path")
	fs.Parse(args)
	if err := db.RunMigrateCommand(os.Stdout, fs.Args(), *dbPath); err != nil {
		log.Printf("migrate: %v", err)
		return 1
	}
	return 0
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		os.Exit(runMigrate(os.Args[2:]))
	}

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts.showVersion {
		fmt.Println(version.String())
		return
	}

	diagW, closeDiag, err := openStream(opts.diagLog)
	if err != nil {
		log.Fatal(err)
	}
	defer closeDiag()
	traceW, closeTrace, err := openStream(opts.traceLog)
	if err != nil {
		log.Fatal(err)
	}
	defer closeTrace()
	monitoring.SetLogWriters(monitoring.LogWriters{Ops: os.Stderr, Diag: diagW, Trace: traceW})
	log.Printf("surveyd %s", version.String())

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if opts.mavlinkURL != "" {
		cfg.MAVLinkURL = &opts.mavlinkURL
	}

	database, err := db.NewDB(opts.dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	clock := timeutil.RealClock{}
	osfs := fsutil.OSFileSystem{}

	store, err := telemetry.NewLogStore(osfs, clock, filepath.Join(opts.dataDir, "logs"), cfg.GetMaxRowsPerFile())
	if err != nil {
		log.Fatalf("Failed to open log store: %v", err)
	}
	controller := telemetry.NewController(store, vehicleDialer(cfg.GetMAVLinkURL(), clock), clock, database, telemetry.ControllerConfigFrom(cfg))

	cache, err := tilecache.New(osfs, clock, filepath.Join(opts.dataDir, "tile_cache"), tilecache.OptionsFrom(cfg))
	if err != nil {
		log.Fatalf("Failed to open tile cache: %v", err)
	}
	tiles := tilecache.NewService(cache, httputil.NewClient(0), cfg.GetTileFetchTimeout())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stop any running logging session on shutdown so the last file is
	// flushed and the session row is closed.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if last := controller.Stop(); last != nil {
			log.Printf("stopped %s session %s with %d rows", last.Mode, last.ID, last.Rows)
		}
		log.Print("logger routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(api.Deps{
			Config:  cfg,
			DB:      database,
			Logger:  controller,
			Tiles:   tiles,
			FS:      osfs,
			MapsDir: filepath.Join(opts.dataDir, "maps"),
		}).ServeMux()
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("admin routes disabled: %v", err)
		}

		server := &http.Server{
			Addr:    opts.listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", opts.listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
