// Command bathymap turns sounding logs into a contour map, GeoJSON and a
// depth histogram without running the server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/mapview"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

// directTileURL fetches imagery straight from the provider since there is
// no local proxy for an offline map.
const directTileURL = "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}"

var errUsage = errors.New("usage: bathymap [flags] <csv file>...")

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("bathymap", flag.ContinueOnError)
	fs.SetOutput(stdout)
	out := fs.String("o", "bathymetry_map", "Output directory")
	configPath := fs.String("config", os.Getenv("SURVEY_CONFIG"), "Survey config JSON (defaults when empty)")
	primary := fs.Float64("p", 0, "Primary contour interval in metres (config default when 0)")
	secondary := fs.Float64("s", 0, "Secondary contour interval in metres (config default when 0)")
	strategy := fs.String("strategy", "", "Surface strategy: idw or tin (config default when empty)")
	title := fs.String("title", "Bathymetric Survey", "Map title")
	tileURL := fs.String("tile-url", directTileURL, "Leaflet tile URL template")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg := config.EmptySurveyConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadSurveyConfig(*configPath); err != nil {
			return err
		}
	}
	opts := contour.OptionsFrom(cfg)
	if *primary > 0 {
		opts.PrimaryInterval = *primary
	}
	if *secondary > 0 {
		opts.SecondaryInterval = *secondary
	}
	switch *strategy {
	case "":
	case contour.StrategyIDW, contour.StrategyTIN:
		opts.Strategy = *strategy
	default:
		return fmt.Errorf("unknown strategy %q", *strategy)
	}

	fmt.Fprintf(stdout, "Input: %v\nOutput: %s\nPrimary interval: %gm\nSecondary interval: %gm\n",
		fs.Args(), *out, opts.PrimaryInterval, opts.SecondaryInterval)

	ps, err := soundings.Load(soundings.FilterConfigFrom(cfg), fs.Args()...)
	if err != nil {
		return err
	}
	res := contour.Generate(ps, opts)
	if res.Err != nil {
		fmt.Fprintf(stdout, "Contouring failed, writing points only: %v\n", res.Err)
	}

	a, err := mapview.WriteArtifacts(fsutil.OSFileSystem{}, *out, ps, res, opts, mapview.ArtifactOptions{
		Title:   *title,
		TileURL: *tileURL,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Soundings: %d\n", ps.Len())
	if res.Strategy != "" {
		fmt.Fprintf(stdout, "Surface: %s (fallback: %v)\n", res.Strategy, res.Fallback)
	}
	fmt.Fprintf(stdout, "Contours: %d primary, %d secondary\n", len(res.Primary), len(res.Secondary))
	fmt.Fprintf(stdout, "Map: %s\nGeoJSON: %s\nHistogram: %s\nPreview: %s\n", a.MapPath, a.GeoJSONPath, a.HistogramPath, a.PreviewPath)
	return nil
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
