package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries the parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile string

	// Query parameters (override config defaults when set)
	Lat       float64
	Lon       float64
	RadiusKm  float64
	K         int
	Unlimited bool

	// Modes
	Analyze   bool
	Density   bool
	Recommend bool
	RenderMap bool
	HTTPMode  bool
	MqttMode  bool

	// Output
	OutputFile   string
	RenderFormat string // svg or png
	GeoJSON      bool
	HTTPPort     int
}

// appRunner is the surface main drives; App implements it, tests mock it.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	RunAnalyze() error
	RunDensity() error
	RunRecommend() error
	RunRender() error
	RunService() error
}

func main() {
	app := NewApp()
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, applies the options to the app, and dispatches the
// selected mode. Split from main so the flag handling is testable.
func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("netcover", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")

	fs.Float64Var(&opts.Lat, "lat", 0, "Query point latitude")
	fs.Float64Var(&opts.Lon, "lon", 0, "Query point longitude")
	fs.Float64Var(&opts.RadiusKm, "radius", 0, "Coverage radius in km (0 = config default)")
	fs.IntVar(&opts.K, "k", 0, "Number of nearest sites to analyze (0 = config default)")
	fs.BoolVar(&opts.Unlimited, "unlimited", false, "Ignore the radius: every site counts as nearby")

	fs.BoolVar(&opts.Analyze, "analyze", false, "Classify coverage at the query point and exit")
	fs.BoolVar(&opts.Density, "density", false, "Print per-state site density and exit")
	fs.BoolVar(&opts.Recommend, "recommend", false, "Analyze the query point and propose a site for coverage gaps")
	fs.BoolVar(&opts.RenderMap, "render", false, "Render a coverage map for the query point and exit")
	fs.BoolVar(&opts.HTTPMode, "http", false, "Run the HTTP query API")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run the MQTT query service")

	fs.StringVar(&opts.OutputFile, "output", "coverage-map.svg", "Output file for --render mode")
	fs.StringVar(&opts.RenderFormat, "format", "svg", "Render format: svg or png")
	fs.BoolVar(&opts.GeoJSON, "geojson", false, "Emit results as GeoJSON instead of text")
	fs.IntVar(&opts.HTTPPort, "http-port", 0, "HTTP server port (0 = config default)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "netcover version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.Analyze:
		return app.RunAnalyze()
	case opts.Density:
		return app.RunDensity()
	case opts.Recommend:
		return app.RunRecommend()
	case opts.RenderMap:
		return app.RunRender()
	case opts.HTTPMode || opts.MqttMode:
		return app.RunService()
	}

	fmt.Fprintln(out, "netcover: nothing to do")
	fmt.Fprintln(out, "Use --analyze --lat LAT --lon LON to classify coverage at a point")
	fmt.Fprintln(out, "Use --density to print per-state site counts")
	fmt.Fprintln(out, "Use --recommend to propose a site for a coverage gap")
	fmt.Fprintln(out, "Use --render to output a coverage map")
	fmt.Fprintln(out, "Use --http to serve the query API")
	fmt.Fprintln(out, "Use --mqtt to answer queries over MQTT")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - data paths, column mapping, thresholds, MQTT settings")
	return nil
}
