package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kwv/netcover/coverage"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *coverage.Config
	Dataset    *coverage.Dataset
	MQTTClient *coverage.MQTTClient
	Publisher  *coverage.Publisher

	opts AppOptions
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

// load reads the config and opens the dataset; both happen once per process.
func (a *App) load() error {
	if a.Dataset != nil {
		return nil
	}

	config, err := coverage.LoadConfig(a.opts.ConfigFile)
	if err != nil {
		return err
	}
	a.Config = config

	dataset, err := coverage.OpenDataset(config.Data)
	if err != nil {
		return err
	}
	a.Dataset = dataset

	log.Printf("Loaded %d sites (%d rows skipped), %d regions",
		dataset.SiteCount(), dataset.SkippedRows(), dataset.Regions().Len())
	return nil
}

// query builds the QueryPoint for the CLI flags, falling back to config
// defaults for unset parameters.
func (a *App) query() coverage.QueryPoint {
	q := a.Config.Query(a.opts.Lat, a.opts.Lon)
	if a.opts.RadiusKm > 0 {
		q.RadiusKm = a.opts.RadiusKm
	}
	if a.opts.Unlimited {
		q.RadiusKm = 0
	}
	if a.opts.K > 0 {
		q.K = a.opts.K
	}
	return q
}

// RunAnalyze classifies coverage at the query point and prints the result.
func (a *App) RunAnalyze() error {
	if err := a.load(); err != nil {
		return err
	}

	res, err := a.Dataset.Classify(a.query())
	if err != nil {
		return err
	}

	if a.opts.GeoJSON {
		return printJSON(coverage.ResultFeatureCollection(res))
	}

	printResult(res)
	return nil
}

// RunDensity prints the per-state site density report.
func (a *App) RunDensity() error {
	if err := a.load(); err != nil {
		return err
	}

	report, err := a.Dataset.Density()
	if err != nil {
		return err
	}

	if a.opts.GeoJSON {
		return printJSON(coverage.DensityFeatureCollection(report, a.Dataset.Regions()))
	}

	fmt.Println("Sites per state")
	fmt.Println("===============")
	for _, name := range a.Dataset.Regions().Names() {
		fmt.Printf("%-20s %d\n", name, report.Counts[name])
	}
	if report.Unknown > 0 {
		fmt.Printf("%-20s %d\n", "(unknown)", report.Unknown)
	}
	fmt.Printf("Total: %d\n", report.Total)
	return nil
}

// RunRecommend analyzes the query point and, when coverage is missing or
// weak, prints a recommended site location.
func (a *App) RunRecommend() error {
	if err := a.load(); err != nil {
		return err
	}

	res, err := a.Dataset.Classify(a.query())
	if err != nil {
		return err
	}
	printResult(res)

	cand, err := a.Dataset.Recommend(res, nil)
	if err != nil {
		return err
	}

	if a.opts.GeoJSON {
		return printJSON(coverage.CandidateFeature(cand))
	}

	fmt.Printf("\nRecommended site: (%.6f, %.6f) reason: %s\n", cand.Lat, cand.Lon, cand.Reason)
	return nil
}

// RunRender writes a static coverage map for the query point.
func (a *App) RunRender() error {
	if err := a.load(); err != nil {
		return err
	}

	res, err := a.Dataset.Classify(a.query())
	if err != nil {
		return err
	}

	f, err := os.Create(a.opts.OutputFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", a.opts.OutputFile, err)
	}
	defer f.Close()

	renderer := coverage.NewCoverageRenderer(res, a.Dataset.Regions())
	switch strings.ToLower(a.opts.RenderFormat) {
	case "png":
		err = renderer.RenderToPNG(f)
	case "svg", "":
		err = renderer.RenderToSVG(f)
	default:
		return fmt.Errorf("unknown render format %q (want svg or png)", a.opts.RenderFormat)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created: %s\n", a.opts.OutputFile)
	return nil
}

// RunService starts the HTTP API and/or the MQTT query service and blocks
// until interrupted.
func (a *App) RunService() error {
	if err := a.load(); err != nil {
		return err
	}

	if a.opts.MqttMode {
		mqttClient, err := coverage.InitMQTT(a.Config, a.handleQuery)
		if err != nil {
			return err
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured in %s", a.opts.ConfigFile)
		}
		a.MQTTClient = mqttClient

		a.Publisher = coverage.NewPublisher(mqttClient.GetClient())
		a.Publisher.SetPrefix(a.Config.MQTT.PublishPrefix)
		fmt.Println("MQTT query service initialized")
	}

	if a.opts.HTTPMode {
		port := a.Config.HTTPPort
		if a.opts.HTTPPort > 0 {
			port = a.opts.HTTPPort
		}

		httpServer := newHTTPServer(a.Dataset, a.Config)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", port)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()

		fmt.Printf("\nHTTP endpoints (port %d):\n", port)
		fmt.Println("  GET /health            - Health check")
		fmt.Println("  GET /api/coverage      - Classify coverage at ?lat=&lon=")
		fmt.Println("  GET /api/nearest       - Nearest sites for ?lat=&lon=&k=")
		fmt.Println("  GET /api/density       - Sites per state")
		fmt.Println("  GET /api/recommend     - Site recommendation for a gap")
		fmt.Println("  GET /coverage.geojson  - Result as GeoJSON")
		fmt.Println("  GET /density.geojson   - Density as GeoJSON")
		fmt.Println("  GET /coverage-map.svg  - Static coverage map (also .png)")
	}

	if a.opts.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Printf("  Query topic:  %s\n", a.Config.MQTT.QueryTopic)
		fmt.Printf("  Results:      %s/results/{requestID}\n", a.Config.MQTT.PublishPrefix)
		fmt.Printf("  Density:      %s/density\n", a.Config.MQTT.PublishPrefix)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
	return nil
}

// handleQuery answers one MQTT coverage query.
func (a *App) handleQuery(requestID string, q coverage.QueryPoint, err error) {
	if err != nil {
		log.Printf("Rejected query %s: %v", requestID, err)
		return
	}

	res, err := a.Dataset.Classify(q)
	if err != nil {
		log.Printf("Error classifying query %s: %v", requestID, err)
		return
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishResult(requestID, res); err != nil {
			log.Printf("Error publishing result for %s: %v", requestID, err)
		}
	}
}

// GetPublishClient exposes the underlying MQTT client for the publisher.
func (a *App) GetPublishClient() mqtt.Client {
	if a.MQTTClient == nil {
		return nil
	}
	return a.MQTTClient.GetClient()
}

func printResult(res coverage.CoverageResult) {
	fmt.Printf("Query: (%.6f, %.6f)", res.Query.Lat, res.Query.Lon)
	if res.RadiusKm > 0 {
		fmt.Printf("  radius: %g km", res.RadiusKm)
	} else {
		fmt.Printf("  radius: unlimited")
	}
	fmt.Println()

	fmt.Printf("Covered: %v  Confidence: %s  State: %s\n", res.Covered, res.Confidence, res.Region)

	if len(res.Nearest) == 0 {
		fmt.Println("No sites in dataset")
		return
	}

	fmt.Println("\nNearest sites:")
	for i, sd := range res.Nearest {
		fmt.Printf("  %d. %-10s %-4s %8.2f km  (%.5f, %.5f)\n",
			i+1, coverage.CanonicalOperator(sd.Site.Operator), sd.Site.Technology,
			sd.Km, sd.Site.Lat, sd.Site.Lon)
	}

	b := res.Breakdown()
	fmt.Println("\nOperators nearby:")
	for op, n := range b.ByOperator {
		fmt.Printf("  %-10s %d\n", op, n)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
