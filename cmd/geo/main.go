package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benatfroemming/mapping-tool/internal/config"
	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/server"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/stats"
)

// Options defines all CLI flags and env vars for the geo server.
// Flags: --host, --port, --data-dir, --web-dir, --config, --debug
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR,
// SERVICE_CONFIG, SERVICE_DEBUG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory holding the samples/ directory" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Config  string `doc:"Optional YAML file with palette, fit and ingest settings"`
	Debug   bool   `doc:"Enable debug logging"`
}

func setupLogging(opts *Options) {
	log.SetHandler(clihandler.New(os.Stderr))
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}
}

func newServer(opts *Options) *server.Server {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		App:     cfg,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		setupLogging(opts)
		var srv *server.Server

		hooks.OnStart(func() {
			srv = newServer(opts)
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.WithFields(log.Fields{
				"viewer":  baseURL + "/",
				"docs":    baseURL + "/docs",
				"openapi": baseURL + "/openapi.json",
				"data":    opts.DataDir,
			}).Info("mapping-tool starting")

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.WithError(err).Fatal("server error")
			}
		})
		hooks.OnStop(func() {
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "geo"
	cli.Root().Short = "Visualize GeoJSON layers on a map with attribute styling and statistics"
	cli.Root().Version = "0.1.0"

	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setupLogging(opts)
			srv := newServer(opts)
			defer srv.Close()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			output, err := marshal(srv.OpenAPI(), useYAML)
			if err != nil {
				log.WithError(err).Fatal("marshaling spec")
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	statsCmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print the geometry summary of a GeoJSON file, or the statistics of one attribute",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setupLogging(opts)
			attr, _ := cmd.Flags().GetString("attribute")
			useJSON, _ := cmd.Flags().GetBool("json")

			panel, err := fileStats(opts, args[0], attr)
			if err != nil {
				log.WithError(err).Fatal("computing statistics")
			}
			panel.Figure = nil

			output, err := marshal(panel, !useJSON)
			if err != nil {
				log.WithError(err).Fatal("marshaling statistics")
			}
			fmt.Println(string(output))
		}),
	}
	statsCmd.Flags().StringP("attribute", "a", "", "Attribute to summarize")
	statsCmd.Flags().Bool("json", false, "Output as JSON instead of YAML")
	cli.Root().AddCommand(statsCmd)

	cli.Run()
}

// fileStats loads one file into a scratch store and builds its panel.
func fileStats(opts *Options, path, attr string) (stats.Panel, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return stats.Panel{}, err
	}
	store := service.NewLayerService(cfg.Palette)

	report := ingest.New(1).Ingest([]ingest.File{ingest.FromPath(path)},
		func(fc *geojson.FeatureCollection, name string) (string, error) {
			rec := store.Add(fc, name)
			return rec.ID, nil
		})
	if len(report.Alerts) > 0 {
		return stats.Panel{}, errors.Errorf("%s: %s", report.Alerts[0].File, report.Alerts[0].Message)
	}
	id := report.Added[0]

	if attr != "" {
		if _, err := store.SetSelectedAttribute(id, attr); err != nil {
			return stats.Panel{}, err
		}
	}
	rec, _ := store.Get(id)
	return stats.Build(&rec), nil
}

func marshal(v any, useYAML bool) ([]byte, error) {
	if useYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
