package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultServerURL = "http://localhost:8000"

// options holds the global flags shared by every subcommand.
type options struct {
	serverURL      string
	apiKey         string
	format         string
	requestTimeout time.Duration
	verbose        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "CLI for the image labelling pipeline",
		Long:         `pipeline submits batch detection jobs to the pipeline API, waits for them to finish and converts their predictions to COCO format.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve()
		},
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "pipeline API URL (default from PIPELINE_URL or "+defaultServerURL+")")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "API key (default from PIPELINE_API_KEY)")
	root.PersistentFlags().StringVar(&opts.format, "format", "table", "output format: table or json")
	root.PersistentFlags().DurationVar(&opts.requestTimeout, "request-timeout", 30*time.Second, "timeout for each HTTP request")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newBatchCmd(opts),
		newStatusCmd(opts),
		newPredictCmd(opts),
		newExportCmd(opts),
		newWaitCmd(opts),
	)
	return root
}

// resolve fills unset flags from the environment.
func (o *options) resolve() error {
	v := viper.New()
	v.AutomaticEnv()
	_ = v.BindEnv("url", "PIPELINE_URL")
	_ = v.BindEnv("api_key", "PIPELINE_API_KEY")

	if o.serverURL == "" {
		o.serverURL = v.GetString("url")
	}
	if o.serverURL == "" {
		o.serverURL = defaultServerURL
	}
	o.serverURL = strings.TrimRight(o.serverURL, "/")
	if o.apiKey == "" {
		o.apiKey = v.GetString("api_key")
	}

	if o.format != "table" && o.format != "json" {
		return fmt.Errorf("--format must be table or json, got %q", o.format)
	}
	return nil
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (o *options) client() *client.Client {
	return client.NewClient(o.serverURL, o.apiKey, o.requestTimeout, o.logger())
}

func (o *options) jsonOutput() bool {
	return o.format == "json"
}
