package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/client"
	"github.com/physickd/platform/pkg/common/config"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	url     string
	timeout time.Duration
	asJSON  bool
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{}
	var form map[string]*string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Request a CKD risk prediction for one patient",
		Long:  `Validates the nine patient fields, sends them to the prediction service, and prints the risk score, risk level and cohort comparison`,
		Run: func(cmd *cobra.Command, args []string) {
			catalog, err := rootConfig.catalog()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			c := config.client(cmd.Context(), catalog)
			if err := runPredict(cmd.Context(), c, formValues(form), cmd.OutOrStdout(), config.asJSON); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCode(err))
			}
		},
	}
	form = formFlags(cmd)
	cmd.Flags().StringVar(&(config.url), "url", "", "prediction service base URL, defaults to PREDICTION_BASE_URL")
	cmd.Flags().DurationVar(&(config.timeout), "timeout", 0, "request timeout, defaults to CLIENT_TIMEOUT")
	cmd.Flags().BoolVar(&(config.asJSON), "json", false, "print the prediction and display values as JSON")
	return cmd
}

func (c *predictCmdConfig) client(ctx context.Context, catalog *feature.Catalog) *client.Client {
	cfg := config.Load()
	if c.url != "" {
		cfg.PredictionBaseURL = c.url
	}
	if c.timeout > 0 {
		cfg.ClientTimeout = c.timeout
	}
	return client.NewFromConfig(ctx, cfg, catalog)
}

type predictOutput struct {
	Prediction client.Prediction    `json:"prediction"`
	Display    client.DisplayResult `json:"display"`
}

func runPredict(ctx context.Context, c *client.Client, form map[string]string, out io.Writer, asJSON bool) error {
	p, display, err := c.Assess(ctx, form)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(predictOutput{Prediction: p, Display: display})
	}
	return render(out, c.Catalog(), p, display)
}

// exitCode maps failures to distinct statuses: 1 invalid form, 2 service
// unreachable or erroring, 3 unusable response.
func exitCode(err error) int {
	var fe client.FormError
	var me client.MalformedResultError
	switch {
	case errors.As(err, &fe):
		return 1
	case errors.As(err, &me):
		return 3
	default:
		return 2
	}
}
