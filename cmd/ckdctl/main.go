package main

import (
	"fmt"
	"os"

	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose     bool
	catalogPath string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "ckdctl",
		Short: "ckdctl queries the CKD prediction service",
		Long:  `A tool to validate patient forms, request CKD risk predictions, and build the population statistics table the service compares patients against`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if config.verbose {
				level = "debug"
			}
			logger.InitWithOutput(os.Stderr, level)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log requests and responses to stderr")
	rootCmd.PersistentFlags().StringVar(&(config.catalogPath), "catalog", "", "path to a YAML feature catalog override")
	rootCmd.AddCommand(versionCmd(), predictCmd(config), validateCmd(config), statsCmd(config))
	return rootCmd
}

func (c *rootCmdConfig) catalog() (*feature.Catalog, error) {
	return feature.Load(c.catalogPath)
}

// formFlags registers one string flag per feature so values reach the
// validator exactly as typed.
func formFlags(cmd *cobra.Command) map[string]*string {
	form := make(map[string]*string)
	for _, d := range feature.Default().Descriptors() {
		form[d.Name] = cmd.Flags().String(d.Name, "", fmt.Sprintf("%s, %s", d.Label, d.RangeText()))
	}
	return form
}

func formValues(form map[string]*string) map[string]string {
	values := make(map[string]string, len(form))
	for name, v := range form {
		values[name] = *v
	}
	return values
}
