package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/ckd/stats"
	"github.com/spf13/cobra"
)

type statsBuildCmdConfig struct {
	csvInput   string
	jsonOutput string
	source     string
}

func statsCmd(rootConfig *rootCmdConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Work with population statistics tables",
	}
	cmd.AddCommand(statsBuildCmd(rootConfig))
	return cmd
}

func statsBuildCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &statsBuildCmdConfig{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compute the per-cohort statistics table from an imputed training CSV",
		Long:  `Reads a CSV with one column per feature and a status column labelled ckd or notckd, and writes the JSON table the prediction service loads`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			catalog, err := rootConfig.catalog()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if err := buildStats(catalog, config); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "statistics written to %s\n", config.jsonOutput)
		},
	}
	cmd.Flags().StringVar(&(config.csvInput), "csv", "", "path to the imputed training CSV (required)")
	cmd.Flags().StringVarP(&(config.jsonOutput), "out", "o", "", "path the JSON table will be written to (required)")
	cmd.Flags().StringVar(&(config.source), "source", "", "source name recorded in the table, defaults to the CSV file name")
	return cmd
}

func (c *statsBuildCmdConfig) Validate() error {
	if c.csvInput == "" {
		return fmt.Errorf("required csv flag was not set")
	}
	if c.jsonOutput == "" {
		return fmt.Errorf("required out flag was not set")
	}
	return nil
}

func buildStats(catalog *feature.Catalog, config *statsBuildCmdConfig) error {
	f, err := os.Open(filepath.Clean(config.csvInput))
	if err != nil {
		return err
	}
	defer f.Close()

	source := config.source
	if source == "" {
		source = filepath.Base(config.csvInput)
	}
	table, err := stats.Build(f, catalog, source)
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.jsonOutput, append(content, '\n'), 0o644)
}
