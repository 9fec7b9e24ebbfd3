package main

import (
	"fmt"
	"io"
	"os"

	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/spf13/cobra"
)

func validateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	var form map[string]*string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a patient form without calling the service",
		Run: func(cmd *cobra.Command, args []string) {
			catalog, err := rootConfig.catalog()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if !validateForm(cmd.OutOrStdout(), catalog, formValues(form)) {
				os.Exit(1)
			}
		},
	}
	form = formFlags(cmd)
	return cmd
}

// validateForm prints one line per invalid field and reports whether the form
// would be sent.
func validateForm(out io.Writer, catalog *feature.Catalog, values map[string]string) bool {
	errs := catalog.ValidateForm(values)
	for _, e := range errs {
		fmt.Fprintf(out, "%s: %s\n", e.Field, e.Message)
	}
	if len(errs) == 0 {
		fmt.Fprintln(out, "form is valid")
	}
	return len(errs) == 0
}
