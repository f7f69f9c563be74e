package main

import (
	"fmt"
	"os"

	"invoice-audit-service/cmd/invoiceaudit/cmd"
	"invoice-audit-service/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if auditErr, ok := errors.AsAuditError(err); ok {
			if auditErr.Suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", auditErr.Suggestion)
			}
			os.Exit(auditErr.GetExitCode())
		}
		os.Exit(1)
	}
}
