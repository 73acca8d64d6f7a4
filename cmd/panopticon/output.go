package main

import (
	"encoding/json"
	"fmt"
	"os"

	"panopticon/internal/envelope"
)

// printEnvelope writes data wrapped in the standard envelope to stdout.
func printEnvelope(data interface{}) {
	resp := envelope.New().Data(data).Build()
	raw, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(raw))
}

// exitWithError reports a failure in the requested format and exits non-zero.
// JSON mode emits an envelope on stdout so pipelines always get one document.
func exitWithError(format string, err error) {
	if format == "json" {
		resp := envelope.New().Data(nil).Error(err).Build()
		if raw, merr := json.MarshalIndent(resp, "", "  "); merr == nil {
			fmt.Println(string(raw))
			os.Exit(1)
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
