// Command xent runs the XENT benchmark harness: it expands a condensed
// config into games x map seeds x players, drives each trial through the
// interpreter against a judge gateway and player back-ends, and reports
// aggregated cross-entropy-based scores.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/xentlabs/xent/pkg/logging"

	// Import for side effects: register all player back-ends via init().
	_ "github.com/xentlabs/xent/internal/generators/bedrock"
	_ "github.com/xentlabs/xent/internal/generators/human"
	_ "github.com/xentlabs/xent/internal/generators/openai"
	_ "github.com/xentlabs/xent/internal/generators/replicate"
	_ "github.com/xentlabs/xent/internal/generators/testgen"
)

func main() {
	// Parse with custom exit handler to enforce proper exit codes:
	// 0 = success, 1 = run error, 2 = validation/usage error.
	ctx := kong.Parse(&CLI,
		kong.Name("xent"),
		kong.Description("Adversarial cross-entropy benchmark harness for language models."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	level := CLI.LogLevel
	if CLI.Debug {
		level = "debug"
	}
	logging.Configure(logging.ParseLevel(level), CLI.LogFormat, nil)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
