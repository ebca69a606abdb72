package main

import "fmt"

// CLI is the top-level Kong command structure, modeled on the teacher's
// cmd/augustus/cli.go: one struct field per subcommand, each with its own
// Run() method.
var CLI struct {
	Debug     bool   `help:"Shorthand for --log-level=debug." short:"d" env:"XENT_DEBUG"`
	LogLevel  string `help:"Log level: debug, info, warn, error." default:"info" env:"XENT_LOG_LEVEL"`
	LogFormat string `help:"Log format: text or json." enum:"text,json" default:"text" env:"XENT_LOG_FORMAT"`

	Bench   BenchCmd   `cmd:"" help:"Run a benchmark config to completion."`
	Lint    LintCmd    `cmd:"" help:"Validate a benchmark config without calling any live player or judge back-end."`
	List    ListCmd    `cmd:"" help:"List registered generators and judge back-ends."`
	Version VersionCmd `cmd:"" help:"Print the xent version."`
}

// VersionCmd prints the CLI's own version string.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Println("xent version " + version)
	return nil
}
