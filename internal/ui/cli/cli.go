package cli

import "flag"

const versionString = "1.0.0"

// configCandidates are tried in order when -config is not given.
var configCandidates = []string{"modgraph.toml", ".modgraph.toml", "data/config/modgraph.toml"}

type cliOptions struct {
	configPath string
	once       bool
	watch      bool
	ui         bool
	format     string
	outputPath string
	chain      string
	store      bool
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("modgraph", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default: discover modgraph.toml)")
	fs.BoolVar(&opts.once, "once", false, "Run a single analysis and exit (default mode)")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run the analysis when source files change")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode (implies -watch)")
	fs.StringVar(&opts.format, "format", "", "Report format: text, json, dot, markdown, sarif, mermaid")
	fs.StringVar(&opts.outputPath, "o", "", "Write the report to this file instead of stdout")
	fs.StringVar(&opts.chain, "chain", "", "Report every import chain from the entries to this module")
	fs.BoolVar(&opts.store, "store", false, "Persist run snapshots and report changes since the last run")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging and untruncated text reports")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
