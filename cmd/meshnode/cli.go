package main

import "flag"

// Options holds CLI options for the node.
type Options struct {
	ConfigPath string
	Gateway    bool
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("meshnode", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.BoolVar(&opts.Gateway, "gateway", false, "Advertise this node as a gateway")
	_ = fs.Parse(args)
	return opts
}
