// Package cmd provides the assetsmith command-line interface.
//
// Every pipeline task is a subcommand, and the root command runs any list of
// them:
//
//	assetsmith                  # build
//	assetsmith styles scripts   # both, in parallel
//	assetsmith serve            # dev server with live reload
//	assetsmith tasks            # list tasks and their prerequisites
//
// Configuration comes from .assetsmith.yml (or --config, or
// ASSETSMITH_CONFIG_FILE) with ASSETSMITH_<SECTION>_<KEY> environment
// overrides.
package cmd
