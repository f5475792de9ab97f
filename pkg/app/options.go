package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Complete fills in any fields not set that are required to have valid data.
	Complete() error

	// Validate checks Options and returns an aggregate of all errors.
	Validate() error
}

// NamedFlagSetOptions are CliOptions that publish their flags grouped by
// section, which drives the --help layout.
type NamedFlagSetOptions interface {
	CliOptions

	// Flags returns flags for a specific server by section name.
	Flags() cliflag.NamedFlagSets
}
