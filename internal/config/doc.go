// Package config provides the configuration of an archive run: defaults,
// validation, the optional .rpdarchive YAML file and XDG directories.
package config
