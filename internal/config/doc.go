// Package config defines the format-agnostic configuration model of the
// application and the Loader interface that fills it from a source.
//
// The HCL implementation lives in the hcl_adapter package. Command-line flags
// are applied on top of a loaded Model by the cli package.
package config
