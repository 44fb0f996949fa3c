// Package config holds the connection configuration for a wsact actor.
//
// A Config is built once per actor instance from user-supplied options
// merged over documented defaults, and is immutable after construction.
// Host and Path are required; everything else has a default. Runtime
// connection state (transport handle, stream identifier, handler state)
// never lives on the Config - it is owned exclusively by the actor.
//
// The package also loads configs from YAML files for CLI harnesses.
package config
