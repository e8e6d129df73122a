// Package config loads and validates the engine configuration.
//
// Values come from three layers, each overriding the last: hardcoded
// defaults, the YAML file, then PIPEGRAPH_* environment variables.
// Secrets (broker password, InfluxDB token) belong in the environment,
// not the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Backend)
//
// Load validates before returning, so a *Config in hand is always
// usable. Default() also validates cleanly for callers running
// without a config file.
package config
