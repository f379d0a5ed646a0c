// Package config handles loading and validating Chimera Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CHIMERA_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - An empty JWT secret disables bearer auth on mutating routes
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Registry.Backend)
package config
