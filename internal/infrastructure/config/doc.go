// Package config handles loading and validating HomeBot Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with HOMEBOT_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Secrets (JWT secret, MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
package config
