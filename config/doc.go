// Package config loads flowtorch configuration from a YAML file, an optional
// .env file and the process environment using Viper.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("flowtorch", &cfg, config.WithEnvPrefix("FLOWTORCH"))
//
// With a prefix, FLOWTORCH_SERVER_PORT=9090 overrides server.port.
package config
