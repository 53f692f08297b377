package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/postboard/internal/flagx"
	"github.com/dmitrijs2005/postboard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Duration fields
// use timex.Duration so both "15m" and integer nanoseconds are accepted.
// Only keys present in the file override the current Config values.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	DefaultPolicy               *string         `json:"default_policy"`
	LogLevel                    *string         `json:"log_level"`
	ShutdownTimeout             *timex.Duration `json:"shutdown_timeout"`
	CORSAllowedOrigins          []string        `json:"cors_allowed_origins"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c / -config, if any, into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.DefaultPolicy, c.DefaultPolicy)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
