package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate validates the config.
func Validate(conf Config) error {
	if err := validateHTTPConfig(conf.HTTP); err != nil {
		return err
	}

	if err := validateSessionConfig(conf.Session); err != nil {
		return err
	}

	return validateLogConfig(conf.Log)
}

// validateHTTPConfig validates the HTTP listener configuration.
func validateHTTPConfig(httpConf HTTP) error {
	if httpConf.Listen == "" {
		return fmt.Errorf("http.listen is %w", ErrRequired)
	}

	if httpConf.TLS {
		if httpConf.CertFile == "" {
			return fmt.Errorf("http.cert is %w with http.tls", ErrRequired)
		}

		if httpConf.KeyFile == "" {
			return fmt.Errorf("http.key is %w with http.tls", ErrRequired)
		}
	}

	return nil
}

// validateSessionConfig validates the session cookie configuration.
func validateSessionConfig(sessionConf Session) error {
	if sessionConf.Secret.String() == "" {
		return fmt.Errorf("session.secret is %w", ErrRequired)
	}

	if !slices.Contains([]int{16, 24, 32}, len(sessionConf.Secret.String())) {
		return errors.New("session.secret requires a length of 16, 24 or 32")
	}

	if sessionConf.CookieName == "" {
		return fmt.Errorf("session.cookie-name is %w", ErrRequired)
	}

	return nil
}

// validateLogConfig validates the logging configuration.
func validateLogConfig(logConf Log) error {
	if !slices.Contains([]string{"json", "console"}, logConf.Format) {
		return fmt.Errorf("unknown log format: %s", logConf.Format)
	}

	return nil
}
