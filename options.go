package ceangal

import (
	log "github.com/sirupsen/logrus"
)

// Option is a function that configures a Ceangal container.
type Option func(*Ceangal) error

// WithLogger replaces the container's logger. By default the container
// writes through the logrus standard logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Ceangal) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithDebug enables debug logging: the container logs every call site it
// builds and every instance it constructs.
func WithDebug() Option {
	return func(c *Ceangal) error {
		c.debug = true
		c.logger.SetLevel(log.DebugLevel)
		return nil
	}
}

// WithValidation makes BootProviders finish by validating the whole
// registration graph, so a missing dependency or a cycle fails at boot
// instead of on the first resolution.
func WithValidation() Option {
	return func(c *Ceangal) error {
		c.validating = true
		return nil
	}
}
