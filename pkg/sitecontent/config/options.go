package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithStoreURL selects the keyed store backend
func WithStoreURL(storeURL string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseStoreURL(storeURL); err != nil {
			return err
		}
		c.StoreURL = storeURL
		return nil
	}
}

// WithNamespace sets the namespace for shared Redis deployments
func WithNamespace(namespace string) Option {
	return func(c *ServerConfig) error {
		if namespace == "" {
			return fmt.Errorf("namespace cannot be empty")
		}
		c.Namespace = namespace
		return nil
	}
}

// WithRemoteBaseURL enables the remote default tier
func WithRemoteBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.RemoteBaseURL = baseURL
		return nil
	}
}

// WithPollInterval sets the safety-net poll period; zero disables it
func WithPollInterval(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d < 0 {
			return fmt.Errorf("poll interval cannot be negative")
		}
		c.PollInterval = d
		return nil
	}
}

// WithJWTSecret sets the HS256 secret protecting admin routes
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithAPIKeySHA256 sets the hashed admin API key
func WithAPIKeySHA256(hash string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = hash
		return nil
	}
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		if _, err := parseLevel(level); err != nil {
			return err
		}
		c.LogLevel = level
		return nil
	}
}

// WithLogFormat sets the log output format (text or json)
func WithLogFormat(format string) Option {
	return func(c *ServerConfig) error {
		if format != "text" && format != "json" {
			return fmt.Errorf("log format must be 'text' or 'json', got: %s", format)
		}
		c.LogFormat = format
		return nil
	}
}
