package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig lists the environment variables read by WithEnv. Unset
// variables keep the current value.
type EnvConfig struct {
	Port          string `env:"PORT" env-description:"HTTP listen port"`
	Environment   string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	StoreURL      string `env:"STORE_URL" env-description:"keyed store url (memory://, file://, redis://, postgres://, sqlite://, s3://)"`
	Namespace     string `env:"NAMESPACE" env-description:"namespace for shared redis deployments"`
	RemoteBaseURL string `env:"REMOTE_BASE_URL" env-description:"base url of published default documents"`
	PollInterval  string `env:"POLL_INTERVAL" env-description:"safety-net poll period, 0 disables"`
	JWTSecret     string `env:"JWT_SECRET" env-description:"HS256 secret for admin routes"`
	APIKeySHA256  string `env:"API_KEY_SHA256" env-description:"sha256 of the admin api key"`
	LogLevel      string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
	LogFormat     string `env:"LOG_FORMAT" env-description:"text or json"`
}

// WithEnv applies environment variable overrides using the provided prefix,
// e.g. WithEnv("SITECONTENT_") reads SITECONTENT_STORE_URL.
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		env, err := readEnv(prefix)
		if err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)
		setString(&c.StoreURL, env.StoreURL)
		setString(&c.Namespace, env.Namespace)
		setString(&c.RemoteBaseURL, env.RemoteBaseURL)
		setString(&c.JWTSecret, env.JWTSecret)
		setString(&c.APIKeySHA256, env.APIKeySHA256)
		setString(&c.LogLevel, env.LogLevel)
		setString(&c.LogFormat, env.LogFormat)

		if env.PollInterval != "" {
			d, err := parseInterval(env.PollInterval)
			if err != nil {
				return fmt.Errorf("invalid %sPOLL_INTERVAL: %w", prefix, err)
			}
			c.PollInterval = d
		}
		return nil
	}
}

// readEnv wraps EnvConfig in a struct carrying the prefix so cleanenv
// resolves prefixed names.
func readEnv(prefix string) (EnvConfig, error) {
	v := prefixed(prefix)
	if err := cleanenv.ReadEnv(v.Interface()); err != nil {
		return EnvConfig{}, err
	}
	return v.Elem().Field(0).Interface().(EnvConfig), nil
}

// EnvUsage describes the variables WithEnv reads, for --help output.
func EnvUsage(prefix string) string {
	header := fmt.Sprintf("Environment variables (prefix %q):", prefix)
	usage, err := cleanenv.GetDescription(prefixed(prefix).Interface(), &header)
	if err != nil {
		return header
	}
	return usage
}

func prefixed(prefix string) reflect.Value {
	wrapper := reflect.StructOf([]reflect.StructField{{
		Name: "Values",
		Type: reflect.TypeOf(EnvConfig{}),
		Tag:  reflect.StructTag(fmt.Sprintf(`env-prefix:"%s"`, prefix)),
	}})
	return reflect.New(wrapper)
}

func parseInterval(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
