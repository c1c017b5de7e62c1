package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	// WildcardHost is the only listen host the relay ever binds. PaaS platforms
	// route to the container over whatever interface they like, so binding
	// anything narrower than the wildcard just breaks routing.
	WildcardHost = "0.0.0.0"

	// DefaultPort is used when PORT is absent from the environment.
	DefaultPort = 8000
)

// LookupFunc is a read-only key/value source for bind resolution. Production
// code passes os.LookupEnv; tests inject maps.
type LookupFunc func(key string) (string, bool)

// BindConfig is the resolved listen address, computed once at startup and
// passed by value from then on.
type BindConfig struct {
	Host string
	Port int
}

// Addr returns the host:port form used for socket binding.
func (b BindConfig) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// ConfigError reports an environment variable whose value cannot be used.
// A malformed value is never silently replaced with a default; the container
// must fail visibly instead of coming up on a port nobody routed to.
type ConfigError struct {
	Var    string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%q is invalid: %s", e.Var, e.Value, e.Reason)
}

// ResolveBind resolves the listen address from the given source.
//
// PORT unset or empty selects DefaultPort. Any set value must be a decimal
// integer in [1, 65535]; everything else (non-numeric, zero, negative, out of
// range) yields a *ConfigError. The host is always WildcardHost.
func ResolveBind(lookup LookupFunc) (BindConfig, error) {
	raw, ok := lookup("PORT")
	if !ok || strings.TrimSpace(raw) == "" {
		return BindConfig{Host: WildcardHost, Port: DefaultPort}, nil
	}

	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return BindConfig{}, &ConfigError{Var: "PORT", Value: raw, Reason: "not an integer"}
	}
	if port <= 0 {
		return BindConfig{}, &ConfigError{Var: "PORT", Value: raw, Reason: "port must be positive"}
	}
	if port > 65535 {
		return BindConfig{}, &ConfigError{Var: "PORT", Value: raw, Reason: "port out of range (1-65535)"}
	}

	return BindConfig{Host: WildcardHost, Port: port}, nil
}

// ResolveBindFromEnv resolves the listen address from the process environment.
func ResolveBindFromEnv() (BindConfig, error) {
	return ResolveBind(os.LookupEnv)
}
