package config

import "os"

// Source is a read-only mapping from configuration name to an optional value.
type Source interface {
	Lookup(name string) (string, bool)
}

// EnvSource reads from the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapSource serves values from a fixed map.
type MapSource map[string]string

func (m MapSource) Lookup(name string) (string, bool) {
	value, ok := m[name]
	return value, ok
}
