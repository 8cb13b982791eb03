package config

import (
	"reflect"
	"strings"
	"sync"
)

// envTable indexes the env tags of Config in both directions.
type envTable struct {
	byVar map[string]string
	byKey map[string]string
}

var (
	envOnce  sync.Once
	envIndex envTable
)

func loadEnvTable() envTable {
	envOnce.Do(func() {
		envIndex = envTable{
			byVar: make(map[string]string),
			byKey: make(map[string]string),
		}
		collectEnvTags(reflect.TypeOf(Config{}), "", &envIndex)
	})
	return envIndex
}

func collectEnvTags(t reflect.Type, prefix string, table *envTable) {
	for i := range t.NumField() {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() == t.PkgPath() {
			collectEnvTags(field.Type, key, table)
			continue
		}
		if envVar := strings.TrimSpace(field.Tag.Get("env")); envVar != "" {
			table.byVar[envVar] = key
			table.byKey[key] = envVar
		}
	}
}

// envKeys maps every supported DOCSWEEP_* variable to its config key.
func envKeys() map[string]string {
	return loadEnvTable().byVar
}

// EnvVarFor returns the variable that overrides key, or "" when none does.
func EnvVarFor(key string) string {
	return loadEnvTable().byKey[key]
}
