package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/compozy/docsweep/cli/helpers"
	pkgconfig "github.com/compozy/docsweep/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormatConfigOutput(t *testing.T) {
	cfg := pkgconfig.Default()
	cfg.Normalize.Exclude = []string{"drafts/**", "tmp/**"}
	sources := map[string]pkgconfig.SourceType{
		"normalize.exclude": pkgconfig.SourceYAML,
		"purge.workers":     pkgconfig.SourceEnv,
	}

	t.Run("Should emit YAML usable as a config file", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, formatConfigOutput(&out, cfg, sources, "yaml", false))

		var doc map[string]map[string]any
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "content", doc["normalize"]["root"])
		assert.Equal(t, []any{"drafts/**", "tmp/**"}, doc["normalize"]["exclude"])
		assert.Equal(t, 4, doc["purge"]["workers"])
		assert.NotContains(t, doc, "sources")
	})

	t.Run("Should include sources in JSON when requested", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, formatConfigOutput(&out, cfg, sources, "json", true))

		var doc struct {
			Config  map[string]map[string]any `json:"config"`
			Sources map[string]string         `json:"sources"`
			Env     map[string]string         `json:"env"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, ".mdx", doc.Config["purge"]["extension"])
		assert.Equal(t, "env", doc.Sources["purge.workers"])
		assert.Equal(t, "yaml", doc.Sources["normalize.exclude"])
		assert.Equal(t, "default", doc.Sources["purge.dir"])
		assert.Equal(t, "DOCSWEEP_PURGE_WORKERS", doc.Env["purge.workers"])
		assert.Equal(t, "DOCSWEEP_LOG_LEVEL", doc.Env["runtime.log_level"])
	})

	t.Run("Should render a sorted table with sources", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, formatConfigOutput(&out, cfg, sources, "table", true))

		text := out.String()
		assert.Regexp(t, `^KEY\s+VALUE\s+SOURCE\s+ENV\n`, text)
		assert.Regexp(t, `(?m)^normalize\.exclude\s+drafts/\*\*,tmp/\*\*\s+yaml\s+DOCSWEEP_NORMALIZE_EXCLUDE$`, text)
		assert.Regexp(t, `(?m)^purge\.workers\s+4\s+env\s+DOCSWEEP_PURGE_WORKERS$`, text)
		assert.Less(t, bytes.Index(out.Bytes(), []byte("normalize.root")), bytes.Index(out.Bytes(), []byte("purge.dir")))
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		err := formatConfigOutput(&bytes.Buffer{}, cfg, nil, "toml", false)
		var usageErr *helpers.UsageError
		assert.ErrorAs(t, err, &usageErr)
	})

	t.Run("Should default to YAML when output is not a terminal", func(t *testing.T) {
		assert.Equal(t, "yaml", defaultFormat(&bytes.Buffer{}))
	})
}
