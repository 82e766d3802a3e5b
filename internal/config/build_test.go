package config

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/metrics"
	"github.com/roach88/slotreason/internal/store"
	"github.com/roach88/slotreason/internal/suggest"
)

const suggestionRules = `
package rules

rule: "music": {
	when: [{match: #"(slot intent "music")"#}]
	then: [{assert: #"(slot intent_suggestion "play" 2)"#}]
}

rule: "greet": {
	when: [{match: "(slot name ?n)"}]
	then: [{assert: "(call_and_assert greeting upper ?n)"}]
}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rules", "rules.cue"), suggestionRules)
	path := filepath.Join(dir, "service.yaml")
	writeFile(t, path, yaml)
	return path
}

func TestBuild(t *testing.T) {
	path := writeConfig(t, `
state:
  backend: sqlite
  path: states.db
pools:
  - name: suggestions
    rules: [rules]
    functions: [std]
    capacity: 2
    preload: 1
    suggest:
      properties: [intent]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rt, err := cfg.Build(WithLogger(quietLogger()), WithMetrics(m))
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, []string{"suggestions"}, rt.Registry.Names())
	_, isSQLite := rt.States.(*store.Store)
	assert.True(t, isSQLite)

	p, ok := rt.Registry.Get("suggestions")
	require.True(t, ok)
	stats := p.Stats()
	assert.Equal(t, 2, stats.Capacity)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.EnginesCreated.WithLabelValues("suggestions")))

	s, ok := rt.Suggesters["suggestions"]
	require.True(t, ok)
	adapter, err := suggest.NewJSONAdapter(strings.NewReader(`{"u": {"intent": "music"}}`), []string{"intent"})
	require.NoError(t, err)
	got, err := s.Suggest(context.Background(), "u", adapter)
	require.NoError(t, err)
	assert.Equal(t, []suggest.Suggestion{{Intent: "play", Score: 2}}, got)
}

func TestBuild_EnginesUseConfiguredFunctions(t *testing.T) {
	path := writeConfig(t, `
pools:
  - name: p
    rules: [rules]
    functions: [std]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	rt, err := cfg.Build(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer rt.Close()

	p, _ := rt.Registry.Get("p")
	e, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(e)

	require.NoError(t, e.AssertSlot("name", ir.IRString("ada")))
	require.NoError(t, e.Reason(context.Background(), e.ReasonLimit()))
	assert.Equal(t, ir.IRString("ADA"), e.Slots()["greeting"])
}

func TestBuild_UnknownNamespace(t *testing.T) {
	path := writeConfig(t, `
pools:
  - name: p
    rules: [rules]
    functions: [nope]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Build(WithLogger(quietLogger()))
	assert.ErrorIs(t, err, funcs.ErrUnknownNamespace)
}

func TestBuild_BadRules(t *testing.T) {
	path := writeConfig(t, `
pools:
  - name: p
    rules: [missing]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Build(WithLogger(quietLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool p")
}

func TestOpenStateStore(t *testing.T) {
	cfg := &Config{State: StateConfig{Backend: BackendFile, Path: filepath.Join(t.TempDir(), "states")}}
	s, closer, err := cfg.OpenStateStore()
	require.NoError(t, err)
	assert.Nil(t, closer)
	_, isFile := s.(*store.FileStore)
	assert.True(t, isFile)

	cfg = &Config{}
	s, closer, err = cfg.OpenStateStore()
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, closer)
}
