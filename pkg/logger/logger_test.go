/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func TestBuildLevels(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    zerolog.Level
		wantErr bool
	}{
		{name: "default", config: Config{}, want: zerolog.InfoLevel},
		{name: "explicit", config: Config{Level: "warn"}, want: zerolog.WarnLevel},
		{name: "debug overrides", config: Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
		{name: "invalid", config: Config{Level: "loud"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Build(context.Background(), &tc.config)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, l.GetLevel())
		})
	}
}

func TestSetDebug(t *testing.T) {
	var buf bytes.Buffer

	l := New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.SetDebug(true)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l.SetDebug(false)
	l.Debug().Msg("hidden again")
	assert.Empty(t, buf.String())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	l := New(zerolog.New(&buf))
	c := l.WithComponent("otx-enricher")
	c.Info().Str("subject", "otx.pulses").Msg("started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "otx-enricher", line["component"])
	assert.Equal(t, "otx.pulses", line["subject"])
}

func TestNewTestLoggerDiscards(t *testing.T) {
	l := NewTestLogger()
	l.Error().Msg("nothing happens")
	assert.Equal(t, zerolog.Disabled, l.WithComponent("x").GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_METRICS_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key = abc, tenant=t1")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "2s")

	config := DefaultConfig()

	assert.Equal(t, "debug", config.Level)
	assert.Equal(t, "stdout", config.Output)
	assert.True(t, config.OTel.MetricsEnabled)
	assert.False(t, config.OTel.Enabled)
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "t1"}, config.OTel.Headers)
	assert.Equal(t, Duration(2*time.Second), config.OTel.BatchTimeout)
	assert.Equal(t, defaultServiceName, config.OTel.ServiceName)
}

func TestDurationJSON(t *testing.T) {
	var d Duration

	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, Duration(90*time.Minute), d)

	require.NoError(t, json.Unmarshal([]byte(`5000000000`), &d))
	assert.Equal(t, Duration(5*time.Second), d)

	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	require.ErrorIs(t, json.Unmarshal([]byte(`true`), &d), errInvalidDuration)

	out, err := json.Marshal(Duration(3 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"3s"`, string(out))
}

func TestInitializeDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)

	_, err = InitializeTracing(context.Background(), &OTelConfig{TracesEnabled: true})
	require.ErrorIs(t, err, ErrOTelTracingDisabled)

	_, err = NewOTELWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)

	_, err = NewOTELWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)

	require.NoError(t, Shutdown())
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))

	// "é" is two bytes and must not be split.
	got := truncateString(strings.Repeat("é", 10), 8)
	assert.Equal(t, "éé...", got)
}

func TestMapZerologLevelToOTEL(t *testing.T) {
	assert.Equal(t, otellog.SeverityWarn, mapZerologLevelToOTEL("warning"))
	assert.Equal(t, otellog.SeverityFatal, mapZerologLevelToOTEL("PANIC"))
	assert.Equal(t, otellog.SeverityInfo, mapZerologLevelToOTEL("mystery"))
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	n, err := NewMultiWriter(&a, &b).Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", a.String())
	assert.Equal(t, "line", b.String())

	_, err = NewMultiWriter(shortWriter{}).Write([]byte("line"))
	require.Error(t, err)
}
