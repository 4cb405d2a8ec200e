package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksink/hooksink/internal/handler"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/hooks", cfg.Server.WebhookBasepath)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 64, cfg.Cache.MaxSize)
	assert.Equal(t, 600*time.Second, cfg.Cache.TTL.Std(), "bare integers are seconds")
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval.Std())
	assert.True(t, cfg.Outputs.Textfile.Enabled)
	assert.Equal(t, "http://localhost:9091", cfg.Outputs.Pushgateway.URL)
	assert.True(t, cfg.ExporterMetrics)

	require.Len(t, cfg.EventHandlers, 2)
	first := cfg.EventHandlers[0]
	assert.Equal(t, "deploy.*", first.EventTitle)
	require.NotNil(t, first.Extractors.Value)
	assert.Equal(t, "data.count", first.Extractors.Value.Expr)
	assert.Len(t, first.Extractors.Labels, 2)

	second := cfg.EventHandlers[1]
	require.NotNil(t, second.Extractors.Value)
	require.Len(t, second.Extractors.Value.Steps, 2, "list value is one pipeline")

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "/webhook", cfg.Server.WebhookBasepath)
	assert.Equal(t, 128, cfg.Cache.MaxSize)
	assert.Equal(t, 600*time.Second, cfg.Cache.TTL.Std())
	assert.True(t, cfg.Outputs.Scrapeable)
	assert.False(t, cfg.Outputs.Textfile.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.EventHandlers = []handler.Definition{{EventTitle: "deploy.*"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero max_size",
			mutate:  func(c *Config) { c.Cache.MaxSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "no handlers",
			mutate:  func(c *Config) { c.EventHandlers = nil },
			wantErr: true,
		},
		{
			name: "no outputs",
			mutate: func(c *Config) {
				c.Outputs.Scrapeable = false
			},
			wantErr: true,
		},
		{
			name: "pushgateway without url",
			mutate: func(c *Config) {
				c.Outputs.Pushgateway.Enabled = true
				c.Outputs.Pushgateway.URL = ""
			},
			wantErr: true,
		},
		{
			name: "invalid title pattern",
			mutate: func(c *Config) {
				c.EventHandlers = []handler.Definition{{EventTitle: "deploy-("}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
