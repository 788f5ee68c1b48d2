package config

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/documents"
	"github.com/tendant/site-content/pkg/sitecontent/relay/fswatch"
	redisrelay "github.com/tendant/site-content/pkg/sitecontent/relay/redis"
	fsstore "github.com/tendant/site-content/pkg/sitecontent/store/fs"
	"github.com/tendant/site-content/pkg/sitecontent/store/memory"
	redisstore "github.com/tendant/site-content/pkg/sitecontent/store/redis"
	"github.com/tendant/site-content/pkg/sitecontent/store/sqlite"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory://", cfg.StoreURL)
	assert.Equal(t, sitecontent.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
		check   func(t *testing.T, cfg *ServerConfig)
	}{
		{
			name: "all set",
			opts: []Option{
				WithPort("9090"),
				WithEnvironment("production"),
				WithStoreURL("redis://localhost:6379/0"),
				WithNamespace("site-a"),
				WithRemoteBaseURL("https://cdn.example/defaults"),
				WithPollInterval(0),
				WithJWTSecret("s3cret"),
				WithAPIKeySHA256("abc"),
				WithLogLevel("debug"),
				WithLogFormat("json"),
			},
			check: func(t *testing.T, cfg *ServerConfig) {
				assert.Equal(t, "9090", cfg.Port)
				assert.Equal(t, "production", cfg.Environment)
				assert.Equal(t, "site-a", cfg.Namespace)
				assert.Equal(t, time.Duration(0), cfg.PollInterval)
				assert.Equal(t, "s3cret", cfg.JWTSecret)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{name: "empty port", opts: []Option{WithPort("")}, wantErr: true},
		{name: "bad store url", opts: []Option{WithStoreURL("mysql://x")}, wantErr: true},
		{name: "negative poll", opts: []Option{WithPollInterval(-time.Second)}, wantErr: true},
		{name: "bad level", opts: []Option{WithLogLevel("loud")}, wantErr: true},
		{name: "bad format", opts: []Option{WithLogFormat("xml")}, wantErr: true},
		{name: "relative remote url", opts: []Option{WithRemoteBaseURL("/defaults")}, wantErr: true},
		{name: "empty namespace", opts: []Option{WithNamespace("")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestParseStoreURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    StoreLocation
		wantErr bool
	}{
		{raw: "", want: StoreLocation{Type: StoreMemory}},
		{raw: "memory://", want: StoreLocation{Type: StoreMemory}},
		{raw: "file:///var/lib/content", want: StoreLocation{Type: StoreFS, Path: "/var/lib/content"}},
		{raw: "file://./data", want: StoreLocation{Type: StoreFS, Path: "./data"}},
		{raw: "redis://localhost:6379/1", want: StoreLocation{Type: StoreRedis, URL: "redis://localhost:6379/1"}},
		{raw: "postgresql://u:p@h/db", want: StoreLocation{Type: StorePostgres, URL: "postgresql://u:p@h/db"}},
		{raw: "sqlite:///tmp/c.db", want: StoreLocation{Type: StoreSQLite, Path: "/tmp/c.db"}},
		{
			raw:  "s3://bucket?endpoint=http://localhost:9000&prefix=site",
			want: StoreLocation{Type: StoreS3, Bucket: "bucket", Region: "us-east-1", Endpoint: "http://localhost:9000", Prefix: "site"},
		},
		{raw: "s3://?region=x", wantErr: true},
		{raw: "sqlite://", wantErr: true},
		{raw: "mysql://localhost/db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStoreURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("SITECONTENT_PORT", "7000")
	t.Setenv("SITECONTENT_STORE_URL", "file:///tmp/site")
	t.Setenv("SITECONTENT_POLL_INTERVAL", "0")
	t.Setenv("SITECONTENT_JWT_SECRET", "env-secret")
	t.Setenv("PORT", "1")

	cfg, err := Load(WithEnv("SITECONTENT_"))
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "file:///tmp/site", cfg.StoreURL)
	assert.Equal(t, time.Duration(0), cfg.PollInterval)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "default", cfg.Namespace, "unset variables keep defaults")
}

func TestWithEnvInvalid(t *testing.T) {
	t.Setenv("SITECONTENT_POLL_INTERVAL", "often")
	_, err := Load(WithEnv("SITECONTENT_"))
	assert.Error(t, err)
}

func TestEnvUsage(t *testing.T) {
	assert.Contains(t, EnvUsage("SITECONTENT_"), "STORE_URL")
}

func TestBuildStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		storeURL  string
		wantStore interface{}
		wantRelay interface{}
	}{
		{name: "memory", storeURL: "memory://", wantStore: &memory.Backend{}, wantRelay: sitecontent.NoopRelay{}},
		{name: "fs", storeURL: "file://" + t.TempDir(), wantStore: &fsstore.Backend{}, wantRelay: &fswatch.Relay{}},
		{name: "redis", storeURL: "redis://" + mr.Addr() + "/0", wantStore: &redisstore.Backend{}, wantRelay: &redisrelay.Relay{}},
		{name: "sqlite", storeURL: "sqlite://" + filepath.Join(t.TempDir(), "c.db"), wantStore: &sqlite.Backend{}, wantRelay: sitecontent.NoopRelay{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(WithStoreURL(tt.storeURL))
			require.NoError(t, err)

			b, err := cfg.BuildStore(ctx, "origin", nil)
			require.NoError(t, err)
			defer b.Cleanup()

			assert.IsType(t, tt.wantStore, b.Store)
			assert.IsType(t, tt.wantRelay, b.Relay)

			require.NoError(t, b.Store.Set(ctx, "k", `{"a":1}`))
			v, err := b.Store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, v)
		})
	}
}

func TestBuildService(t *testing.T) {
	cfg, err := Load(WithPollInterval(0))
	require.NoError(t, err)

	svc, cleanup, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, svc.Documents(), len(documents.Entries()))
	doc, err := svc.Resolve(context.Background(), documents.Home)
	require.NoError(t, err)
	assert.Equal(t, sitecontent.SourceCompiledDefault, doc.SourceTier)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := Load(WithLogFormat("json"), WithLogLevel("warn"))
	require.NoError(t, err)

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "document", "home")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"document":"home"`)

	buf.Reset()
	cfg, err = Load(WithEnvironment("production"))
	require.NoError(t, err)
	cfg.NewLogger(&buf).Info("console", "k", "v")
	assert.Contains(t, buf.String(), "console")
	assert.Contains(t, buf.String(), "k=v")
}
