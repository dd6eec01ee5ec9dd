package platform

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/internal/service"
)

func TestOpenStores(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name       string
		cfg        config.Config
		wantChecks []string
	}{
		{
			name: "memory",
			cfg:  config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}},
		},
		{
			name: "sqlite",
			cfg: config.Config{
				Store:  config.StoreConfig{Backend: config.StoreSQLite},
				SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db")},
			},
			wantChecks: []string{"database"},
		},
		{
			name: "redis",
			cfg: config.Config{
				Store: config.StoreConfig{Backend: config.StoreRedis},
				Redis: config.RedisConfig{Host: mr.Host(), Port: mr.Port(), KeyPrefix: "test"},
			},
			wantChecks: []string{"redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend, err := OpenStores(ctx, &tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, backend.Close()) })

			assert.Equal(t, tt.name, backend.Name)
			for _, name := range tt.wantChecks {
				require.Contains(t, backend.Checks, name)
				assert.NoError(t, backend.Checks[name].Ping(ctx))
			}

			require.NoError(t, backend.Stores.Profiles.Put(ctx, "alice", domain.UserProfile{Identity: "alice", Name: "Alice"}))
			got, err := backend.Stores.Profiles.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "Alice", got.Name)
		})
	}
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	_, err := OpenStores(context.Background(), &config.Config{Store: config.StoreConfig{Backend: "etcd"}})
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestOpenStores_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err = OpenStores(context.Background(), &config.Config{
		Store: config.StoreConfig{Backend: config.StoreRedis},
		Redis: config.RedisConfig{Host: host, Port: port},
	})
	assert.ErrorContains(t, err, "connect redis")
}

func TestNewLedger(t *testing.T) {
	tests := []struct {
		name string
		rail string
		want interface{}
	}{
		{name: "noop rail", rail: config.RailNoop, want: service.NoopRail{}},
		{name: "profile rail", rail: config.RailProfile, want: &service.ProfileRail{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Store:    config.StoreConfig{Backend: config.StoreMemory},
				Business: config.BusinessConfig{RateBasis: 100, PaymentRail: tt.rail, StrictRegistration: true},
			}
			backend, err := OpenStores(context.Background(), cfg)
			require.NoError(t, err)

			svc := NewLedger(cfg, backend, identity.ContextProvider{})
			assert.IsType(t, tt.want, svc.Rail)
			assert.True(t, svc.StrictRegistration)

			_, err = svc.RegisterUser(identity.WithCaller(context.Background(), "alice"), "Alice")
			require.NoError(t, err)
			profile, err := backend.Stores.Profiles.Get(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, "Alice", profile.Name)
		})
	}
}
