package featureflags_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/featureflags"
)

// countingRepo counts loads and can be told to fail.
type countingRepo struct {
	*featureflags.MemoryRepository
	loads atomic.Int32
	fail  atomic.Bool
}

func (r *countingRepo) GetAllFlags(ctx context.Context) (map[string]*featureflags.Flag, error) {
	r.loads.Add(1)
	if r.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return r.MemoryRepository.GetAllFlags(ctx)
}

func newService(repo featureflags.Repository, ttl time.Duration) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   ttl,
	})
}

func TestService_Defaults(t *testing.T) {
	svc := newService(featureflags.NewMemoryRepository(), time.Minute)
	ctx := context.Background()

	for _, d := range featureflags.Definitions() {
		if got := svc.IsEnabled(ctx, d.Key); got != d.Default {
			t.Errorf("%s = %v, want default %v", d.Key, got, d.Default)
		}
	}

	if !svc.IsLocationSearchEnabled(ctx) || !svc.IsCityTableEnabled(ctx) || !svc.IsCoalMapEnabled(ctx) {
		t.Error("page sections are on by default")
	}
	if svc.UseReverseGeocode(ctx) || svc.IsLiveLookupDisabled(ctx) {
		t.Error("live coordinate lookups are the default")
	}
}

func TestService_GetFlag(t *testing.T) {
	svc := newService(featureflags.NewMemoryRepository(), time.Minute)
	ctx := context.Background()

	flag := svc.GetFlag(ctx, featureflags.FlagEnableCoalMap)
	if flag == nil {
		t.Fatal("expected the default flag")
	}
	if flag.Description == "" {
		t.Error("expected the definition description")
	}

	flag.Value = false
	if !svc.IsCoalMapEnabled(ctx) {
		t.Error("mutating a returned flag must not change the service")
	}

	if svc.GetFlag(ctx, "no_such_flag") != nil {
		t.Error("expected nil for an unknown key")
	}
}

func TestService_SetFlagsIsVisibleImmediately(t *testing.T) {
	svc := newService(featureflags.NewMemoryRepository(), time.Hour)
	ctx := context.Background()

	_ = svc.IsLiveLookupDisabled(ctx) // warm the cache

	err := svc.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagUseReverseGeocode, Value: true},
		{Key: featureflags.FlagDisableLiveLookup, Value: true},
	})
	if err != nil {
		t.Fatalf("SetFlags: %v", err)
	}

	if !svc.UseReverseGeocode(ctx) {
		t.Error("expected reverse geocoding after update")
	}
	if !svc.IsLiveLookupDisabled(ctx) {
		t.Error("expected live lookups to be disabled after update")
	}
	if got := svc.GetFlag(ctx, featureflags.FlagUseReverseGeocode).UpdatedAt; got.IsZero() {
		t.Error("expected UpdatedAt to be stamped")
	}
}

func TestService_CachesWholeSet(t *testing.T) {
	repo := &countingRepo{MemoryRepository: featureflags.NewMemoryRepository()}
	svc := newService(repo, time.Hour)
	ctx := context.Background()

	for range 10 {
		svc.IsCityTableEnabled(ctx)
		svc.IsCoalMapEnabled(ctx)
		svc.UseReverseGeocode(ctx)
	}
	if got := repo.loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
}

func TestService_ConcurrentMissesShareOneLoad(t *testing.T) {
	repo := &countingRepo{MemoryRepository: featureflags.NewMemoryRepository()}
	svc := newService(repo, time.Hour)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.IsCoalMapEnabled(context.Background())
		}()
	}
	wg.Wait()

	if got := repo.loads.Load(); got < 1 || got > 20 {
		t.Errorf("loads = %d", got)
	}
	if !svc.IsCoalMapEnabled(context.Background()) {
		t.Error("expected default value")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := &countingRepo{MemoryRepository: featureflags.NewMemoryRepository()}
	svc := newService(repo, time.Hour)
	ctx := context.Background()

	if svc.UseReverseGeocode(ctx) {
		t.Fatal("expected default false")
	}

	// Another instance writes straight to the shared store.
	_ = repo.SetFlags(ctx, []*featureflags.Flag{{Key: featureflags.FlagUseReverseGeocode, Value: true}})
	if svc.UseReverseGeocode(ctx) {
		t.Error("expected the cached value before invalidation")
	}

	svc.InvalidateCache()
	if !svc.UseReverseGeocode(ctx) {
		t.Error("expected the stored value after invalidation")
	}
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := &countingRepo{MemoryRepository: featureflags.NewMemoryRepository(
		&featureflags.Flag{Key: featureflags.FlagEnableCoalMap, Value: false},
	)}
	svc := newService(repo, time.Millisecond)
	ctx := context.Background()

	if svc.IsCoalMapEnabled(ctx) {
		t.Fatal("expected the stored override")
	}

	repo.fail.Store(true)
	time.Sleep(5 * time.Millisecond)
	if svc.IsCoalMapEnabled(ctx) {
		t.Error("expected the last loaded set to be served while the store is down")
	}

	cold := newService(repo, time.Minute)
	if !cold.IsCoalMapEnabled(ctx) {
		t.Error("expected defaults when nothing was ever loaded")
	}
}

func TestService_SetFlagsError(t *testing.T) {
	svc := newService(failingWriter{}, time.Minute)

	err := svc.SetFlag(context.Background(), &featureflags.Flag{Key: featureflags.FlagEnableCoalMap, Value: false})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !svc.IsCoalMapEnabled(context.Background()) {
		t.Error("a failed write must not change the flags")
	}
}

type failingWriter struct{}

func (failingWriter) GetAllFlags(context.Context) (map[string]*featureflags.Flag, error) {
	return map[string]*featureflags.Flag{}, nil
}

func (failingWriter) SetFlags(context.Context, []*featureflags.Flag) error {
	return errors.New("read-only transaction")
}

func TestFlag_BoolValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		fallback bool
		want     bool
	}{
		{"true", true, false, true},
		{"false", false, true, false},
		{"non-zero number", float64(1), false, true},
		{"zero", float64(0), true, false},
		{"string true", "true", false, true},
		{"string 0", "0", true, false},
		{"unparseable string", "maybe", true, true},
		{"object", map[string]any{"on": true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &featureflags.Flag{Key: "test", Value: tt.value}
			if got := f.BoolValue(tt.fallback); got != tt.want {
				t.Errorf("BoolValue(%v) = %v, want %v", tt.fallback, got, tt.want)
			}
		})
	}

	var missing *featureflags.Flag
	if !missing.BoolValue(true) {
		t.Error("expected fallback for a nil flag")
	}
}

func TestLookup(t *testing.T) {
	d, ok := featureflags.Lookup(featureflags.FlagDisableLiveLookup)
	if !ok || d.Default {
		t.Errorf("Lookup(%q) = %+v, %v", featureflags.FlagDisableLiveLookup, d, ok)
	}
	if _, ok := featureflags.Lookup("enable_everything"); ok {
		t.Error("expected unknown key")
	}
	if len(featureflags.DefaultFlags()) != len(featureflags.Definitions()) {
		t.Error("every definition has a default")
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := featureflags.NewMemoryRepository(&featureflags.Flag{Key: featureflags.FlagEnableCityTable, Value: true})
	ctx := context.Background()

	all, _ := repo.GetAllFlags(ctx)
	all[featureflags.FlagEnableCityTable].Value = false

	again, _ := repo.GetAllFlags(ctx)
	if !again[featureflags.FlagEnableCityTable].BoolValue(false) {
		t.Error("mutating a returned flag must not change the repository")
	}
}
