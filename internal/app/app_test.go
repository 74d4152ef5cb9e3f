package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/synthline/ttscore/internal/app"
	"github.com/synthline/ttscore/internal/config"
	"github.com/synthline/ttscore/pkg/voice"
)

// fakeLoader serves bundles from an in-memory map instead of Postgres.
type fakeLoader struct {
	bundles map[string]*voice.Bundle
}

func (f *fakeLoader) LoadBundle(ctx context.Context, name string) (*voice.Bundle, error) {
	b, ok := f.bundles[name]
	if !ok {
		return nil, fmt.Errorf("fakeLoader: no bundle named %q", name)
	}
	cp := *b
	return &cp, nil
}

func unitSelectionBundle(name string) *voice.Bundle {
	return &voice.Bundle{
		Name:         name,
		Language:     "en",
		PhonesetKind: "english",
		Backend:      voice.BackendUnitSelection,
		DictionaryEntries: []voice.BundleDictEntry{
			{Word: "hi", Phones: []string{"h", "ay"}},
		},
		CatalogueSource: "testdata/does-not-exist.json",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			ListenAddr:  ":0",
			LogLevel:    config.LogInfo,
			PostgresDSN: "unused-because-store-is-injected",
		},
		Voices: []config.VoiceEntry{
			{
				Name:         "lwazi-en",
				Language:     "en",
				PhonesetKind: "english",
				Backend:      config.BackendUnitSelection,
			},
		},
	}
}

func TestNew_NoVoicesConfigured(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Server: config.Server{ListenAddr: ":0"}}
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
	if got := application.Names(); len(got) != 0 {
		t.Errorf("Names() = %v, want empty", got)
	}
}

func TestNew_LoadsConfiguredVoiceFails(t *testing.T) {
	t.Parallel()

	// The configured voice names a catalogue file that does not exist, so
	// BuildVoice should fail and New should surface that as an error
	// rather than silently skipping the voice.
	cfg := testConfig()
	loader := &fakeLoader{bundles: map[string]*voice.Bundle{
		"lwazi-en": unitSelectionBundle("lwazi-en"),
	}}

	_, err := app.New(context.Background(), cfg, app.WithVoiceStore(loader))
	if err == nil {
		t.Fatal("New() with an unreadable catalogue file: expected an error, got nil")
	}
}

func TestNew_MissingBundleFails(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	loader := &fakeLoader{bundles: map[string]*voice.Bundle{}}

	_, err := app.New(context.Background(), cfg, app.WithVoiceStore(loader))
	if err == nil {
		t.Fatal("New() with a missing bundle: expected an error, got nil")
	}
}

func TestNew_RequiresStoreWhenVoicesConfigured(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.PostgresDSN = ""

	_, err := app.New(context.Background(), cfg)
	if err == nil {
		t.Fatal("New() with voices configured and no store: expected an error, got nil")
	}
}

func TestApp_ShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Server: config.Server{ListenAddr: ":0"}}
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() call returned error: %v", err)
	}
}

func TestApp_RunReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Server: config.Server{ListenAddr: "127.0.0.1:0"}}
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}
}
