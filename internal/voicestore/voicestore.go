package voicestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/pkg/engine"
	"github.com/synthline/ttscore/pkg/phoneset"
	"github.com/synthline/ttscore/pkg/unitselect"
	"github.com/synthline/ttscore/pkg/uttproc"
	"github.com/synthline/ttscore/pkg/voice"
)

// Store is the PostgreSQL-backed voice bundle store. All methods are
// safe for concurrent use; the pool itself serializes access.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, runs [Migrate], and returns a ready Store.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("voicestore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("voicestore: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping reports whether the database is reachable. Used by the readiness
// probe.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// SaveBundle upserts bundle under its own Name.
func (s *Store) SaveBundle(ctx context.Context, bundle *voice.Bundle) error {
	blob, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("voicestore: marshal bundle %q: %w", bundle.Name, err)
	}
	const q = `
		INSERT INTO voice_bundles (name, phoneset_kind, bundle, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET phoneset_kind = EXCLUDED.phoneset_kind,
		    bundle        = EXCLUDED.bundle,
		    updated_at    = now()`
	if _, err := s.pool.Exec(ctx, q, bundle.Name, bundle.PhonesetKind, blob); err != nil {
		return fmt.Errorf("voicestore: save bundle %q: %w", bundle.Name, err)
	}
	return nil
}

// LoadBundle fetches the jsonb blob for name and decodes it back into a
// [voice.Bundle]. The returned bundle is self-contained: it holds no
// reference to logging sinks, pools, or any other mutable process state.
func (s *Store) LoadBundle(ctx context.Context, name string) (*voice.Bundle, error) {
	const q = `SELECT bundle FROM voice_bundles WHERE name = $1`
	var blob []byte
	if err := s.pool.QueryRow(ctx, q, name).Scan(&blob); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("voicestore: no bundle named %q", name)
		}
		return nil, fmt.Errorf("voicestore: load bundle %q: %w", name, err)
	}
	bundle := &voice.Bundle{}
	if err := json.Unmarshal(blob, bundle); err != nil {
		return nil, fmt.Errorf("voicestore: decode bundle %q: %w", name, err)
	}
	return bundle, nil
}

// ListNames returns every bundle name in the store.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM voice_bundles ORDER BY name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("voicestore: list names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("voicestore: scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// BuildPhoneset returns the built-in phoneset named by kind. A voice
// bundle naming any other kind fails to load.
func BuildPhoneset(kind string) (phoneset.Set, error) {
	switch kind {
	case "english":
		return phoneset.NewEnglish(), nil
	case "zulu":
		return phoneset.NewZulu(), nil
	default:
		return nil, fmt.Errorf("voicestore: unknown phoneset kind %q", kind)
	}
}

// BuildVoice reconstructs a *[voice.Voice] from bundle: phoneset,
// front-end resources, label builder, and whichever synthesis back
// end(s) the bundle's backend and fallback list name. The catalogue file
// and engine binary are only required when some named back end needs
// them.
func BuildVoice(ctx context.Context, bundle *voice.Bundle, metrics *observe.Metrics) (*voice.Voice, error) {
	ps, err := BuildPhoneset(bundle.PhonesetKind)
	if err != nil {
		return nil, fmt.Errorf("voicestore: build voice %q: %w", bundle.Name, err)
	}

	resources := &uttproc.Resources{
		Phoneset:            ps,
		Addendum:            bundle.Addendum,
		Dict:                bundle.BuildDictionary(),
		RawMap:              bundle.RawMap,
		G2P:                 bundle.BuildG2P(),
		Ligatures:           bundle.Ligatures,
		PhrasingPunctuation: bundle.PhrasingPunctuation,
		PhraseConjunctions:  bundle.BuildPhraseConjunctions(),
		DefaultLanguage:     bundle.DefaultLanguage,
	}

	cfg := voice.Config{
		Name:             bundle.Name,
		Language:         bundle.Language,
		Phoneset:         ps,
		Resources:        resources,
		LabelBuilder:     bundle.BuildLabelBuilder(ps),
		Backend:          bundle.Backend,
		Pruning:          bundle.Pruning,
		EngineParams:     bundle.EngineParams,
		FallbackBackends: bundle.FallbackBackends,
		Metrics:          metrics,
	}

	needsCatalogue := bundle.Backend == voice.BackendUnitSelection
	needsEngine := bundle.Backend == voice.BackendParametric
	for _, fb := range bundle.FallbackBackends {
		needsCatalogue = needsCatalogue || fb == voice.BackendUnitSelection
		needsEngine = needsEngine || fb == voice.BackendParametric
	}

	if needsCatalogue {
		cat, err := loadCatalogueFile(bundle.CatalogueSource)
		if err != nil {
			return nil, fmt.Errorf("voicestore: build voice %q: %w", bundle.Name, err)
		}
		cfg.Catalogue = cat
	}
	if needsEngine {
		if bundle.EngineBinary == "" {
			return nil, fmt.Errorf("voicestore: build voice %q: parametric backend requires engine_binary", bundle.Name)
		}
		cfg.Engine = engine.NewDriver(bundle.EngineBinary, engine.DefaultParams(bundle.EngineModelsDir), metrics)
	}

	return voice.NewVoice(cfg)
}

func loadCatalogueFile(path string) (unitselect.Catalogue, error) {
	if path == "" {
		return nil, fmt.Errorf("catalogue_source is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue %q: %w", path, err)
	}
	defer f.Close()
	return unitselect.LoadCatalogue(f)
}
