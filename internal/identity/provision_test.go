package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator returns a fixed sequence and records how often it ran
type countingGenerator struct {
	ids   []string
	calls int
	err   error
}

func (g *countingGenerator) Generate() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	id := g.ids[g.calls%len(g.ids)]
	g.calls++
	return id, nil
}

// failingStore wraps a store and injects errors
type failingStore struct {
	Store
	loadErr error
	saveErr error
}

func (s *failingStore) Load(ctx context.Context) (*Record, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.Store.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, rec Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, rec)
}

func newTestProvisioner(t *testing.T, gen Generator) (*Provisioner, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	fixed := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	return &Provisioner{
		Store:     store,
		Generator: gen,
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return fixed },
	}, store
}

func TestProvisioner_EnsureGeneratesThenReuses(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{ids: []string{"aaaa11112222", "bbbb33334444"}}
	p, store := newTestProvisioner(t, gen)

	first, err := p.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Generated, first.Outcome)
	assert.Equal(t, "aaaa11112222", first.Record.Identity)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, first.Record.Identity, persisted.Identity)

	second, err := p.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reused, second.Outcome)
	assert.Equal(t, first.Record.Identity, second.Record.Identity)
	assert.Equal(t, 1, gen.calls, "generator must not run when an identity is persisted")
}

func TestProvisioner_EnsureUsesExistingRecord(t *testing.T) {
	ctx := context.Background()
	gen := &countingGenerator{ids: []string{"never"}}
	p, store := newTestProvisioner(t, gen)

	require.NoError(t, store.Save(ctx, NewRecord("existing", time.Now())))

	res, err := p.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reused, res.Outcome)
	assert.Equal(t, "existing", res.Record.Identity)
	assert.Zero(t, gen.calls)
}

func TestProvisioner_Regenerate(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvisioner(t, NewRandomGenerator())

	first, err := p.Ensure(ctx)
	require.NoError(t, err)

	regen, err := p.Regenerate(ctx)
	require.NoError(t, err)
	assert.Equal(t, Generated, regen.Outcome)
	assert.NotEqual(t, first.Record.Identity, regen.Record.Identity)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, regen.Record.Identity, persisted.Identity)
}

func TestProvisioner_RegenerateWithoutExistingRecord(t *testing.T) {
	p, _ := newTestProvisioner(t, &countingGenerator{ids: []string{"fresh"}})

	res, err := p.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Generated, res.Outcome)
	assert.Equal(t, "fresh", res.Record.Identity)
	assert.Equal(t, "Thu Oct 15 08:00:00 UTC 2026", res.Record.Created())
}

func TestProvisioner_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt store propagates", func(t *testing.T) {
		p, store := newTestProvisioner(t, &countingGenerator{ids: []string{"x"}})
		corrupt := &StoreCorruptError{Location: "test", Cause: errors.New("bad")}
		p.Store = &failingStore{Store: store, loadErr: corrupt}

		_, err := p.Ensure(ctx)
		require.Error(t, err)
		assert.True(t, IsStoreCorrupt(err))
	})

	t.Run("generator failure", func(t *testing.T) {
		p, _ := newTestProvisioner(t, &countingGenerator{err: errors.New("no entropy")})

		_, err := p.Ensure(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to generate identity")
	})

	t.Run("save failure", func(t *testing.T) {
		p, store := newTestProvisioner(t, &countingGenerator{ids: []string{"x"}})
		p.Store = &failingStore{Store: store, saveErr: errors.New("disk full")}

		_, err := p.Ensure(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to persist identity")
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "reused", Reused.String())
	assert.Equal(t, "generated", Generated.String())
	assert.Equal(t, "Outcome(7)", Outcome(7).String())
}
