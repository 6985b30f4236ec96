package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Outcome tells callers which path the provisioning machine took.
type Outcome int

const (
	// Reused means a persisted record was found and returned unchanged.
	Reused Outcome = iota
	// Generated means a new identity was generated and persisted.
	Generated
)

func (o Outcome) String() string {
	switch o {
	case Reused:
		return "reused"
	case Generated:
		return "generated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the record held by the store after provisioning.
type Result struct {
	Record  Record
	Outcome Outcome
}

// state is a position in the provisioning machine:
// noIdentity -> generated -> persisted, or load -> persisted directly.
type state int

const (
	stateLoad state = iota
	stateNoIdentity
	stateGenerated
	statePersisted
)

// Provisioner ensures a workspace has exactly one persisted identity.
type Provisioner struct {
	Store     Store
	Generator Generator
	Log       zerolog.Logger

	// Now stamps new records. Nil means time.Now.
	Now func() time.Time
}

// NewProvisioner wires a provisioner with the default random generator.
func NewProvisioner(store Store, log zerolog.Logger) *Provisioner {
	return &Provisioner{
		Store:     store,
		Generator: NewRandomGenerator(),
		Log:       log,
	}
}

// Ensure returns the persisted identity, generating and saving one only
// when the store holds none. Repeated calls against an unchanged store
// return the same identity with outcome Reused.
func (p *Provisioner) Ensure(ctx context.Context) (Result, error) {
	return p.run(ctx, stateLoad)
}

// Regenerate clears the store and provisions a fresh identity.
func (p *Provisioner) Regenerate(ctx context.Context) (Result, error) {
	if err := p.Store.Clear(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to clear identity: %w", err)
	}
	p.Log.Debug().Str("store", p.Store.Location()).Msg("identity cleared")
	return p.run(ctx, stateNoIdentity)
}

func (p *Provisioner) run(ctx context.Context, st state) (Result, error) {
	var rec Record
	outcome := Reused

	for st != statePersisted {
		switch st {
		case stateLoad:
			loaded, err := p.Store.Load(ctx)
			if err != nil {
				return Result{}, err
			}
			if loaded == nil {
				st = stateNoIdentity
				continue
			}
			rec = *loaded
			st = statePersisted
			p.Log.Debug().Str("identity", rec.Identity).Msg("reusing persisted identity")

		case stateNoIdentity:
			id, err := p.Generator.Generate()
			if err != nil {
				return Result{}, fmt.Errorf("failed to generate identity: %w", err)
			}
			rec = NewRecord(id, p.now())
			outcome = Generated
			st = stateGenerated

		case stateGenerated:
			if err := p.Store.Save(ctx, rec); err != nil {
				return Result{}, fmt.Errorf("failed to persist identity: %w", err)
			}
			st = statePersisted
			p.Log.Debug().Str("identity", rec.Identity).Str("store", p.Store.Location()).Msg("persisted new identity")
		}
	}

	return Result{Record: rec, Outcome: outcome}, nil
}

func (p *Provisioner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
