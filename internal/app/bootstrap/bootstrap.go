package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ballotcoordinator "evoting/contexts/ballot/ballot-coordinator"
	ballotpostgres "evoting/contexts/ballot/ballot-coordinator/adapters/postgres"
	ballotsigner "evoting/contexts/ballot/ballot-coordinator/adapters/signer"
	districtregistry "evoting/contexts/election-control/district-registry"
	districtpostgres "evoting/contexts/election-control/district-registry/adapters/postgres"
	districtsigner "evoting/contexts/election-control/district-registry/adapters/signer"
	districtqueries "evoting/contexts/election-control/district-registry/application/queries"
	phasegate "evoting/contexts/election-control/phase-gate"
	phasepostgres "evoting/contexts/election-control/phase-gate/adapters/postgres"
	accessdecider "evoting/contexts/identity-access/access-decider"
	identitybinder "evoting/contexts/identity-access/identity-binder"
	identitypostgres "evoting/contexts/identity-access/identity-binder/adapters/postgres"
	passkeyceremony "evoting/contexts/identity-access/passkey-ceremony"
	passkeymemory "evoting/contexts/identity-access/passkey-ceremony/adapters/memory"
	passkeypostgres "evoting/contexts/identity-access/passkey-ceremony/adapters/postgres"
	passkeyredis "evoting/contexts/identity-access/passkey-ceremony/adapters/redis"
	passkeywebauthn "evoting/contexts/identity-access/passkey-ceremony/adapters/webauthn"
	passkeyports "evoting/contexts/identity-access/passkey-ceremony/ports"
	staffaccounts "evoting/contexts/identity-access/staff-accounts"
	staffpostgres "evoting/contexts/identity-access/staff-accounts/adapters/postgres"
	staffsigner "evoting/contexts/identity-access/staff-accounts/adapters/signer"
	"evoting/internal/platform/cache"
	"evoting/internal/platform/config"
	"evoting/internal/platform/db"
	"evoting/internal/platform/httpserver"
	"evoting/internal/platform/observability"
	"evoting/internal/platform/passwords"
	"evoting/internal/platform/ringct"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// Runtime is the fully wired set of context modules plus the infrastructure
// handles that must be closed on shutdown.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Modules  httpserver.Modules
	database *db.Database
	redis    *cache.Redis
	signer   *ringct.Client
	tracing  observability.ShutdownFunc
}

// NewLogger builds the process JSON logger at the configured level.
func NewLogger(cfg config.Config, process string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", cfg.ServiceName, "process", process)
}

// Build connects every backing service and wires the context modules.
// Partial failures close whatever was already opened.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	rt.tracing, err = observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	rt.Metrics = observability.NewMetrics(strings.ReplaceAll(cfg.ServiceName, "-", "_"))

	rt.database, err = db.Connect(cfg.DatabaseDriver, databaseDSN(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.SessionBackend == config.SessionBackendRedis {
		rt.redis, err = cache.Connect(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
	}
	rt.signer, err = ringct.NewClient(ringct.Options{
		Target:      cfg.RingCTURL,
		CallTimeout: cfg.SignerCallTimeout,
		Logger:      logger,
		Observer:    rt.Metrics,
	})
	if err != nil {
		return nil, err
	}

	verifier, err := passkeywebauthn.NewVerifier(passkeywebauthn.Config{
		RPID:          cfg.WebAuthnRPID,
		RPDisplayName: cfg.WebAuthnRPDisplayName,
		Origins:       splitOrigins(cfg.WebAuthnOrigin),
	})
	if err != nil {
		return nil, err
	}

	access, err := accessdecider.NewModule(accessdecider.Dependencies{
		Environment:    cfg.Environment,
		LoadTestBypass: cfg.LoadTestBypass,
		LoadTestToken:  cfg.LoadTestToken,
		Metrics:        rt.Metrics,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	rt.Modules = rt.wireModules(verifier, access)
	return rt, nil
}

// wireModules resolves the cross-context cycles: phase-gate finalizes through
// the ballot module built after it, and identity-binder reads districts
// through a query built ahead of the district module.
func (rt *Runtime) wireModules(verifier passkeyports.CeremonyVerifier, access accessdecider.Module) httpserver.Modules {
	cfg := rt.Config
	logger := rt.Logger
	gormDB := rt.database.DB
	clock := systemClock{}

	finalizer := &tallyFinalizer{}
	phaseRepo := phasepostgres.NewRepository(gormDB, logger)
	phases := phasegate.NewModule(phasegate.Dependencies{
		Phases:        phaseRepo,
		Finalizations: phaseRepo,
		Finalizer:     finalizer,
		Metrics:       rt.Metrics,
		Clock:         phasepostgres.SystemClock{},
		IDGen:         phasepostgres.UUIDGenerator{},
		Logger:        logger,
	})

	districtRepo := districtpostgres.NewRepository(gormDB, logger)
	directory := districtqueries.DistrictQueryUseCase{Districts: districtRepo}

	hasher := passwords.Bcrypt{}
	identityRepo := identitypostgres.NewRepository(gormDB, logger)
	identity := identitybinder.NewModule(identitybinder.Dependencies{
		Identities: identityRepo,
		Handles:    identityRepo,
		Bindings:   identityRepo,
		Districts:  directory,
		Hasher:     hasher,
		Clock:      identitypostgres.SystemClock{},
		Logger:     logger,
	})

	districts := districtregistry.NewModule(districtregistry.Dependencies{
		Districts:         districtRepo,
		Phases:            phases.Gate,
		Voters:            districtsigner.NewVoterPoolGenerator(rt.signer),
		Handles:           handleProvisioner{provisioner: identity.Provisioner},
		Clock:             clock,
		DefaultVoterCount: cfg.DefaultVoterCount,
		Logger:            logger,
	})

	ballot := ballotcoordinator.NewModule(ballotcoordinator.Dependencies{
		Tallies:       ballotpostgres.NewRepository(gormDB, logger),
		Signer:        ballotsigner.NewSigner(rt.signer),
		Phases:        phases.Gate,
		Districts:     directory,
		Metrics:       rt.Metrics,
		Clock:         clock,
		SignerTimeout: cfg.SignerCallTimeout,
		Logger:        logger,
	})
	finalizer.finalize = ballot.Finalizer

	credentialRepo := passkeypostgres.NewRepository(gormDB, logger)
	var sessions passkeyports.SessionStore
	var challenges passkeyports.ChallengeStore = credentialRepo
	if rt.redis != nil {
		store := passkeyredis.NewStore(rt.redis.Client, logger)
		sessions = store
		challenges = store
	} else {
		sessions = passkeymemory.NewStore()
	}
	passkeys := passkeyceremony.NewModule(passkeyceremony.Dependencies{
		Sessions:     sessions,
		Challenges:   challenges,
		Credentials:  credentialRepo,
		Verifier:     verifier,
		Metrics:      rt.Metrics,
		Clock:        passkeypostgres.SystemClock{},
		IDGen:        passkeypostgres.UUIDGenerator{},
		SessionTTL:   cfg.SessionTTL,
		ChallengeTTL: cfg.PasskeyChallengeTTL,
		Logger:       logger,
	})

	staff := staffaccounts.NewModule(staffaccounts.Dependencies{
		Accounts:   staffpostgres.NewRepository(gormDB, logger),
		Hasher:     hasher,
		Phases:     phases.Gate,
		Keys:       staffsigner.NewKeyGenerator(rt.signer),
		Candidates: candidateRegistrar{candidates: ballot.Candidates},
		Sessions:   sessionRevoker{revoker: passkeys.Revoker},
		Clock:      clock,
		Logger:     logger,
	})

	return httpserver.Modules{
		Phases:    phases,
		Districts: districts,
		Identity:  identity,
		Staff:     staff,
		Passkeys:  passkeys,
		Access:    access,
		Ballot:    ballot,
	}
}

// Migrate creates or updates every context's tables and seeds the phase
// timeline.
func (rt *Runtime) Migrate(ctx context.Context) error {
	var models []any
	models = append(models, phasepostgres.Models()...)
	models = append(models, districtpostgres.Models()...)
	models = append(models, identitypostgres.Models()...)
	models = append(models, staffpostgres.Models()...)
	models = append(models, passkeypostgres.Models()...)
	models = append(models, ballotpostgres.Models()...)
	if err := rt.database.Migrate(ctx, models...); err != nil {
		return err
	}
	return rt.Modules.Phases.Seed.Execute(ctx)
}

func (rt *Runtime) Close() error {
	var errs []error
	if rt.signer != nil {
		errs = append(errs, rt.signer.Close())
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	if rt.database != nil {
		errs = append(errs, rt.database.Close())
	}
	if rt.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, rt.tracing(ctx))
	}
	return errors.Join(errs...)
}

func databaseDSN(cfg config.Config) string {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return cfg.SQLitePath
	}
	return cfg.PostgresDSN
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

func loadConfig(process string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, NewLogger(cfg, process), nil
}
