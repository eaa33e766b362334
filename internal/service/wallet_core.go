package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/cache"
	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/repository"
	apperrors "github.com/spec-kit/wage-wallet/pkg/util/errorutil"
)

// WalletDependencies bundles what every wallet service needs.
type WalletDependencies struct {
	Store      repository.Store
	Cache      cache.StaffCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Config     config.WalletConfig
	// Now defaults to time.Now; tests inject a fake clock.
	Now func() time.Time
}

type walletCore struct {
	store      repository.Store
	cache      cache.StaffCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.WalletConfig
	now        func() time.Time
}

func newWalletCore(deps WalletDependencies) walletCore {
	core := walletCore{
		store:      deps.Store,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		now:        deps.Now,
	}
	if core.logger == nil {
		core.logger = zap.NewNop()
	}
	if core.now == nil {
		core.now = time.Now
	}
	if core.cfg.SessionTTLMinutes <= 0 {
		core.cfg = config.DefaultWalletConfig()
	}
	return core
}

func (c *walletCore) clock() time.Time {
	return c.now().UTC()
}

// invalidate drops the cached snapshot after a committed mutation.
func (c *walletCore) invalidate(ctx context.Context, staffCode string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, staffCode); err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("staff_code", staffCode), zap.Error(err))
	}
}

func (c *walletCore) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	if err := c.dispatcher.Publish(ctx, event); err != nil {
		c.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (c *walletCore) record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	c.metrics.RecordOperation(operation, outcome)
}

// loadForUpdate locks the staff row or reports it missing.
func loadForUpdate(ctx context.Context, tx repository.Tx, staffCode string) (*domain.StaffRecord, error) {
	rec, err := tx.GetStaffForUpdate(ctx, staffCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("Staff", map[string]any{"staffCode": staffCode})
	}
	return rec, err
}

// requireRedeemer checks that identity may spend from rec. The session check
// runs first so a holder preempted by the new owner of a legacy record sees
// the lost session rather than an ownership error.
func requireRedeemer(rec *domain.StaffRecord, identity string) error {
	if !rec.ActiveSession.HeldBy(identity) {
		return apperrors.NewFailedPrecondition("You must hold the active session to proceed.", nil)
	}
	if !rec.OwnedBy(identity) {
		return apperrors.NewPermissionDenied("Not allowed.")
	}
	return nil
}

func requireIdentity(identity string) error {
	if identity == "" {
		return apperrors.NewUnauthenticated("You must be authenticated.")
	}
	return nil
}

func userActor(identity string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, Identity: identity}
}

func adminActor(identity string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeAdmin, Identity: identity}
}
