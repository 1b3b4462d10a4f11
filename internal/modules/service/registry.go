// Package service implements the module registry: the per-tenant
// install / disable / remove state machine for optional feature packages.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"hearth/internal/modules/metrics"
	"hearth/internal/modules/models"
	"hearth/internal/platform/tracer"
	"hearth/internal/sentinel"
	"hearth/internal/session"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	txcontext "hearth/pkg/platform/tx"
)

type DefinitionStore interface {
	Create(ctx context.Context, d *models.Definition) error
	FindByID(ctx context.Context, moduleID id.ModuleID) (*models.Definition, error)
	SetActive(ctx context.Context, moduleID id.ModuleID, active bool, now time.Time) error
	List(ctx context.Context) ([]*models.Definition, error)
}

// InstallationStore is always addressed by tenant; there is no unscoped read.
type InstallationStore interface {
	Create(ctx context.Context, inst *models.Installation) error
	Find(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error)
	UpdateIfEnabled(ctx context.Context, inst *models.Installation, wasEnabled bool) error
	Delete(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) error
	ListByTenant(ctx context.Context, tenantID id.TenantID, includeDisabled bool) ([]*models.Installation, error)
}

// EnabledCache holds each tenant's enabled-module set. Get reports the
// tenant's current version on a miss; Set stores a set under that version and
// Invalidate moves the version on, so sets read before it are never hits.
type EnabledCache interface {
	Get(ctx context.Context, tenantID id.TenantID) (modules []id.ModuleID, version int64, hit bool, err error)
	Set(ctx context.Context, tenantID id.TenantID, version int64, modules []id.ModuleID) error
	Invalidate(ctx context.Context, tenantID id.TenantID) error
}

type Registry struct {
	definitions   DefinitionStore
	installations InstallationStore
	cache         EnabledCache
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
	tx            txcontext.Runner
	now           func() time.Time
}

func NewRegistry(definitions DefinitionStore, installations InstallationStore, opts ...Option) *Registry {
	cfg := &registryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewInMemory()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.tracer == nil {
		cfg.tracer = tracer.NewNoop()
	}
	return &Registry{
		definitions:   definitions,
		installations: installations,
		cache:         cfg.cache,
		logger:        cfg.logger,
		metrics:       cfg.metrics,
		tracer:        cfg.tracer,
		tx:            cfg.tx,
		now:           cfg.now,
	}
}

// Install enables moduleID for tenantID. A first install creates the row; a
// disabled installation is re-enabled with its settings replaced by settings.
func (r *Registry) Install(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID, settings id.Settings) (*models.Installation, error) {
	if err := sess.RequireManager(tenantID); err != nil {
		return nil, err
	}
	ctx, span := r.startMutation(ctx, "install", moduleID)

	var (
		result     *models.Installation
		transition string
	)
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		def, err := r.definitions.FindByID(txCtx, moduleID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrModuleNotFound
			}
			return storageErr(err)
		}

		existing, err := r.installations.Find(txCtx, tenantID, moduleID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			existing = nil
		case err != nil:
			return storageErr(err)
		case existing.Enabled:
			return models.ErrAlreadyInstalled
		}
		// The kill switch only blocks new rows and re-enabling disabled ones.
		if !def.IsActive {
			return models.ErrNotActive
		}

		now := r.now().UTC()
		if existing == nil {
			inst, err := models.NewInstallation(tenantID, moduleID, settings, now)
			if err != nil {
				return err
			}
			if err := r.installations.Create(txCtx, inst); err != nil {
				switch {
				case errors.Is(err, sentinel.ErrAlreadyUsed):
					return models.ErrAlreadyInstalled
				case errors.Is(err, sentinel.ErrNotFound):
					return models.ErrModuleNotFound
				}
				return storageErr(err)
			}
			result, transition = inst, "install"
			return nil
		}

		if err := existing.Reinstall(settings, now); err != nil {
			return err
		}
		if err := r.installations.UpdateIfEnabled(txCtx, existing, false); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrInvalidState):
				return models.ErrAlreadyInstalled
			case errors.Is(err, sentinel.ErrNotFound):
				return models.ErrNotInstalled
			}
			return storageErr(err)
		}
		result, transition = existing, "reinstall"
		return nil
	})
	span.End(err)
	if err != nil {
		r.rejected(ctx, "install", tenantID, moduleID, err)
		return nil, err
	}

	r.invalidate(ctx, tenantID)
	r.transitioned(ctx, transition, sess, tenantID, moduleID)
	return result.Clone(), nil
}

// Uninstall disables moduleID for tenantID, keeping its settings, or deletes
// the installation outright when hardDelete is set.
func (r *Registry) Uninstall(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID, hardDelete bool) error {
	if err := sess.RequireManager(tenantID); err != nil {
		return err
	}
	op := "disable"
	if hardDelete {
		op = "remove"
	}
	ctx, span := r.startMutation(ctx, op, moduleID)

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := r.installations.Find(txCtx, tenantID, moduleID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrNotInstalled
			}
			return storageErr(err)
		}

		if hardDelete {
			if err := r.installations.Delete(txCtx, tenantID, moduleID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return models.ErrNotInstalled
				}
				return storageErr(err)
			}
			return nil
		}

		if err := existing.Disable(r.now().UTC()); err != nil {
			return err
		}
		if err := r.installations.UpdateIfEnabled(txCtx, existing, true); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrInvalidState):
				return models.ErrAlreadyDisabled
			case errors.Is(err, sentinel.ErrNotFound):
				return models.ErrNotInstalled
			}
			return storageErr(err)
		}
		return nil
	})
	span.End(err)
	if err != nil {
		r.rejected(ctx, op, tenantID, moduleID, err)
		return err
	}

	r.invalidate(ctx, tenantID)
	r.transitioned(ctx, op, sess, tenantID, moduleID)
	return nil
}

// IsEnabled reports whether moduleID is installed and enabled for tenantID.
func (r *Registry) IsEnabled(ctx context.Context, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID) (bool, error) {
	if err := sess.RequireMember(tenantID); err != nil {
		return false, err
	}
	ctx, span := r.tracer.Start(ctx, tracer.SpanRegistryLookup,
		tracer.String(tracer.AttrModuleID, moduleID.String()),
	)

	enabled, hit, err := r.enabledModules(ctx, tenantID)
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, hit))
	span.End(err)
	if err != nil {
		return false, err
	}
	return slices.Contains(enabled, moduleID), nil
}

// ListInstalled returns the tenant's installations, enabled ones only unless
// includeDisabled is set.
func (r *Registry) ListInstalled(ctx context.Context, sess *session.Context, tenantID id.TenantID, includeDisabled bool) ([]*models.Installation, error) {
	if err := sess.RequireMember(tenantID); err != nil {
		return nil, err
	}
	out, err := r.installations.ListByTenant(ctx, tenantID, includeDisabled)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// RegisterDefinition adds a new, active module definition.
func (r *Registry) RegisterDefinition(ctx context.Context, moduleID id.ModuleID, name, version string) (*models.Definition, error) {
	def, err := models.NewDefinition(moduleID, name, version, r.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := r.definitions.Create(ctx, def); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "module already registered")
		}
		return nil, storageErr(err)
	}
	r.logger.InfoContext(ctx, "module definition registered",
		"module_id", def.ID,
		"version", def.Version,
	)
	return def, nil
}

// SetDefinitionActive flips the global kill switch. Existing installations
// are not touched; an inactive module only refuses new installs.
func (r *Registry) SetDefinitionActive(ctx context.Context, moduleID id.ModuleID, active bool) error {
	if err := r.definitions.SetActive(ctx, moduleID, active, r.now().UTC()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.ErrModuleNotFound
		}
		return storageErr(err)
	}
	r.logger.InfoContext(ctx, "module definition toggled",
		"module_id", moduleID,
		"active", active,
	)
	return nil
}

func (r *Registry) ListDefinitions(ctx context.Context) ([]*models.Definition, error) {
	defs, err := r.definitions.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return defs, nil
}

// enabledModules reads through the cache. Cache failures fall back to the
// store. The set is written back tagged with the version seen on the miss, so
// a read that raced a mutation's invalidation is never served.
func (r *Registry) enabledModules(ctx context.Context, tenantID id.TenantID) ([]id.ModuleID, bool, error) {
	var (
		version  int64
		writable bool
	)
	if r.cache != nil {
		modules, v, hit, err := r.cache.Get(ctx, tenantID)
		switch {
		case err != nil:
			r.cacheResult("error")
			r.logger.WarnContext(ctx, "enabled module cache read failed",
				"tenant_id", tenantID,
				"error", err,
			)
		case hit:
			r.cacheResult("hit")
			return modules, true, nil
		default:
			r.cacheResult("miss")
			version, writable = v, true
		}
	}

	rows, err := r.installations.ListByTenant(ctx, tenantID, false)
	if err != nil {
		return nil, false, storageErr(err)
	}
	modules := make([]id.ModuleID, 0, len(rows))
	for _, inst := range rows {
		modules = append(modules, inst.ModuleID)
	}

	if writable {
		if err := r.cache.Set(ctx, tenantID, version, modules); err != nil {
			r.logger.WarnContext(ctx, "enabled module cache write failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}
	return modules, false, nil
}

func (r *Registry) cacheResult(result string) {
	if r.metrics != nil {
		r.metrics.IncCache(result)
	}
}

func (r *Registry) invalidate(ctx context.Context, tenantID id.TenantID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, tenantID); err != nil {
		r.logger.ErrorContext(ctx, "enabled module cache invalidation failed",
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

func (r *Registry) startMutation(ctx context.Context, op string, moduleID id.ModuleID) (context.Context, tracer.Span) {
	return r.tracer.Start(ctx, tracer.SpanRegistryMutate,
		tracer.String(tracer.AttrAction, op),
		tracer.String(tracer.AttrModuleID, moduleID.String()),
	)
}

func (r *Registry) transitioned(ctx context.Context, transition string, sess *session.Context, tenantID id.TenantID, moduleID id.ModuleID) {
	if r.metrics != nil {
		r.metrics.IncTransition(transition)
	}
	r.logger.InfoContext(ctx, "module installation changed",
		"transition", transition,
		"tenant_id", tenantID,
		"module_id", moduleID,
		"user_id", sess.UserID,
	)
}

func (r *Registry) rejected(ctx context.Context, op string, tenantID id.TenantID, moduleID id.ModuleID, err error) {
	level := slog.LevelInfo
	if dErrors.HasCode(err, dErrors.CodePersistence) {
		level = slog.LevelError
	} else if r.metrics != nil {
		r.metrics.IncRejection(op)
	}
	r.logger.Log(ctx, level, "module installation change rejected",
		"operation", op,
		"tenant_id", tenantID,
		"module_id", moduleID,
		"error", err,
	)
}

func storageErr(err error) error {
	return dErrors.Wrap(err, dErrors.CodePersistence, "module registry storage failed")
}
