package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/habhabhabs/aws-inventag/internal/discovery/services"
	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/safety"
	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
	"github.com/habhabhabs/aws-inventag/internal/telemetry"
	"github.com/habhabhabs/aws-inventag/internal/utils/retry"
)

// Engine runs discovery units for a single account session. Units never
// raise; every failure mode collapses to an empty result plus a warning.
type Engine struct {
	deps      services.Deps
	opts      Options
	registry  map[string]*ServiceMapper
	shared    *SharedState
	accountID string
	log       logger.Logger
	metrics   *telemetry.Metrics
	limiter   *rate.Limiter

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker

	// bucketRegions caches per-resource location lookups for the process
	bucketRegions sync.Map
}

// New creates an engine over an authenticated session. The shared state
// is owned by the run and may span several engines.
func New(deps services.Deps, accountID string, opts Options, shared *SharedState, log logger.Logger, metrics *telemetry.Metrics) *Engine {
	if shared == nil {
		shared = NewSharedState()
	}
	if log == nil {
		log = logger.Nop()
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Engine{
		deps:      deps,
		opts:      opts,
		registry:  Registry(),
		shared:    shared,
		accountID: accountID,
		log:       log.WithFields(logger.F("account_id", accountID)),
		metrics:   metrics,
		limiter:   rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Discover enumerates the given services across the given regions. Global
// services are issued once against the canonical global region. The result
// covers the primary listing pass plus predicted dependents, deduplicated
// with real records winning.
func (e *Engine) Discover(ctx context.Context, serviceNames, regions []string) ([]models.Resource, []string) {
	type unit struct {
		mapper *ServiceMapper
		region string
	}
	var units []unit
	var warnings []string

	for _, name := range serviceNames {
		mapper, ok := e.registry[strings.ToUpper(name)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: no mapper and no catalog entry, skipped", name))
			continue
		}
		if !mapper.RegionDependent {
			units = append(units, unit{mapper: mapper, region: models.GlobalRegion})
			continue
		}
		for _, region := range regions {
			units = append(units, unit{mapper: mapper, region: region})
		}
	}

	var (
		mu      sync.Mutex
		records []models.Resource
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.MaxWorkers)
	for _, u := range units {
		u := u
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			result := e.discoverUnit(groupCtx, u.mapper, u.region)
			mu.Lock()
			records = append(records, result.Resources...)
			warnings = append(warnings, result.Warnings...)
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; the group exists for the limit and the
	// derived cancellation context.
	_ = group.Wait()

	if ctx.Err() != nil {
		return nil, warnings
	}

	records = append(records, Predict(records)...)
	records = Dedupe(records)
	return records, warnings
}

// discoverUnit runs one (service, region) unit to completion. A panic
// anywhere below, a lister or the SDK included, is converted into a
// warning with an empty result; units never unwind into the pool.
func (e *Engine) discoverUnit(ctx context.Context, mapper *ServiceMapper, region string) (result UnitResult) {
	started := time.Now()
	result = UnitResult{Service: mapper.Service, Region: region}
	log := e.log.WithFields(logger.F("service", mapper.Service), logger.F("region", region))

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.FromPanic(r).WithUnit(mapper.Service, region)
			log.WithError(err).Error("unit panicked",
				logger.F("stack", err.Details["stack"]))
			result = UnitResult{
				Service:  mapper.Service,
				Region:   region,
				Warnings: []string{fmt.Sprintf("%s/%s: %v", mapper.Service, region, err)},
				Duration: time.Since(started),
			}
		}
	}()

	if e.shared.Failed(mapper.Service) {
		return result
	}

	for _, op := range e.orderedOperations(mapper) {
		if ctx.Err() != nil {
			return result
		}
		if !safety.IsReadOnly(op.Name) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s/%s: operation %s is not read-only, refused", mapper.Service, region, op.Name))
			continue
		}

		items, err := e.callOperation(ctx, mapper.Service, op, region)
		if err != nil {
			switch {
			case apperrors.IsKind(err, apperrors.KindCancelled):
				return result
			case retry.IsAccessDenied(err):
				// Listing permissions are identity-scoped, not
				// region-scoped; remaining units for this service
				// would hit the same denial.
				e.shared.MarkFailed(mapper.Service)
				e.metrics.APIError(mapper.Service, "permission_denied")
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s/%s: access denied for %s", mapper.Service, region, op.Name))
				log.Warn("access denied", logger.F("operation", op.Name))
				return result
			default:
				e.metrics.APIError(mapper.Service, "transient")
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s/%s: %s failed: %v", mapper.Service, region, op.Name, err))
				log.WithError(err).Warn("operation failed", logger.F("operation", op.Name))
				continue
			}
		}
		if len(items) == 0 {
			continue
		}

		// First non-empty response wins; later units for this service
		// start from this operation.
		e.shared.RecordSuccess(mapper.Service, op.Name)
		result.Resources = e.normalizeUnit(ctx, mapper, op.Name, region, items, &result)
		break
	}

	e.metrics.Discovered(mapper.Service, len(result.Resources))
	result.Duration = time.Since(started)
	log.Debug("unit finished",
		logger.F("resources", len(result.Resources)),
		logger.F("duration", result.Duration.String()))
	return result
}

// orderedOperations puts the known-good operation first when one exists
func (e *Engine) orderedOperations(mapper *ServiceMapper) []services.Operation {
	known, ok := e.shared.SuccessfulOperation(mapper.Service)
	if !ok {
		return mapper.Operations
	}
	ordered := make([]services.Operation, 0, len(mapper.Operations))
	for _, op := range mapper.Operations {
		if op.Name == known {
			ordered = append(ordered, op)
		}
	}
	for _, op := range mapper.Operations {
		if op.Name != known {
			ordered = append(ordered, op)
		}
	}
	return ordered
}

func (e *Engine) callOperation(ctx context.Context, service string, op services.Operation, region string) ([]map[string]any, error) {
	breaker := e.breakerFor(service + ":" + op.Name)
	out, err := breaker.Execute(func() (any, error) {
		attempt := 0
		return retry.DoWithResult(ctx, e.opts.Retry, func() ([]map[string]any, error) {
			if attempt > 0 {
				e.metrics.Retry(service)
			}
			attempt++
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, apperrors.Wrap(apperrors.KindCancelled, "rate limit wait cancelled", err)
			}
			e.metrics.APICall(service, op.Name)
			return op.Call(ctx, e.deps, region, e.opts.PageCap)
		})
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.New(apperrors.KindThrottled, "circuit breaker open").
				WithUnit(service, region)
		}
		return nil, err
	}
	return out.([]map[string]any), nil
}

// breakerFor returns the breaker for a (service, operation) key
func (e *Engine) breakerFor(key string) *gobreaker.CircuitBreaker {
	e.breakerMu.Lock()
	defer e.breakerMu.Unlock()
	if breaker, ok := e.breakers[key]; ok {
		return breaker
	}
	threshold := uint32(e.opts.BreakerThreshold)
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    key,
		Timeout: e.opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				e.metrics.BreakerOpen(name)
				e.log.Warn("circuit breaker opened", logger.F("service", name))
			}
		},
	})
	e.breakers[key] = breaker
	return breaker
}

// normalizeUnit converts raw items to records, applies the managed filter,
// runs region detection when required, and deduplicates within the unit.
func (e *Engine) normalizeUnit(ctx context.Context, mapper *ServiceMapper, operation, region string, items []map[string]any, result *UnitResult) []models.Resource {
	records := make([]models.Resource, 0, len(items))
	filtered := 0
	for _, payload := range items {
		record, ok := normalizeItem(payload, mapper, operation, region, e.accountID)
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s/%s: item without extractable id dropped", mapper.Service, region))
			continue
		}
		if IsManaged(mapper, record.ResourceID, record.Name, payload) {
			filtered++
			continue
		}
		if mapper.RequiresRegionDetection {
			e.detectRegion(ctx, &record, result)
		}
		records = append(records, record)
	}
	e.metrics.Filtered(mapper.Service, filtered)
	return Dedupe(records)
}

// detectRegion resolves the true home region of a globally listed resource
// and caches the lookup for the process.
func (e *Engine) detectRegion(ctx context.Context, record *models.Resource, result *UnitResult) {
	if cached, ok := e.bucketRegions.Load(record.ResourceID); ok {
		record.Region = cached.(string)
		return
	}
	region, err := services.BucketRegion(ctx, e.deps, record.ResourceID)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: region detection failed for %s, keeping %s", record.Service, record.ResourceID, record.Region))
		return
	}
	e.bucketRegions.Store(record.ResourceID, region)
	record.Region = region
}
