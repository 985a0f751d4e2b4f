// Package orchestrator fans discovery out across accounts, isolates
// per-account failure, and consolidates records with provenance. One
// failing account never affects another; the run aborts only on a
// process-wide cancellation.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/habhabhabs/aws-inventag/internal/config"
	"github.com/habhabhabs/aws-inventag/internal/credentials"
	"github.com/habhabhabs/aws-inventag/internal/discovery"
	"github.com/habhabhabs/aws-inventag/internal/discovery/services"
	"github.com/habhabhabs/aws-inventag/internal/models"
	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
	"github.com/habhabhabs/aws-inventag/internal/telemetry"
	"github.com/habhabhabs/aws-inventag/internal/utils/retry"
)

// Orchestrator owns the account pool for one run
type Orchestrator struct {
	cfg      *config.Config
	resolver *credentials.Resolver
	log      logger.Logger
	metrics  *telemetry.Metrics
}

// New creates an orchestrator over a validated configuration
func New(cfg *config.Config, log logger.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		cfg:      cfg,
		resolver: credentials.NewResolver(firstRegion(cfg.Regions)),
		log:      log,
		metrics:  metrics,
	}
}

func firstRegion(regions []string) string {
	if len(regions) > 0 {
		return regions[0]
	}
	return models.GlobalRegion
}

// accountOutcome is the value each account worker returns. Failures are
// encoded, never raised across the pool boundary.
type accountOutcome struct {
	stats    models.AccountStats
	records  []models.Resource
	warnings []string
}

// Run executes the full multi-account inventory. The returned result is
// complete even when individual accounts failed; a cancelled context is
// the only error path.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunResult, error) {
	started := time.Now().UTC()
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	// The early-termination map spans all accounts in the run.
	shared := discovery.NewSharedState()

	var (
		mu       sync.Mutex
		outcomes []accountOutcome
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.cfg.Discovery.MaxConcurrentAccounts)
	for _, account := range o.cfg.Accounts {
		account := account
		group.Go(func() error {
			outcome := o.processAccount(groupCtx, account, shared)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		// Partial progress is discarded; no half-snapshot downstream.
		return nil, apperrors.Wrap(apperrors.KindCancelled, "run cancelled", ctx.Err())
	}

	o.consolidate(result, outcomes)
	result.FinishedAt = time.Now().UTC()
	o.log.Info("run finished",
		logger.F("run_id", result.RunID),
		logger.F("resources", result.TotalResources()),
		logger.F("successful_accounts", result.SuccessfulAccounts),
		logger.F("failed_accounts", result.FailedAccounts))
	return result, nil
}

// RunWithRecords consolidates externally supplied records instead of
// discovering. Used when inventory data arrives from a prior export or a
// side channel; records pass through the same provenance and ordering
// rules as discovered ones.
func (o *Orchestrator) RunWithRecords(ctx context.Context, records []models.Resource) (*models.RunResult, error) {
	if ctx.Err() != nil {
		return nil, apperrors.Wrap(apperrors.KindCancelled, "run cancelled", ctx.Err())
	}
	started := time.Now().UTC()
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	byAccount := make(map[string]*models.AccountStats)
	for i := range records {
		record := &records[i]
		if record.DiscoveryMethod == "" {
			record.DiscoveryMethod = models.DiscoveryMethodInjected
		}
		if record.SourceAccountID == "" {
			record.SourceAccountID = record.AccountID
		}
		record.Normalize()

		stats, ok := byAccount[record.AccountID]
		if !ok {
			stats = &models.AccountStats{AccountID: record.AccountID, State: models.AccountDone}
			byAccount[record.AccountID] = stats
		}
		stats.ResourceCount++
	}

	result.Records = discovery.DedupeConsolidated(records)
	models.SortResources(result.Records)
	for _, stats := range byAccount {
		result.Accounts = append(result.Accounts, *stats)
		result.SuccessfulAccounts++
	}
	sort.Slice(result.Accounts, func(i, j int) bool {
		return result.Accounts[i].AccountID < result.Accounts[j].AccountID
	})
	result.FinishedAt = time.Now().UTC()
	return result, nil
}

// processAccount walks one account through the state machine. Every exit
// path fills in the stats; panics and errors never cross into the pool.
func (o *Orchestrator) processAccount(ctx context.Context, account credentials.AccountConfig, shared *discovery.SharedState) (outcome accountOutcome) {
	started := time.Now()
	stats := models.AccountStats{
		AccountID:   account.AccountID,
		AccountName: account.Name,
		State:       models.AccountPending,
	}
	log := o.log.WithFields(logger.F("account_id", account.AccountID))

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.FromPanic(r).WithAccount(account.AccountID)
			log.WithError(err).Error("account worker panicked",
				logger.F("stack", err.Details["stack"]))
			stats.State = models.AccountFailed
			stats.FailureReason = err.Error()
			stats.ErrorCount++
			stats.ProcessingTime = time.Since(started)
			outcome = accountOutcome{stats: stats}
		}
	}()

	fail := func(reason string) accountOutcome {
		stats.State = models.AccountFailed
		stats.FailureReason = reason
		stats.ErrorCount++
		stats.ProcessingTime = time.Since(started)
		log.Error("account failed", logger.F("reason", reason))
		return accountOutcome{stats: stats}
	}

	accountCtx, cancel := context.WithTimeout(ctx, o.cfg.Discovery.AccountTimeout.Std())
	defer cancel()

	stats.State = models.AccountAuthenticating
	cfg, err := o.resolver.Resolve(accountCtx, account)
	if err != nil {
		return fail(fmt.Sprintf("authentication: %v", err))
	}

	callerAccount, _, err := credentials.CallerIdentity(accountCtx, cfg)
	if err != nil {
		return fail(fmt.Sprintf("caller identity: %v", err))
	}
	if callerAccount != account.AccountID {
		return fail(fmt.Sprintf("account mismatch: session belongs to %s, configured %s", callerAccount, account.AccountID))
	}

	deps := services.Deps{Cfg: cfg, Clients: services.NewClientCache()}

	stats.State = models.AccountProbing
	regions := o.probeRegions(accountCtx, deps, log, &stats)
	if accountCtx.Err() != nil {
		return fail(timeoutReason(ctx, accountCtx))
	}
	if len(regions) == 0 {
		return fail("no configured region responded to probing")
	}

	stats.State = models.AccountDiscovering
	engine := discovery.New(deps, account.AccountID, discovery.Options{
		MaxWorkers:       o.cfg.Discovery.MaxWorkers,
		PageCap:          o.cfg.Discovery.PageCap,
		RateLimit:        o.cfg.Discovery.RateLimit,
		Retry:            retry.Default(),
		BreakerThreshold: o.cfg.Discovery.BreakerThreshold,
		BreakerCooldown:  o.cfg.Discovery.BreakerCooldown.Std(),
	}, shared, o.log, o.metrics)

	serviceNames := o.cfg.Services
	if len(serviceNames) == 0 {
		serviceNames = discovery.DefaultServices()
	}
	records, warnings := engine.Discover(accountCtx, serviceNames, regions)
	if accountCtx.Err() != nil {
		return fail(timeoutReason(ctx, accountCtx))
	}

	seenServices := map[string]bool{}
	for i := range records {
		records[i].SourceAccountID = account.AccountID
		records[i].SourceAccountName = account.DisplayName()
		seenServices[records[i].Service] = true
	}

	stats.State = models.AccountDone
	stats.ResourceCount = len(records)
	stats.WarningCount += len(warnings)
	stats.Regions = regions
	stats.Services = sortedKeys(seenServices)
	stats.ProcessingTime = time.Since(started)
	log.Info("account done",
		logger.F("resources", len(records)),
		logger.F("warnings", len(warnings)),
		logger.F("duration", stats.ProcessingTime.String()))

	return accountOutcome{stats: stats, records: records, warnings: warnings}
}

// probeRegions keeps the subset of configured regions that answer a cheap
// listing call.
func (o *Orchestrator) probeRegions(ctx context.Context, deps services.Deps, log logger.Logger, stats *models.AccountStats) []string {
	var responsive []string
	for _, region := range o.cfg.Regions {
		if ctx.Err() != nil {
			return responsive
		}
		if err := services.ProbeRegion(ctx, deps, region); err != nil {
			stats.WarningCount++
			log.Warn("region unreachable", logger.F("region", region), logger.F("error", err.Error()))
			continue
		}
		responsive = append(responsive, region)
	}
	return responsive
}

// consolidate unions per-account output, applies the cross-account dedup
// pass, and computes global statistics.
func (o *Orchestrator) consolidate(result *models.RunResult, outcomes []accountOutcome) {
	var all []models.Resource
	for _, outcome := range outcomes {
		all = append(all, outcome.records...)
		result.Accounts = append(result.Accounts, outcome.stats)
		switch outcome.stats.State {
		case models.AccountDone:
			result.SuccessfulAccounts++
		case models.AccountFailed:
			result.FailedAccounts++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("account %s failed: %s", outcome.stats.AccountID, outcome.stats.FailureReason))
		}
		result.Warnings = append(result.Warnings, outcome.warnings...)
	}
	sort.Slice(result.Accounts, func(i, j int) bool {
		return result.Accounts[i].AccountID < result.Accounts[j].AccountID
	})

	result.Records = discovery.DedupeConsolidated(all)
	models.SortResources(result.Records)
	// Any failed account flags the run, even when every account failed;
	// the result itself stays valid either way.
	result.PartialSuccess = result.FailedAccounts > 0
}

func timeoutReason(parent, account context.Context) string {
	if parent.Err() != nil {
		return "run cancelled"
	}
	if account.Err() == context.DeadlineExceeded {
		return "timeout"
	}
	return account.Err().Error()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
