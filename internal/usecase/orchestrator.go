package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/observability"
	"PriceWatcher/internal/ports"
	"PriceWatcher/internal/pricetext"
	"PriceWatcher/internal/site"
)

// OrchestratorDeps wires all driven adapters into one scrape cycle.
type OrchestratorDeps struct {
	Session    ports.PageSession
	Sites      []site.Config
	Repository ports.PriceRepository
	State      *StateCache
	Notifier   ports.Notifier
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// Orchestrator implements the scrape cycle: refresh pages, extract, record.
type Orchestrator struct {
	session    ports.PageSession
	sites      []site.Config
	repository ports.PriceRepository
	state      *StateCache
	notifier   ports.Notifier
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrchestrator constructs the scrape use case.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	state := deps.State
	if state == nil {
		state = NewStateCache(deps.Sites)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		session:    deps.Session,
		sites:      deps.Sites,
		repository: deps.Repository,
		state:      state,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        now,
	}
}

// State exposes the cache read by the HTTP layer.
func (o *Orchestrator) State() *StateCache {
	return o.state
}

// RunCycle refreshes every page and updates each site's state in registry order.
// Browser faults abort the cycle; states updated before the fault stay updated.
func (o *Orchestrator) RunCycle(ctx context.Context) ([]domain.SiteState, error) {
	if o.session == nil {
		return nil, fmt.Errorf("run cycle: session is not configured")
	}

	if err := o.session.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	if err := o.session.Reload(ctx); err != nil {
		return nil, fmt.Errorf("reload pages: %w", err)
	}

	for i, cfg := range o.sites {
		st, err := o.extract(ctx, i, cfg)
		if err != nil {
			o.metrics.RecordExtraction(cfg.Name, observability.ResultError)
			return nil, fmt.Errorf("extract %s: %w", cfg.Name, err)
		}

		prev, _ := o.state.Update(st)
		o.debug(ctx, "site updated", "site", st.Name, "price", st.Price, "currency", st.Currency, "product", st.ProductName)

		if st.Price > 0 {
			o.record(ctx, st)
		}
		if prev.Price > 0 && st.Price > 0 && prev.Price != st.Price {
			o.notify(ctx, prev, st)
		}
	}

	return o.state.Snapshot(), nil
}

func (o *Orchestrator) extract(ctx context.Context, index int, cfg site.Config) (domain.SiteState, error) {
	st := domain.SiteState{
		Name:        cfg.Name,
		URL:         cfg.URL,
		ProductName: domain.ProductNotFound,
		UpdatedAt:   o.now(),
	}

	priceText, found, err := o.session.TextContent(ctx, index, cfg.PriceSelector)
	if err != nil {
		return domain.SiteState{}, fmt.Errorf("read price: %w", err)
	}
	if found && priceText != "" {
		st.Price, st.Currency = pricetext.Parse(cfg.CleanPrice(priceText))
		o.metrics.RecordExtraction(cfg.Name, observability.ResultFound)
	} else {
		o.metrics.RecordExtraction(cfg.Name, observability.ResultNotFound)
		o.warn(ctx, "price not found", "site", cfg.Name, "selector", cfg.PriceSelector)
	}

	productText, found, err := o.session.TextContent(ctx, index, cfg.ProductSelector)
	if err != nil {
		return domain.SiteState{}, fmt.Errorf("read product name: %w", err)
	}
	if found && productText != "" {
		st.ProductName = cfg.CleanProduct(productText)
	}

	return st, nil
}

func (o *Orchestrator) record(ctx context.Context, st domain.SiteState) {
	if o.repository == nil {
		return
	}
	currency := st.Currency
	if currency == "" {
		currency = domain.FallbackCurrency
	}
	err := o.repository.Record(ctx, st.Name, st.Price, currency)
	o.metrics.RecordStoreWrite(err)
	if err != nil {
		o.logError(ctx, "record price", "site", st.Name, "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, prev, st domain.SiteState) {
	if o.notifier == nil {
		return
	}
	err := o.notifier.PublishPriceChange(ctx, domain.PriceChange{
		Site:        st.Name,
		URL:         st.URL,
		ProductName: st.ProductName,
		Currency:    st.Currency,
		OldPrice:    prev.Price,
		NewPrice:    st.Price,
	})
	o.metrics.RecordNotification(err)
	if err != nil {
		o.warn(ctx, "publish price change", "site", st.Name, "error", err)
	}
}

func (o *Orchestrator) debug(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.DebugContext(ctx, msg, args...)
	}
}

func (o *Orchestrator) warn(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.WarnContext(ctx, msg, args...)
	}
}

func (o *Orchestrator) logError(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.ErrorContext(ctx, msg, args...)
	}
}
