package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/monitor")

type ServiceOptions struct {
	Notifier Notifier
	// defaults to time.Now; tests pin it
	Now func() time.Time
	// defaults to one minute; must stay at or under the finest
	// schedule granularity or minute schedules miss their slot
	TickInterval time.Duration
	// stores monitored in parallel within one tick, defaults to 3
	MaxConcurrentStores int
	// upper bound on one store's fetch-to-commit cycle, defaults to
	// 10 minutes
	StoreTimeout time.Duration
}

// Service drives the monitoring cycle: on every tick it evaluates
// each store's schedule and runs fetch, extract, diff and commit for
// the due ones. Store failures are isolated, a broken site never
// blocks its siblings.
type Service struct {
	stores   []StoreConfig
	repo     Repository
	fetcher  *Fetcher
	notifier Notifier
	now      func() time.Time

	tickInterval time.Duration
	storeTimeout time.Duration
	sem          chan struct{}
}

func NewService(stores []StoreConfig, repo Repository, fetcher *Fetcher, opts ServiceOptions) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Minute
	}
	if opts.MaxConcurrentStores == 0 {
		opts.MaxConcurrentStores = 3
	}
	if opts.StoreTimeout == 0 {
		opts.StoreTimeout = time.Minute * 10
	}
	return Service{
		stores:       stores,
		repo:         repo,
		fetcher:      fetcher,
		notifier:     opts.Notifier,
		now:          opts.Now,
		tickInterval: opts.TickInterval,
		storeTimeout: opts.StoreTimeout,
		sem:          make(chan struct{}, opts.MaxConcurrentStores),
	}
}

// Start blocks, running one tick per interval until the context is
// cancelled.
func (s Service) Start(ctx context.Context) {
	slog.InfoContext(ctx, "monitor started", "stores", len(s.stores), "tick_interval", s.tickInterval)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "monitor stopped")
			return
		case <-ticker.C:
			s.RunTick(ctx)
		}
	}
}

// RunTick runs the pipeline for every store due right now.
func (s Service) RunTick(ctx context.Context) {
	s.run(ctx, false)
}

// RunAll runs the pipeline for every store regardless of schedule.
func (s Service) RunAll(ctx context.Context) {
	s.run(ctx, true)
}

func (s Service) run(ctx context.Context, force bool) {
	now := s.now()

	var wg sync.WaitGroup
	for _, store := range s.stores {
		if !force && !store.ParsedSchedule.IsDue(now) {
			continue
		}

		store := store
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-s.sem }()

			storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
			defer cancel()

			err := s.runStore(storeCtx, store)
			if err != nil {
				slog.ErrorContext(storeCtx, "store cycle failed", "store", store.Name, "err", err)
			}
		}()
	}
	wg.Wait()
}

// runStore is one complete cycle for one store: fetch every page,
// union the extracted items, diff against the last committed
// snapshot, commit, then hand the events to the notifier.
func (s Service) runStore(ctx context.Context, store StoreConfig) error {
	ctx, span := tracer.Start(ctx, "runStore")
	defer span.End()
	span.SetAttributes(attribute.String("store", store.Name))

	slog.InfoContext(ctx, "checking store", "store", store.Name, "url", store.Options.BaseUrl)

	pages, err := s.fetcher.FetchPages(ctx, store)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch stage failed")
		return err
	}

	current := map[string]Item{}
	for _, page := range pages {
		items, failures := ExtractItems(page.Doc, store)
		for _, failure := range failures {
			slog.WarnContext(ctx, "skipping broken item container", "store", store.Name, "url", page.Url, "err", failure)
		}
		for _, item := range items {
			current[item.IdentityKey()] = item
		}
	}
	if len(current) == 0 {
		slog.InfoContext(ctx, "no items found", "store", store.Name, "pages", len(pages))
		return nil
	}

	previous, err := s.repo.LoadLastKnown(ctx, store.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load stage failed")
		return err
	}

	events := Diff(store.Name, current, previous)

	var archive []string
	for _, event := range events {
		if event.Kind == ChangeRemoved {
			archive = append(archive, event.Item.IdentityKey())
		}
	}

	err = s.repo.Commit(ctx, CommitParams{
		StoreName:    store.Name,
		Items:        current,
		Archive:      archive,
		Observations: NewPriceRecords(events),
		Now:          s.now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit stage failed")
		return err
	}

	slog.InfoContext(ctx, "store cycle complete",
		"store", store.Name,
		"pages", len(pages),
		"items", len(current),
		"events", len(events),
	)

	if len(events) == 0 || s.notifier == nil {
		return nil
	}
	err = s.notifier.Notify(ctx, store, events)
	if err != nil {
		// the snapshot is already committed, a notifier hiccup
		// shouldn't fail the cycle
		slog.WarnContext(ctx, "notifier failed", "store", store.Name, "err", err)
	}
	return nil
}
