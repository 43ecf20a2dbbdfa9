package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"
	"magistrant/internal/scrapers/kpfu"
	"magistrant/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_plan_lookup = "plan.lookup"
	report_plan_scrape = "plan.scrape"
	report_plan_upsert = "plan.upsert"
	report_plan_close  = "plan.close-session"
	report_plan_cohort = "plan.cohort"
)

var (
	ErrInvalidTerm = fmt.Errorf("term must be between %d and %d", curriculum.MinTerm, curriculum.MaxTerm)
	ErrEmptyLogin  = errors.New("login must not be empty")
)

type PlanServiceOptions struct {
	Store  store.Store
	Launch kpfu.Launcher
	Layout curriculum.Layout
	// CacheEmptyResults makes an extraction that found nothing count as a
	// cache hit, otherwise such keys are scraped again on every request.
	CacheEmptyResults bool
	Tel               telemetry.API
}

// PlanService serves curriculum records from the store, scraping the portal
// only for keys that have nothing cached.
type PlanService struct {
	store             store.Store
	launch            kpfu.Launcher
	layout            curriculum.Layout
	cacheEmptyResults bool
	tel               telemetry.API

	tracer trace.Tracer
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

func NewPlanService(opts PlanServiceOptions) *PlanService {
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Launch)
	assert.NotNil(opts.Tel)

	tel := telemetry.NewScopedAPI("plan_service", opts.Tel)
	layout := opts.Layout
	if layout == (curriculum.Layout{}) {
		layout = curriculum.DefaultLayout()
	}
	meter := otel.Meter("magistrant/internal/service")

	hits, err := meter.Int64Counter("plan.cache.hits", metric.WithDescription("GetPlan calls answered from the store"))
	if err != nil {
		tel.ReportWarning("metrics", err)
		hits = noop.Int64Counter{}
	}
	misses, err := meter.Int64Counter("plan.cache.misses", metric.WithDescription("GetPlan calls that scraped the portal"))
	if err != nil {
		tel.ReportWarning("metrics", err)
		misses = noop.Int64Counter{}
	}

	return &PlanService{
		store:             opts.Store,
		launch:            opts.Launch,
		layout:            layout,
		cacheEmptyResults: opts.CacheEmptyResults,
		tel:               tel,
		tracer:            otel.Tracer("magistrant/internal/service"),
		hits:              hits,
		misses:            misses,
	}
}

func (s *PlanService) hit(entry store.Entry) bool {
	if len(entry.Records) > 0 {
		return true
	}
	return s.cacheEmptyResults && entry.Fetched
}

// GetPlan returns the records of a user's term. Cached records are returned
// as is and the password goes unused, otherwise the portal is scraped and the
// result replaces whatever the store held. Nothing is written when scraping
// fails.
func (s *PlanService) GetPlan(ctx context.Context, userKey, password string, term int) ([]curriculum.Record, error) {
	if !curriculum.ValidTerm(term) {
		return nil, fmt.Errorf("get plan: %w, got %d", ErrInvalidTerm, term)
	}
	userKey = strings.TrimSpace(userKey)
	if userKey == "" {
		return nil, fmt.Errorf("get plan: %w", ErrEmptyLogin)
	}

	key := curriculum.Key{UserKey: userKey, Term: term}
	runId := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "GetPlan", trace.WithAttributes(
		attribute.String("run_id", runId),
		attribute.Int("term", term),
	))
	defer span.End()

	entry, err := s.store.Lookup(ctx, key)
	if err != nil {
		s.tel.ReportBroken(report_plan_lookup, err, key.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup")
		return nil, fmt.Errorf("get plan: lookup %s: %w", key, err)
	}
	if s.hit(entry) {
		s.hits.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		s.tel.ReportDebug("cache hit", "key", key.String(), "records", len(entry.Records))
		return entry.Records, nil
	}
	s.misses.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("cache_hit", false))

	records, err := s.scrape(ctx, runId, key, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape")
		return nil, fmt.Errorf("get plan: %w", err)
	}

	err = s.store.Upsert(ctx, key, records)
	if err != nil {
		s.tel.ReportBroken(report_plan_upsert, err, key.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert")
		return nil, fmt.Errorf("get plan: upsert %s: %w", key, err)
	}
	return records, nil
}

func (s *PlanService) scrape(ctx context.Context, runId string, key curriculum.Key, password string) ([]curriculum.Record, error) {
	s.tel.ReportDebug("scraping", "run_id", runId, "key", key.String())

	session, err := s.launch(ctx)
	if err != nil {
		s.tel.ReportBroken(report_plan_scrape, err, runId)
		return nil, fmt.Errorf("launch session: %w", err)
	}
	defer func() {
		err := session.Close()
		if err != nil {
			s.tel.ReportWarning(report_plan_close, err, runId)
		}
	}()

	err = session.Login(ctx, key.UserKey, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	page, err := session.OpenCurriculum(ctx, key.Term)
	if err != nil {
		return nil, fmt.Errorf("open curriculum: %w", err)
	}
	if page.Cohort == kpfu.CohortFailed {
		s.tel.ReportWarning(report_plan_cohort, "second year cohort not selected, records may belong to the first year", runId)
	}

	records := curriculum.Extract(page.Table, key.Term, s.layout)
	for i := range records {
		records[i].UserKey = key.UserKey
		records[i].Term = key.Term
	}
	s.tel.ReportDebug("scraped", "run_id", runId, "key", key.String(), "records", len(records))
	return records, nil
}

// Cached returns what the store holds for a key without ever scraping.
func (s *PlanService) Cached(ctx context.Context, userKey string, term int) (store.Entry, error) {
	if !curriculum.ValidTerm(term) {
		return store.Entry{}, fmt.Errorf("cached: %w, got %d", ErrInvalidTerm, term)
	}
	return s.store.Lookup(ctx, curriculum.Key{UserKey: strings.TrimSpace(userKey), Term: term})
}
