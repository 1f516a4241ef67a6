// Package ingest turns web pages into stored facts: it fetches a page
// politely, extracts its paragraphs, drops near-duplicates and upserts the
// rest into the fact store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/dedup"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/metrics"
	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/search"
	"github.com/ppiankov/factrank/internal/store"
	"github.com/ppiankov/factrank/internal/util"
	"github.com/ppiankov/factrank/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Predicates written by the ingester
const (
	PredicateTitle     = "title"
	PredicateParagraph = "paragraph"
)

var trustBonus = []struct {
	marker string
	bonus  float64
}{
	{".gov", 0.2},
	{".edu", 0.2},
	{"arxiv.org", 0.15},
	{"ai.googleblog.com", 0.1},
}

// TruthWeightFor is the prior for ingested facts: 0.5 plus the largest
// matching bonus
func TruthWeightFor(rawURL string) float64 {
	bonus := 0.0
	for _, b := range trustBonus {
		if strings.Contains(rawURL, b.marker) {
			bonus = max(bonus, b.bonus)
		}
	}
	return model.Clamp(model.DefaultTruthWeight+bonus, 0, 1)
}

// Options are the collaborators of an Ingester
type Options struct {
	Store   store.FactStore
	Dedup   *dedup.Deduplicator
	Fetcher *Fetcher
	Robots  *util.RobotsChecker // nil skips robots.txt
	Limiter *worker.Limiter     // nil skips rate limiting
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Ingester implements worker.Ingester
type Ingester struct {
	opts   Options
	logger *zap.Logger
}

var _ worker.Ingester = (*Ingester)(nil)

// New validates opts and creates an ingester
func New(opts Options) (*Ingester, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: ingest requires a fact store", model.ErrInvalidConfig)
	}
	if opts.Dedup == nil {
		return nil, fmt.Errorf("%w: ingest requires a deduplicator", model.ErrInvalidConfig)
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(model.DefaultConfig().HTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ingester{opts: opts, logger: logging.OrNop(opts.Logger)}, nil
}

// IngestURL fetches one page and stores its new paragraphs as facts
func (in *Ingester) IngestURL(ctx context.Context, rawURL string) (*model.IngestResult, error) {
	res, err := in.ingest(ctx, rawURL)
	if err != nil {
		in.opts.Metrics.IncIngestPage(metrics.StatusFailure)
		in.logger.Warn("ingest failed", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}
	in.opts.Metrics.IncIngestPage(metrics.StatusSuccess)
	in.opts.Metrics.AddIngestParagraphs(metrics.ParagraphAdded, res.Added)
	in.opts.Metrics.AddIngestParagraphs(metrics.ParagraphDuplicate, res.Duplicates)
	in.logger.Info("ingested page",
		zap.String("url", res.URL),
		zap.Int("paragraphs", res.Paragraphs),
		zap.Int("added", res.Added),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

func (in *Ingester) ingest(ctx context.Context, rawURL string) (*model.IngestResult, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}
	rawURL = u.String()

	// 1. robots.txt, honoring Crawl-delay
	if in.opts.Robots != nil {
		allowed, delay, err := in.opts.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 && in.opts.Limiter != nil {
			in.opts.Limiter.SetHostRate(u.Hostname(), 1/delay.Seconds(), 1)
		}
	}

	// 2. Per-domain budget
	if in.opts.Limiter != nil {
		if err := in.opts.Limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	// 3. Fetch and extract
	page, err := in.opts.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := Extract(page.HTML)
	if err != nil {
		return nil, err
	}

	title := doc.Title
	if title == "" {
		title = page.Subject
	}
	base := model.Fact{
		Subject:     title,
		SourceURL:   page.FinalURL,
		SourceName:  hostOf(page.FinalURL),
		TruthWeight: model.Float64Ptr(TruthWeightFor(page.FinalURL)),
		TS:          in.timestamp(page),
	}

	res := &model.IngestResult{URL: page.FinalURL, Title: title, Paragraphs: len(doc.Paragraphs)}

	// 4. Title fact, keyed by URL so re-ingesting replaces it
	if doc.Title != "" {
		f := base
		f.ID = factID(page.FinalURL, PredicateTitle)
		f.Subject = page.FinalURL
		f.Predicate = PredicateTitle
		f.Object = doc.Title
		if err := in.opts.Store.UpsertFact(ctx, f); err != nil {
			return nil, err
		}
	}

	// 5. New paragraphs only
	for _, p := range doc.Paragraphs {
		if _, added := in.opts.Dedup.AddIfNew(p, page.FinalURL, title); !added {
			res.Duplicates++
			continue
		}

		f := base
		f.ID = factID(page.FinalURL, dedup.ContentHash(p))
		f.Predicate = PredicateParagraph
		f.Object = p
		if err := in.opts.Store.UpsertFact(ctx, f); err != nil {
			return nil, err
		}
		res.Added++
	}
	return res, nil
}

// timestamp prefers Last-Modified, then a date in the title, then today
func (in *Ingester) timestamp(p *Page) string {
	if p.LastModified != "" {
		if t, err := http.ParseTime(p.LastModified); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	if d := search.ExtractDate(p.Subject); d != "" {
		return d
	}
	return in.opts.Now().UTC().Format("2006-01-02")
}

// factID is stable for a (url, part) pair
func factID(pageURL, part string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL+"#"+part)).String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
