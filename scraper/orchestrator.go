package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"avitowatch/config"
	"avitowatch/models"
	"avitowatch/services"
	"avitowatch/storage"
)

// CriterionStore lists the saved searches to evaluate and records the
// baseline transition. Criteria deleted mid-pass simply stop appearing in the
// next listing; an in-flight evaluation is allowed to finish.
type CriterionStore interface {
	ListActiveCriteria(ctx context.Context) ([]models.SearchCriterion, error)
	ListCriteriaByOwner(ctx context.Context, ownerID int64) ([]models.SearchCriterion, error)
	MarkInitialized(ctx context.Context, criterionID int64) error
}

// Orchestrator runs the acquisition pipeline for each search criterion:
// render, extract, filter, canonicalize, dedup, notify. Criteria are
// evaluated sequentially; one rendering session is open at a time.
type Orchestrator struct {
	cfg       *config.Config
	renderer  Renderer
	extractor *Extractor
	filter    *services.MatchFilter
	gate      *services.DedupGate
	notifier  services.Notifier
	criteria  CriterionStore
	ops       *storage.SQLiteStore // optional; nil disables run accounting
	paused    bool
	now       func() time.Time
}

func NewOrchestrator(
	cfg *config.Config,
	renderer Renderer,
	gate *services.DedupGate,
	notifier services.Notifier,
	criteria CriterionStore,
	ops *storage.SQLiteStore,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		renderer:  renderer,
		extractor: NewExtractor(cfg.Site.BaseURL),
		filter:    services.NewMatchFilter(),
		gate:      gate,
		notifier:  notifier,
		criteria:  criteria,
		ops:       ops,
		now:       time.Now,
	}
}

// SearchURL builds the marketplace search page for a criterion: region path,
// keyword query, newest-first sort, private sellers only.
func (o *Orchestrator) SearchURL(criterion *models.SearchCriterion) string {
	region := criterion.Region
	if region == "" {
		region = o.cfg.Site.DefaultRegion
	}
	base := strings.TrimRight(o.cfg.Site.BaseURL, "/")
	return fmt.Sprintf("%s/%s?q=%s&%s",
		base, region, url.QueryEscape(criterion.Keyword), o.cfg.Site.SearchParams)
}

// Evaluate runs one criterion through the full pipeline and emits
// notification events for its outcome. The returned slice covers every
// candidate that passed the match filter, flagged novel or not.
//
// A criterion that has never completed a pass runs as a baseline: admitted
// listings seed the seen-set, nothing is forwarded, and the criterion is
// marked initialized afterwards regardless of outcome. A failed render counts
// as a completed empty pass: initialization still happens, the no-new-listings
// summary still goes out, and the listings the failure missed surface as novel
// on a later pass.
func (o *Orchestrator) Evaluate(ctx context.Context, criterion *models.SearchCriterion) ([]models.EvaluatedListing, error) {
	searchURL := o.SearchURL(criterion)
	log.Printf("Evaluating criterion %d: %q up to %d in %s", criterion.ID, criterion.Keyword, criterion.MaxPrice, criterion.Region)

	results, novel, evalErr := o.runPipeline(ctx, criterion, searchURL)

	if !criterion.Initialized {
		if err := o.criteria.MarkInitialized(ctx, criterion.ID); err != nil {
			log.Printf("Error marking criterion %d initialized: %v", criterion.ID, err)
		} else {
			criterion.Initialized = true
		}
		return results, evalErr
	}

	// Forward what the gate admitted, in its newest-first order. One record
	// per distinct listing means one notification per distinct listing.
	forwarded := 0
	for i := range novel {
		if err := o.notifier.NewListingFound(ctx, criterion, &novel[i]); err != nil {
			log.Printf("Error notifying for criterion %d: %v", criterion.ID, err)
			continue
		}
		forwarded++
	}

	if forwarded == 0 {
		if err := o.notifier.NoNewListings(ctx, criterion); err != nil {
			log.Printf("Error sending summary for criterion %d: %v", criterion.ID, err)
		}
	}

	return results, evalErr
}

func (o *Orchestrator) runPipeline(ctx context.Context, criterion *models.SearchCriterion, searchURL string) ([]models.EvaluatedListing, []models.CanonicalListing, error) {
	doc, err := o.renderer.Render(ctx, searchURL)
	if err != nil {
		// A failed render is indistinguishable downstream from an empty
		// page; only the logs tell the difference.
		return nil, nil, err
	}

	raw := o.extractor.Extract(doc)
	matched := o.filter.Apply(raw, criterion)

	now := o.now()
	canonical := make([]models.CanonicalListing, 0, len(matched))
	for _, listing := range matched {
		canonical = append(canonical, services.Canonicalize(listing, now))
	}

	novel, err := o.gate.Admit(ctx, canonical, criterion)
	if err != nil {
		return nil, nil, err
	}

	novelSet := make(map[string]bool, len(novel))
	for _, listing := range novel {
		novelSet[listing.NormalizedURL] = true
	}

	results := make([]models.EvaluatedListing, 0, len(canonical))
	for _, listing := range canonical {
		// A page can carry the same ad twice under different tracking
		// params; after normalization only the first occurrence is novel.
		isNovel := novelSet[listing.NormalizedURL]
		if isNovel {
			delete(novelSet, listing.NormalizedURL)
		}
		results = append(results, models.EvaluatedListing{
			Listing: listing,
			Novel:   isNovel,
		})
	}
	return results, novel, nil
}

// RunAll evaluates every active criterion sequentially. Individual failures
// never abort the pass; the orchestrator always reaches the last criterion.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.paused {
		log.Println("Watcher is paused, skipping pass")
		return nil
	}

	criteria, err := o.criteria.ListActiveCriteria(ctx)
	if err != nil {
		return fmt.Errorf("list criteria: %w", err)
	}

	return o.runPass(ctx, criteria)
}

// RunOwner evaluates only one subscriber's criteria (interactive check).
func (o *Orchestrator) RunOwner(ctx context.Context, ownerID int64) error {
	criteria, err := o.criteria.ListCriteriaByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list criteria for owner %d: %w", ownerID, err)
	}

	return o.runPass(ctx, criteria)
}

func (o *Orchestrator) runPass(ctx context.Context, criteria []models.SearchCriterion) error {
	run := &models.EvaluationRun{
		StartedAt: o.now(),
		Status:    models.RunStatusRunning,
	}
	var runID *int64
	if o.ops != nil {
		id, err := o.ops.CreateRun(run)
		if err != nil {
			log.Printf("Warning: could not create run record: %v", err)
		} else {
			run.ID = id
			runID = &id
		}
	}

	log.Printf("Starting pass over %d criteria", len(criteria))

	for i := range criteria {
		criterion := &criteria[i]
		run.CriteriaChecked++
		wasInitialized := criterion.Initialized

		results, err := o.Evaluate(ctx, criterion)
		if err != nil {
			run.ErrorsCount++
			o.log(runID, models.LogLevelError, fmt.Sprintf("evaluation failed: %v", err), criterion.ID)
		}

		run.ListingsFound += len(results)
		for _, r := range results {
			if r.Novel {
				run.ListingsNovel++
				if wasInitialized {
					run.NotificationsSent++
				}
			}
		}
		o.log(runID, models.LogLevelInfo,
			fmt.Sprintf("checked %q: %d candidates", criterion.Keyword, len(results)), criterion.ID)

		if o.cfg.Renderer.DelayMS > 0 && i < len(criteria)-1 {
			time.Sleep(time.Duration(o.cfg.Renderer.DelayMS) * time.Millisecond)
		}
	}

	run.Status = models.RunStatusCompleted
	now := o.now()
	run.FinishedAt = &now
	if o.ops != nil && run.ID != 0 {
		if err := o.ops.UpdateRun(run); err != nil {
			log.Printf("Warning: could not update run record: %v", err)
		}
	}

	log.Printf("Pass complete: %d criteria, %d candidates, %d novel, %d errors",
		run.CriteriaChecked, run.ListingsFound, run.ListingsNovel, run.ErrorsCount)
	return nil
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	var params *models.CommandParams
	if o.ops != nil {
		p, err := o.ops.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		params = p
	} else {
		params = &models.CommandParams{}
	}

	switch cmd.Command {
	case models.CmdCheckNow:
		if params.OwnerID != 0 {
			return o.RunOwner(ctx, params.OwnerID)
		}
		return o.RunAll(ctx)
	case models.CmdPause:
		o.paused = true
		log.Println("Watcher paused")
	case models.CmdResume:
		o.paused = false
		log.Println("Watcher resumed")
	}

	return nil
}

func (o *Orchestrator) IsPaused() bool {
	return o.paused
}

func (o *Orchestrator) log(runID *int64, level models.LogLevel, message string, criterionID int64) {
	log.Printf("[%s] criterion %d: %s", level, criterionID, message)
	if o.ops != nil {
		o.ops.Log(runID, level, message, criterionID)
	}
}
