package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Controller defaults.
const (
	// DefaultMaxPages bounds one walk so pathological pagination terminates.
	DefaultMaxPages = 10

	// DefaultFullSyncFallbacks is how many times an invalid cursor may
	// escalate to a full sync within one invocation.
	DefaultFullSyncFallbacks = 1
)

// syncPhase is a state of the per-calendar sync machine.
type syncPhase int

const (
	phaseIncremental syncPhase = iota
	phaseFull
	phaseDone
	phaseFailed
)

func (p syncPhase) String() string {
	switch p {
	case phaseIncremental:
		return "INCREMENTAL"
	case phaseFull:
		return "FULL"
	case phaseDone:
		return "DONE"
	case phaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SyncController owns the full/incremental protocol for one calendar.
type SyncController struct {
	maxPages  int
	fallbacks int
}

// NewSyncController creates a controller with the default page bound and
// fallback budget.
func NewSyncController() *SyncController {
	return &SyncController{
		maxPages:  DefaultMaxPages,
		fallbacks: DefaultFullSyncFallbacks,
	}
}

// Run syncs one calendar starting from cursor.
//
// The machine starts INCREMENTAL when a cursor is present and FULL otherwise.
// A rejected cursor while INCREMENTAL restarts the walk as FULL while budget
// remains. Any other error ends the walk as FAILED with the cursor unadopted.
func (c *SyncController) Run(ctx context.Context, fetcher PageFetcher, calendarID, cursor string) domain.CalendarSyncResult {
	log := logger.FromContext(ctx).With("calendar", calendarID)

	result := domain.CalendarSyncResult{
		CalendarID:     calendarID,
		PreviousCursor: cursor,
	}

	phase := phaseFull
	if cursor != "" {
		phase = phaseIncremental
	}
	budget := c.fallbacks

	for phase == phaseIncremental || phase == phaseFull {
		walkCursor := ""
		if phase == phaseIncremental {
			walkCursor = cursor
		}

		changes, newCursor, pages, err := c.walk(ctx, fetcher, calendarID, walkCursor)
		result.Pages += pages
		result.FullSync = phase == phaseFull

		next, remaining := nextPhase(phase, err, budget)
		log.Debug("%s -> %s after %d pages", phase, next, pages)

		switch next {
		case phaseDone:
			result.Changes = changes
			result.NewCursor = newCursor
			result.Outcome = domain.OutcomeOK
		case phaseFull:
			log.Info("sync token rejected, falling back to full sync")
		case phaseFailed:
			result.Err = err
			result.Outcome = classifyOutcome(err)
		}
		phase, budget = next, remaining
	}

	return result
}

// nextPhase is the transition function of the sync machine. The fallback
// budget is passed and returned by value.
func nextPhase(current syncPhase, err error, budget int) (syncPhase, int) {
	switch {
	case err == nil:
		return phaseDone, budget
	case errors.Is(err, domain.ErrCursorInvalid) && current == phaseIncremental && budget > 0:
		return phaseFull, budget - 1
	default:
		return phaseFailed, budget
	}
}

// walk pages through one query. It returns the collected change records and
// the cursor from the final page, or ErrPageLimit if the bound is hit with
// pages still pending.
func (c *SyncController) walk(
	ctx context.Context,
	fetcher PageFetcher,
	calendarID, cursor string,
) ([]domain.ChangeRecord, string, int, error) {
	var changes []domain.ChangeRecord
	pageToken := ""

	for pages := 1; pages <= c.maxPages; pages++ {
		page, err := fetcher.FetchPage(ctx, calendarID, cursor, pageToken)
		if err != nil {
			return nil, "", pages, err
		}

		for _, item := range page.Items {
			changes = append(changes, domain.ClassifyChange(calendarID, item))
		}

		if page.LastPage() {
			return changes, page.NextCursor, pages, nil
		}
		pageToken = page.NextPageToken
	}

	return nil, "", c.maxPages, fmt.Errorf("%w: %d pages", domain.ErrPageLimit, c.maxPages)
}

// classifyOutcome maps a walk error to a calendar outcome.
func classifyOutcome(err error) domain.SyncOutcome {
	switch {
	case errors.Is(err, domain.ErrCursorInvalid):
		return domain.OutcomeCursorInvalid
	case domain.IsTransient(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return domain.OutcomeTransientError
	default:
		return domain.OutcomeFatalError
	}
}
