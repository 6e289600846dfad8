package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
)

// DiscoverySource is the pair of databases one discovery run reads from: a
// paged primary listing and a membership lookup over its identity keys.
type DiscoverySource interface {
	// FetchPage returns up to limit rows for searchKey starting at offset,
	// in the source's configured order. An empty page means no more data.
	FetchPage(ctx context.Context, searchKey string, offset, limit int) ([]models.Candidate, error)

	// CheckMembership returns the subset of keys flagged in the second dataset.
	CheckMembership(ctx context.Context, keys []any) (models.KeySet, error)
}

// DiscoveryState is a step of the fetch/match loop.
type DiscoveryState string

const (
	StateFetching  DiscoveryState = "fetching"
	StateMatching  DiscoveryState = "matching"
	StateContinue  DiscoveryState = "continue"
	StateSatisfied DiscoveryState = "satisfied"
	StateExhausted DiscoveryState = "exhausted"
)

// Stop reasons recorded on the result and in history.
const (
	StopTargetReached = "target_reached"
	StopEmptyPage     = "empty_page"
	StopMaxPages      = "max_pages"
	StopRejected      = "statement_rejected"
)

// DiscoveryParams configures one run for one search key.
type DiscoveryParams struct {
	SearchKey   string
	TargetCount int
	PageSize    int
	MaxPages    int
	IdentityKey string // column holding the key checked for membership, e.g. USER_NO

	// OnPage, when set, is called after every page with a copy of the state.
	OnPage func(BatchState)
}

// Validate rejects parameters the loop cannot run with.
func (p DiscoveryParams) Validate() error {
	switch {
	case p.TargetCount <= 0:
		return fmt.Errorf("%w: target count must be positive, got %d", apperrors.ErrInvalidConfig, p.TargetCount)
	case p.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive, got %d", apperrors.ErrInvalidConfig, p.PageSize)
	case p.MaxPages <= 0:
		return fmt.Errorf("%w: max pages must be positive, got %d", apperrors.ErrInvalidConfig, p.MaxPages)
	case p.IdentityKey == "":
		return fmt.Errorf("%w: identity key column is required", apperrors.ErrInvalidConfig)
	}
	return nil
}

// BatchState is the mutable state of one run. Matched is always a subset of
// Accumulated and Offset only grows.
type BatchState struct {
	State       DiscoveryState
	Accumulated []models.Candidate
	Matched     []models.Candidate
	Offset      int
	Page        int // pages fetched so far
	Rejections  []string

	matchedKeys models.KeySet
}

// DiscoveryResult is the outcome of one run.
type DiscoveryResult struct {
	SearchKey    string
	Candidates   []models.Candidate // at most TargetCount, in first-seen order
	Satisfied    bool
	StopReason   string
	PagesFetched int
	FetchedCount int
	MatchedCount int
	Rejections   []string
	Duration     time.Duration
}

// DiscoveryEngine runs the paged fetch/match loop.
type DiscoveryEngine interface {
	Discover(ctx context.Context, source DiscoverySource, params DiscoveryParams) (*DiscoveryResult, error)
}

type discoveryEngine struct {
	logger *zap.Logger
}

// NewDiscoveryEngine creates a discovery engine.
func NewDiscoveryEngine(logger *zap.Logger) DiscoveryEngine {
	return &discoveryEngine{logger: logger.Named("discovery")}
}

var _ DiscoveryEngine = (*discoveryEngine)(nil)

// Discover pages through source until TargetCount matched candidates are
// found, a page comes back empty, or MaxPages pages were read.
//
// A statement rejected before execution ends the run as exhausted and is
// recorded on the result. Any other source error aborts the run as a
// *apperrors.SourceError; pages already read are discarded with it.
func (e *discoveryEngine) Discover(ctx context.Context, source DiscoverySource, params DiscoveryParams) (*DiscoveryResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	logger := e.logger.With(zap.String("search_key", params.SearchKey))

	st := &BatchState{State: StateFetching, matchedKeys: models.NewKeySet()}
	stopReason := ""

	for st.State != StateSatisfied && st.State != StateExhausted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch st.State {
		case StateFetching:
			page, err := source.FetchPage(ctx, params.SearchKey, st.Offset, params.PageSize)
			if err != nil {
				if rejected := e.recordRejection(st, err); rejected {
					stopReason = StopRejected
					st.State = StateExhausted
					continue
				}
				return nil, &apperrors.SourceError{Op: fmt.Sprintf("fetch page at offset %d", st.Offset), Err: err}
			}
			st.Page++
			if len(page) == 0 {
				stopReason = StopEmptyPage
				st.State = StateExhausted
				continue
			}
			st.Accumulated = append(st.Accumulated, page...)

			if err := e.match(ctx, source, params, st, page); err != nil {
				if rejected := e.recordRejection(st, err); rejected {
					stopReason = StopRejected
					st.State = StateExhausted
					continue
				}
				return nil, &apperrors.SourceError{Op: fmt.Sprintf("check membership for page %d", st.Page), Err: err}
			}

			logger.Debug("Page processed",
				zap.Int("page", st.Page),
				zap.Int("offset", st.Offset),
				zap.Int("rows", len(page)),
				zap.Int("matched_total", len(st.Matched)))

			switch {
			case len(st.Matched) >= params.TargetCount:
				stopReason = StopTargetReached
				st.State = StateSatisfied
			case st.Page >= params.MaxPages:
				stopReason = StopMaxPages
				st.State = StateExhausted
			default:
				st.State = StateContinue
			}

		case StateContinue:
			st.Offset += params.PageSize
			st.State = StateFetching
		}

		if params.OnPage != nil && st.State != StateFetching {
			params.OnPage(st.snapshot())
		}
	}

	result := &DiscoveryResult{
		SearchKey:    params.SearchKey,
		Satisfied:    st.State == StateSatisfied,
		StopReason:   stopReason,
		PagesFetched: st.Page,
		FetchedCount: len(st.Accumulated),
		MatchedCount: len(st.Matched),
		Rejections:   st.Rejections,
		Duration:     time.Since(start),
	}
	if result.Satisfied {
		result.Candidates = firstN(st.Matched, params.TargetCount)
	} else {
		result.Candidates = firstN(st.Accumulated, params.TargetCount)
	}

	logger.Info("Discovery finished",
		zap.Bool("satisfied", result.Satisfied),
		zap.String("stop_reason", stopReason),
		zap.Int("pages", result.PagesFetched),
		zap.Int("fetched", result.FetchedCount),
		zap.Int("matched", result.MatchedCount),
		zap.Int("chosen", len(result.Candidates)))
	return result, nil
}

// match checks the page's identity keys and appends matched rows in page
// order. A key already matched on an earlier page is not added twice.
func (e *discoveryEngine) match(ctx context.Context, source DiscoverySource, params DiscoveryParams, st *BatchState, page []models.Candidate) error {
	st.State = StateMatching
	keys := PageKeys(page, params.IdentityKey)
	if len(keys) == 0 {
		return nil
	}

	members, err := source.CheckMembership(ctx, keys)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	for _, row := range page {
		v, _ := row.Get(params.IdentityKey)
		if !members.Has(v) || st.matchedKeys.Has(v) {
			continue
		}
		st.matchedKeys.Add(v)
		st.Matched = append(st.Matched, row)
		if len(st.Matched) >= params.TargetCount {
			break
		}
	}
	return nil
}

func (e *discoveryEngine) recordRejection(st *BatchState, err error) bool {
	var rej *apperrors.RejectionError
	if !errors.As(err, &rej) {
		return false
	}
	st.Rejections = append(st.Rejections, rej.Error())
	e.logger.Warn("Statement rejected, ending run",
		zap.String("kind", string(rej.Kind)),
		zap.String("reason", rej.Reason))
	return true
}

func (st *BatchState) snapshot() BatchState {
	cp := *st
	cp.Accumulated = append([]models.Candidate(nil), st.Accumulated...)
	cp.Matched = append([]models.Candidate(nil), st.Matched...)
	cp.Rejections = append([]string(nil), st.Rejections...)
	cp.matchedKeys = nil
	return cp
}

// PageKeys returns the distinct non-empty values of column across rows, in
// first-seen order.
func PageKeys(rows []models.Candidate, column string) []any {
	seen := models.NewKeySet()
	var keys []any
	for _, row := range rows {
		v, ok := row.Get(column)
		if !ok || seen.Has(v) {
			continue
		}
		if seen.Add(v) {
			keys = append(keys, v)
		}
	}
	return keys
}

func firstN(rows []models.Candidate, n int) []models.Candidate {
	if len(rows) > n {
		rows = rows[:n]
	}
	return append([]models.Candidate(nil), rows...)
}
