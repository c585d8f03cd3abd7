package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures an Engine.
type Options struct {
	Profile Profile
	// MaxCandidates caps how many candidates a single search scores.
	// Zero means no limit.
	MaxCandidates int
	// MaxTokenLength bounds fuzzy matching, see Matcher.
	MaxTokenLength int
	StopWords      StopWords
}

// Engine ranks in-memory records against a query. It keeps no state
// between calls and never modifies the records it is given, so a single
// Engine may serve concurrent searches.
type Engine struct {
	scorer        Scorer
	maxCandidates int
	logger        *logrus.Entry
}

// NewEngine creates an engine. A zero StopWords set is replaced by the
// built-in list.
func NewEngine(opts Options, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.WithField("component", "search_engine")
	}
	if opts.StopWords.Len() == 0 {
		opts.StopWords = DefaultStopWords()
	}
	if opts.Profile.EmptyQuery == "" {
		opts.Profile.EmptyQuery = ReturnNone
	}

	return &Engine{
		scorer: Scorer{
			Profile:   opts.Profile,
			Matcher:   Matcher{MaxTokenLength: opts.MaxTokenLength},
			StopWords: opts.StopWords,
		},
		maxCandidates: opts.MaxCandidates,
		logger:        logger.WithField("profile", opts.Profile.Name),
	}
}

// Profile returns the ranking profile the engine was built with.
func (e *Engine) Profile() Profile {
	return e.scorer.Profile
}

// Search scores every candidate against query and returns the matches
// sorted by descending score. Ties keep their input order.
//
// A blank query is answered by the profile's EmptyQuery policy. The only
// error is the context's error when it ends mid-scan.
func (e *Engine) Search(ctx context.Context, query string, candidates []Record) ([]ScoredRecord, error) {
	if strings.TrimSpace(query) == "" {
		if e.scorer.Profile.EmptyQuery == ReturnAll {
			all := make([]ScoredRecord, len(candidates))
			for i, c := range candidates {
				all[i] = ScoredRecord{Record: c}
			}
			return all, nil
		}
		return []ScoredRecord{}, nil
	}

	start := time.Now()
	queryTokens := Normalize(query, e.scorer.StopWords)

	if e.maxCandidates > 0 && len(candidates) > e.maxCandidates {
		e.logger.WithFields(logrus.Fields{
			"candidates": len(candidates),
			"limit":      e.maxCandidates,
		}).Warn("Candidate list truncated")
		candidates = candidates[:e.maxCandidates]
	}

	results := make([]ScoredRecord, 0)
	for _, candidate := range candidates {
		if err := contextDone(ctx); err != nil {
			return nil, err
		}
		scored := e.scorer.ScoreDocument(queryTokens, candidate)
		if scored.Matched() {
			results = append(results, scored)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.logger.WithFields(logrus.Fields{
		"query_tokens": len(queryTokens),
		"candidates":   len(candidates),
		"matches":      len(results),
		"duration":     time.Since(start),
	}).Debug("Search completed")

	return results, nil
}

// contextDone also compares the deadline with the clock, since a context
// timer may not have fired yet when its deadline has already passed.
func contextDone(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}
