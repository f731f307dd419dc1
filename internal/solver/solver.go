// Package solver finds a hidden target word from oracle similarities alone. It seeds the oracle
// with a diversified word sample, reconstructs the target direction by least squares, and probes
// the nearest unprobed words until one scores 1.0 or a budget runs out.
package solver

import (
	"context"
	"time"

	"github.com/j0hanj0han/cemantix/internal/config"
	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"github.com/j0hanj0han/cemantix/internal/vector"
	"go.uber.org/zap"
)

// EmbeddingSpace is the read-only vocabulary the solver reasons over. It must come from the same
// model the oracle scores with; words it lacks are simply never proposed.
type EmbeddingSpace interface {
	Lookup(word string) ([]float32, bool)
	NearestTo(ctx context.Context, vec []float32, count int, minSimilarity float64) ([]*vector.VectorResult, error)
	Dimensions() int
	Size() int
}

// State is a search controller phase.
type State string

const (
	StateSeeding        State = "seeding"
	StateReconstructing State = "reconstructing"
	StateRefining       State = "refining"
	StateSolved         State = "solved"
	StateExhausted      State = "exhausted"
)

// Termination reasons reported in SolveResult.Reason.
const (
	ReasonMatch            = "exact match"
	ReasonInsufficientData = "too few usable seed probes"
	ReasonNoCandidates     = "no new candidates"
	ReasonIterationCap     = "iteration cap reached"
	ReasonCallBudget       = "call budget reached"
	ReasonTimeBudget       = "time budget reached"
	ReasonCancelled        = "cancelled"
)

// Solver runs solve sessions. It holds no session state, so one Solver may serve sequential
// sessions; each session owns its own ledger and estimate.
type Solver struct {
	space  EmbeddingSpace
	oracle oracle.Oracle
	config config.SolverConfig
	logger *zap.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for probe and round output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a solver. cfg is copied and its zero values replaced by defaults.
func New(space EmbeddingSpace, o oracle.Oracle, cfg *config.SolverConfig, opts ...Option) *Solver {
	s := &Solver{space: space, oracle: o, logger: zap.NewNop()}
	if cfg != nil {
		s.config = *cfg
	}
	config.ApplySolverDefaults(&s.config)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve runs one session with a throwaway Solver.
func Solve(ctx context.Context, puzzleID string, space EmbeddingSpace, o oracle.Oracle, cfg *config.SolverConfig) (*models.SolveResult, error) {
	return New(space, o, cfg).Solve(ctx, puzzleID)
}

// session is the state of one Solve call, discarded on return.
type session struct {
	puzzle       string
	ledger       *Ledger
	estimate     []float32
	requests     int
	rounds       int
	emptyBatches int
	start        time.Time
	word         string
	reason       string
}

// Solve searches for puzzleID's target. Errors are returned only for setup failures; oracle
// failures, budgets, and cancellation all end in a result with Outcome exhausted.
func (s *Solver) Solve(ctx context.Context, puzzleID string) (*models.SolveResult, error) {
	if s.space == nil || s.space.Size() == 0 {
		return nil, ErrEmbeddingSpaceUnavailable
	}
	if s.oracle == nil {
		return nil, ErrNoOracle
	}

	sess := &session{puzzle: puzzleID, ledger: NewLedger(), start: time.Now()}
	logger := s.logger.With(zap.String("puzzle", puzzleID))
	logger.Info("solve started",
		zap.Int("vocabulary", s.space.Size()),
		zap.Int("seeds", len(s.config.Seeds)))

	state := StateSeeding
	for state != StateSolved && state != StateExhausted {
		next := s.step(ctx, sess, state, logger)
		if next != state {
			logger.Debug("state change", zap.String("from", string(state)), zap.String("to", string(next)))
		}
		state = next
	}

	result := s.result(sess, state)
	logger.Info("solve finished",
		zap.String("outcome", string(result.Outcome)),
		zap.String("word", result.Word),
		zap.String("reason", result.Reason),
		zap.Int("probes", result.CallCount),
		zap.Int("requests", result.Requests),
		zap.Int("rounds", result.Rounds),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (s *Solver) step(ctx context.Context, sess *session, state State, logger *zap.Logger) State {
	switch state {
	case StateSeeding:
		return s.seed(ctx, sess, logger)
	case StateReconstructing:
		return s.reconstruct(sess, logger)
	case StateRefining:
		return s.refine(ctx, sess, logger)
	}
	return state
}

// seed probes the configured seed words that exist in the local vocabulary.
func (s *Solver) seed(ctx context.Context, sess *session, logger *zap.Logger) State {
	for _, word := range s.config.Seeds {
		if _, ok := s.space.Lookup(word); !ok {
			logger.Debug("seed not in vocabulary", zap.String("word", word))
			continue
		}
		if next, done := s.probe(ctx, sess, word, logger); done {
			return next
		}
	}
	logger.Info("seeding complete", zap.Int("probes", sess.ledger.Len()), zap.Int("requests", sess.requests))
	return StateReconstructing
}

func (s *Solver) reconstruct(sess *session, logger *zap.Logger) State {
	estimate, used, err := Reconstruct(s.space, sess.ledger.Probes(), s.config.Floor(), s.config.MinProbes)
	if err != nil {
		if sess.estimate == nil {
			logger.Warn("cannot reconstruct target", zap.Int("usable", used), zap.Int("required", s.config.MinProbes))
			sess.reason = ReasonInsufficientData
			return StateExhausted
		}
		logger.Debug("reconstruction failed, keeping previous estimate", zap.Error(err))
		return StateRefining
	}
	sess.estimate = estimate
	logger.Debug("target reconstructed", zap.Int("usable", used))
	return StateRefining
}

// refine runs one round: rank candidates from the estimate and probe them in order.
func (s *Solver) refine(ctx context.Context, sess *session, logger *zap.Logger) State {
	if sess.rounds >= s.config.MaxIterations {
		sess.reason = ReasonIterationCap
		return StateExhausted
	}
	if reason := s.budgetExceeded(ctx, sess); reason != "" {
		sess.reason = reason
		return StateExhausted
	}
	sess.rounds++

	size := s.config.CandidateBatchSize
	if sess.rounds == 1 && s.config.InitialBatchSize > 0 {
		size = s.config.InitialBatchSize
	}
	candidates, err := RankCandidates(ctx, s.space, sess.estimate, sess.ledger, size, s.config.Threshold())
	if err != nil {
		logger.Warn("ranking failed", zap.Int("round", sess.rounds), zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		sess.emptyBatches++
		logger.Info("empty candidate batch", zap.Int("round", sess.rounds), zap.Int("consecutive", sess.emptyBatches))
		if sess.emptyBatches >= s.config.MaxEmptyBatches {
			sess.reason = ReasonNoCandidates
			return StateExhausted
		}
		return StateReconstructing
	}
	sess.emptyBatches = 0

	before := sess.ledger.Len()
	for _, c := range candidates {
		if next, done := s.probe(ctx, sess, c.Word, logger); done {
			return next
		}
	}
	fields := []zap.Field{
		zap.Int("round", sess.rounds),
		zap.Int("candidates", len(candidates)),
		zap.Int("new_probes", sess.ledger.Len()-before),
	}
	if best := sess.ledger.Best(); best != nil {
		fields = append(fields, zap.String("best_word", best.Word), zap.Float64("best_similarity", best.Similarity))
	}
	logger.Info("round complete", fields...)
	return StateReconstructing
}

// probe queries one word and records the result. done is true when the session must stop,
// with next being the terminal state.
func (s *Solver) probe(ctx context.Context, sess *session, word string, logger *zap.Logger) (next State, done bool) {
	if sess.ledger.Excluded(word) {
		return "", false
	}
	sess.requests++
	score, err := s.oracle.Probe(ctx, sess.puzzle, word)
	if err != nil {
		sess.ledger.MarkFailed(word)
		logger.Debug("probe unknown", zap.String("word", word), zap.Error(err))
	} else {
		p := models.Probe{Word: word, Similarity: score.Similarity, Rank: score.Rank}
		sess.ledger.Add(p)
		fields := []zap.Field{
			zap.String("word", word),
			zap.Float64("similarity", p.Similarity),
			zap.Int("attempt", sess.ledger.Len()),
		}
		if p.Rank != nil {
			fields = append(fields, zap.Int("rank", *p.Rank))
		}
		logger.Debug("probe", fields...)
		if p.IsMatch() {
			sess.word = word
			sess.reason = ReasonMatch
			return StateSolved, true
		}
	}
	if reason := s.budgetExceeded(ctx, sess); reason != "" {
		sess.reason = reason
		return StateExhausted, true
	}
	return "", false
}

func (s *Solver) budgetExceeded(ctx context.Context, sess *session) string {
	if ctx.Err() != nil {
		return ReasonCancelled
	}
	if s.config.MaxCalls > 0 && sess.requests >= s.config.MaxCalls {
		return ReasonCallBudget
	}
	if d := s.config.MaxDuration(); d > 0 && time.Since(sess.start) >= d {
		return ReasonTimeBudget
	}
	return ""
}

func (s *Solver) result(sess *session, state State) *models.SolveResult {
	result := &models.SolveResult{
		Puzzle:    sess.puzzle,
		Probes:    sess.ledger.Probes(),
		CallCount: sess.ledger.Len(),
		Requests:  sess.requests,
		Rounds:    sess.rounds,
		Elapsed:   time.Since(sess.start),
		Best:      sess.ledger.Best(),
		Outcome:   models.OutcomeExhausted,
		Reason:    sess.reason,
	}
	if state == StateSolved {
		result.Found = true
		result.Word = sess.word
		result.Outcome = models.OutcomeSolved
	}
	return result
}
