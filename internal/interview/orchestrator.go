// Package interview drives a phased mock interview: it owns the session
// state machine, builds generation instructions per phase and turns model
// output into the ordered lines the transport speaks.
package interview

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/mock-interviewer/internal/llm"
	"github.com/jonathan/mock-interviewer/internal/logging"
	"github.com/jonathan/mock-interviewer/internal/metrics"
)

const (
	// KickoffInput is sent to the generator right after setup so the
	// interviewer asks its opening question without waiting for the candidate.
	KickoffInput = "Start the interview now."

	// ApologyMessage replaces any reply lost to an upstream failure.
	ApologyMessage = "I'm sorry, something went wrong on my end. Could you please try that again?"

	// DefaultGenerationTimeout bounds a single generation call.
	DefaultGenerationTimeout = 30 * time.Second
)

// ReplyKind classifies an outbound line
type ReplyKind string

const (
	ReplyAnswer     ReplyKind = "answer"
	ReplyTransition ReplyKind = "transition"
	ReplyPrompt     ReplyKind = "prompt"
	ReplyError      ReplyKind = "error"
)

// Reply is one line to be voiced to the candidate
type Reply struct {
	Kind ReplyKind `json:"kind"`
	Text string    `json:"text"`
}

// TurnResult is the outcome of one turn. Replies are in speaking order and
// a transition line, when present, is always last.
type TurnResult struct {
	Phase         Phase   `json:"phase"`
	PreviousPhase Phase   `json:"previous_phase"`
	Replies       []Reply `json:"replies"`
	Transitioned  bool    `json:"transitioned"`
}

// SetupInput carries the setup form
type SetupInput struct {
	ResumeText string
	// Skills is the raw comma separated list; empty routes the candidate
	// through the spoken skills and role prompts
	Skills string
	// TargetRole is optional and only stored together with Skills
	TargetRole string
}

// Options configures an Orchestrator
type Options struct {
	GenerationTimeout time.Duration
	Logger            *zap.Logger
	Metrics           *metrics.Metrics
}

// Orchestrator runs interview turns against a session store
type Orchestrator struct {
	store     Store
	generator llm.Generator
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator creates an orchestrator. Zero options fall back to defaults.
func NewOrchestrator(store Store, generator llm.Generator, opts Options) *Orchestrator {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = DefaultGenerationTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Orchestrator{
		store:     store,
		generator: generator,
		timeout:   opts.GenerationTimeout,
		logger:    logging.OrNop(opts.Logger).Named("orchestrator"),
		metrics:   opts.Metrics,
	}
}

// Connect starts a fresh session for clientID and returns the greeting.
func (o *Orchestrator) Connect(clientID string) TurnResult {
	o.store.Create(clientID)
	o.metrics.SetActiveSessions(o.store.Len())
	o.logger.Info("session created", zap.String("client_id", clientID))

	return TurnResult{
		Phase:         PhaseIntroduction,
		PreviousPhase: PhaseIntroduction,
		Replies:       []Reply{{Kind: ReplyPrompt, Text: CannedMessage(PhaseIntroduction)}},
	}
}

// Disconnect removes the client's session. In-flight turns discard their results.
func (o *Orchestrator) Disconnect(clientID string) {
	o.store.Remove(clientID)
	o.metrics.SetActiveSessions(o.store.Len())
	o.logger.Info("session removed", zap.String("client_id", clientID))
}

// Session returns a snapshot of the client's session.
func (o *Orchestrator) Session(clientID string) (State, bool) {
	session, ok := o.store.Get(clientID)
	if !ok {
		return State{}, false
	}
	return session.State(), true
}

// HandleUtterance runs one turn for a candidate utterance.
//
// Upstream generation failures do not surface as errors: the result carries a
// single ReplyError apology and the session is left untouched. Errors are
// returned only for a missing session, one closed while the turn ran, or a
// cancelled ctx.
func (o *Orchestrator) HandleUtterance(ctx context.Context, clientID, text string) (TurnResult, error) {
	session, ok := o.store.Get(clientID)
	if !ok {
		return TurnResult{}, &SessionNotFoundError{ClientID: clientID}
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if session.Closed() {
		return TurnResult{}, ErrSessionClosed
	}

	start := time.Now()
	phase := session.Phase()
	text = strings.TrimSpace(text)

	var (
		result  TurnResult
		outcome string
		err     error
	)
	switch {
	case text == "":
		result, outcome = TurnResult{Phase: phase, PreviousPhase: phase}, "ignored"
	case phase == PhaseIntroduction:
		result, outcome = reprompt(phase), "reprompt"
	case phase.IsDataCollection():
		result, outcome, err = o.collect(session, phase, text)
	default:
		result, outcome, err = o.converse(ctx, session, phase, text)
	}

	o.metrics.RecordTurn(phase.String(), outcome, time.Since(start).Seconds())
	return result, err
}

// Setup stores the setup form and starts the interview.
//
// With skills the session jumps to BEHAVIORAL and the kickoff turn produces
// the first question. Without skills it moves to AWAITING_SKILLS and the
// candidate supplies skills and role by voice.
func (o *Orchestrator) Setup(ctx context.Context, clientID string, input SetupInput) (TurnResult, error) {
	session, ok := o.store.Get(clientID)
	if !ok {
		return TurnResult{}, &SessionNotFoundError{ClientID: clientID}
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	state := session.State()
	if state.HasResume() || state.Phase != PhaseIntroduction {
		return TurnResult{}, ErrAlreadyConfigured
	}

	resume := input.ResumeText
	skills := parseSkills(input.Skills)
	role := strings.TrimSpace(input.TargetRole)

	next := PhaseAwaitingSkills
	if len(skills) > 0 {
		next = PhaseBehavioral
	}

	err := session.commit(func(s *Session) {
		s.resumeText = &resume
		s.phase = next
		if len(skills) > 0 {
			s.skills = skills
			if role != "" {
				s.targetRole = &role
			}
		}
	})
	if err != nil {
		return TurnResult{}, err
	}

	o.metrics.RecordTransition(PhaseIntroduction.String(), next.String())
	o.logger.Info("interview configured",
		zap.String("client_id", clientID),
		zap.String("phase", next.String()),
		zap.Int("skills", len(skills)),
		zap.Int("resume_chars", len(resume)),
	)

	result := TurnResult{
		Phase:         next,
		PreviousPhase: PhaseIntroduction,
		Transitioned:  true,
		Replies:       []Reply{{Kind: ReplyTransition, Text: CannedMessage(next)}},
	}
	if next != PhaseBehavioral {
		return result, nil
	}

	kickoff, _, err := o.converse(ctx, session, next, KickoffInput)
	if err != nil {
		return TurnResult{}, err
	}
	result.Phase = kickoff.Phase
	result.Replies = append(result.Replies, kickoff.Replies...)
	return result, nil
}

// collect stores skills or role from a data-collection utterance.
func (o *Orchestrator) collect(session *Session, phase Phase, text string) (TurnResult, string, error) {
	var skills []string
	if phase == PhaseAwaitingSkills {
		skills = parseSkills(text)
		if len(skills) == 0 {
			return reprompt(phase), "reprompt", nil
		}
	}

	var next Phase
	err := session.commit(func(s *Session) {
		switch phase {
		case PhaseAwaitingSkills:
			s.skills = skills
		case PhaseAwaitingRole:
			role := text
			s.targetRole = &role
		}
		next, _ = s.advance()
	})
	if err != nil {
		return TurnResult{}, "closed", err
	}

	o.metrics.RecordTransition(phase.String(), next.String())
	o.logger.Debug("setup data collected",
		zap.String("client_id", session.ClientID()),
		zap.String("from", phase.String()),
		zap.String("to", next.String()),
	)

	return TurnResult{
		Phase:         next,
		PreviousPhase: phase,
		Transitioned:  true,
		Replies:       []Reply{{Kind: ReplyPrompt, Text: CannedMessage(next)}},
	}, "ok", nil
}

// converse runs a generation turn. The caller holds the session's turn lock.
func (o *Orchestrator) converse(ctx context.Context, session *Session, phase Phase, input string) (TurnResult, string, error) {
	state := session.State()
	instructions := BuildInstructions(state)

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reply, err := o.generator.Generate(genCtx, instructions, state.History, input)
	if err != nil {
		if session.Closed() {
			return TurnResult{}, "closed", ErrSessionClosed
		}
		// The caller went away; nothing is left to apologise to
		if ctx.Err() != nil {
			return TurnResult{}, "canceled", ctx.Err()
		}
		genErr := &GenerationError{Phase: phase, Cause: err}
		o.metrics.RecordUpstreamFailure(metrics.CapabilityLLM)
		o.logger.Error("generation failed",
			zap.String("client_id", session.ClientID()),
			zap.String("phase", phase.String()),
			zap.Error(genErr),
		)
		return TurnResult{
			Phase:         phase,
			PreviousPhase: phase,
			Replies:       []Reply{{Kind: ReplyError, Text: ApologyMessage}},
		}, "apology", nil
	}

	extraction := ExtractMarker(reply)
	next, transitioned := o.resolveMarker(session.ClientID(), phase, extraction)

	// History keeps the reply as generated so the model sees its own markers
	err = session.commit(func(s *Session) {
		s.appendTurn(input, reply)
		if transitioned {
			s.phase = next
		}
	})
	if err != nil {
		return TurnResult{}, "closed", err
	}

	result := TurnResult{Phase: phase, PreviousPhase: phase}
	if extraction.Text != "" {
		result.Replies = append(result.Replies, Reply{Kind: ReplyAnswer, Text: extraction.Text})
	}
	if transitioned {
		o.metrics.RecordTransition(phase.String(), next.String())
		o.logger.Info("phase transition",
			zap.String("client_id", session.ClientID()),
			zap.String("from", phase.String()),
			zap.String("to", next.String()),
		)
		result.Phase = next
		result.Transitioned = true
		result.Replies = append(result.Replies, Reply{Kind: ReplyTransition, Text: CannedMessage(next)})
	}
	return result, "ok", nil
}

// resolveMarker decides whether the reply closes the current phase.
// Markers for any other phase are dropped so the interview cannot skip or regress.
func (o *Orchestrator) resolveMarker(clientID string, phase Phase, extraction Extraction) (Phase, bool) {
	for _, stray := range extraction.Stray {
		o.metrics.RecordMarkerAnomaly("stray")
		o.logger.Warn("stray completion marker",
			zap.String("client_id", clientID),
			zap.String("phase", phase.String()),
			zap.String("token", stray),
		)
	}

	closing := MarkerFor(phase)
	for _, marker := range extraction.Found {
		if marker == closing {
			continue
		}
		o.metrics.RecordMarkerAnomaly("out_of_phase")
		o.logger.Warn("completion marker for another phase",
			zap.String("client_id", clientID),
			zap.String("phase", phase.String()),
			zap.String("marker", string(marker)),
		)
	}

	if closing == MarkerNone || !extraction.Has(closing) {
		return phase, false
	}
	return Advance(phase)
}

func reprompt(phase Phase) TurnResult {
	return TurnResult{
		Phase:         phase,
		PreviousPhase: phase,
		Replies:       []Reply{{Kind: ReplyPrompt, Text: CannedMessage(phase)}},
	}
}
