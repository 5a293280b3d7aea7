package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/logger"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for operations on unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// managedSession pairs a session with its own lock so one session's
// long remote calls never block another's.
type managedSession struct {
	mu      sync.Mutex
	session *domain.Session
}

// Pipeline orchestrates the three-stage workflow over independent
// sessions: profile capture, idea-table generation, and meme
// generation plus export. All state is in memory for the lifetime of
// the process; the only durable outputs are the run artifacts on disk.
type Pipeline struct {
	gen       Generator
	builder   *PromptBuilder
	parser    *TableParser
	batch     *BatchProcessor
	assembler *ExportAssembler
	logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewPipeline creates a new pipeline orchestrator.
func NewPipeline(gen Generator, builder *PromptBuilder, parser *TableParser, batch *BatchProcessor, assembler *ExportAssembler, log *logger.Logger) *Pipeline {
	return &Pipeline{
		gen:       gen,
		builder:   builder,
		parser:    parser,
		batch:     batch,
		assembler: assembler,
		logger:    log,
		sessions:  make(map[string]*managedSession),
	}
}

// log returns the injected logger enriched with the tracing fields
// carried by ctx.
func (p *Pipeline) log(ctx context.Context) *logger.Logger {
	return p.logger.WithFields(logger.TracingFields(ctx))
}

// CreateSession starts a new workflow session in the initial stage.
// Parameters: none.
// Returns:
//   - *domain.Session: snapshot of the new session.
func (p *Pipeline) CreateSession() *domain.Session {
	session := domain.NewSession(uuid.New().String())

	p.mu.Lock()
	p.sessions[session.ID] = &managedSession{session: session}
	p.mu.Unlock()

	p.logger.WithField(logger.FieldSessionID, session.ID).Info("Session created")
	return snapshot(session)
}

// GetSession returns a snapshot of a session.
// Parameters:
//   - id: session id.
//
// Returns:
//   - *domain.Session: copy safe for concurrent reads.
//   - error: ErrSessionNotFound for unknown ids.
func (p *Pipeline) GetSession(id string) (*domain.Session, error) {
	ms, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return snapshot(ms.session), nil
}

// SetProfile validates and stores the business profile, advancing the
// session to StageBusinessCollected.
// Parameters:
//   - id: session id.
//   - profile: business facts from the first wizard stage.
//
// Returns:
//   - *domain.Session: updated snapshot.
//   - error: ErrSessionNotFound, *domain.ValidationError, or
//     *domain.StageError; the session is untouched on failure.
func (p *Pipeline) SetProfile(id string, profile *domain.BusinessProfile) (*domain.Session, error) {
	ms, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if err := ms.session.SetProfile(profile); err != nil {
		return nil, err
	}
	p.logger.WithFields(logger.Fields{
		logger.FieldSessionID: id,
		logger.FieldStage:     string(ms.session.Stage),
	}).Info("Business profile collected")
	return snapshot(ms.session), nil
}

// GenerateIdeas runs the table-generation stage: prompt construction,
// text-model invocation, strict parsing, and the CSV artifact write.
// Regeneration discards all artifacts of the previous table.
// Parameters:
//   - ctx: context for cancellation.
//   - id: session id.
//
// Returns:
//   - domain.IdeaTable: the freshly installed table.
//   - error: taxonomy error from any stage; session state is unchanged
//     on failure.
func (p *Pipeline) GenerateIdeas(ctx context.Context, id string) (domain.IdeaTable, error) {
	ms, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ctx = logger.SetSessionID(ctx, id)

	if ms.session.Stage == domain.StageInit {
		return nil, &domain.StageError{Stage: ms.session.Stage, Op: "generate_ideas"}
	}

	prompt, err := p.builder.BuildIdeaTablePrompt(ms.session.Profile)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := p.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	table, err := p.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	if _, err := p.assembler.WriteCSV(table); err != nil {
		return nil, err
	}

	if err := ms.session.SetIdeas(table); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(table),
	}).Info(ctx, "Idea table generated")

	return table, nil
}

// GenerateMemes runs the image-generation stage for the selected rows.
// Parameters:
//   - ctx: context; cancellation stops issuing new rows.
//   - id: session id.
//   - indices: selected row indices; nil selects every row; an empty
//     non-nil slice is a no-op.
//
// Returns:
//   - map[int]RowResult: per-row outcomes; failures are entries, never
//     batch aborts.
//   - error: ErrSessionNotFound or *domain.StageError only.
func (p *Pipeline) GenerateMemes(ctx context.Context, id string, indices []int) (map[int]RowResult, error) {
	ms, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ctx = logger.SetSessionID(ctx, id)

	if ms.session.Stage != domain.StageIdeasGenerated && ms.session.Stage != domain.StageMemesExported {
		return nil, &domain.StageError{Stage: ms.session.Stage, Op: "generate_memes"}
	}

	if indices == nil {
		indices = make([]int, len(ms.session.Ideas))
		for i := range indices {
			indices[i] = i
		}
	}

	results := p.batch.ProcessBatch(ctx, ms.session.Ideas, indices)

	for _, r := range results {
		if r.Artifact == nil {
			continue
		}
		if err := ms.session.PutArtifact(*r.Artifact); err != nil {
			// Row index was validated by the batch; failure here means
			// the session stage changed underneath, which the lock
			// prevents.
			p.log(ctx).WithField(logger.FieldRow, r.RowIndex).WithError(err).Error("Failed to record artifact")
		}
	}

	return results, nil
}

// Export runs the export stage and advances the session to
// StageMemesExported. Export is repeatable; prior stages' state is
// untouched by a failure, so it can simply be retried.
// Parameters:
//   - ctx: context for logging.
//   - id: session id.
//
// Returns:
//   - *domain.ExportBundle: written bundle paths.
//   - error: ErrSessionNotFound, *domain.StageError, or
//     *domain.ExportError.
func (p *Pipeline) Export(ctx context.Context, id string) (*domain.ExportBundle, error) {
	ms, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ctx = logger.SetSessionID(ctx, id)

	if ms.session.Stage != domain.StageIdeasGenerated && ms.session.Stage != domain.StageMemesExported {
		return nil, &domain.StageError{Stage: ms.session.Stage, Op: "export"}
	}

	bundle, err := p.assembler.Assemble(ctx, ms.session.Ideas, ms.session.Artifacts)
	if err != nil {
		return nil, err
	}

	if err := ms.session.MarkExported(); err != nil {
		return nil, err
	}

	return bundle, nil
}

// WorkbookPath returns the destination path of the workbook artifact.
func (p *Pipeline) WorkbookPath() string {
	return p.assembler.WorkbookPath()
}

func (p *Pipeline) lookup(id string) (*managedSession, error) {
	p.mu.RLock()
	ms, ok := p.sessions[id]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms, nil
}

// snapshot copies the session so callers can read it without holding
// the session lock. Artifact image bytes are shared, not copied; they
// are immutable once recorded.
func snapshot(s *domain.Session) *domain.Session {
	out := *s
	out.Ideas = append(domain.IdeaTable(nil), s.Ideas...)
	out.Artifacts = make(map[int]domain.MemeArtifact, len(s.Artifacts))
	for k, v := range s.Artifacts {
		out.Artifacts[k] = v
	}
	return &out
}
