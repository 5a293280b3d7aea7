package domain

import "time"

// Stage represents the wizard stage a session has reached. Transitions
// only move forward on success of the corresponding operation; a failed
// operation leaves the stage untouched.
type Stage string

const (
	StageInit              Stage = "init"
	StageBusinessCollected Stage = "business_info_collected"
	StageIdeasGenerated    Stage = "ideas_generated"
	StageMemesExported     Stage = "memes_exported"
)

// Session holds the in-memory pipeline state of one workflow run:
// profile, idea table, and the artifacts generated against that table.
// Callers must not share a Session across goroutines without their own
// synchronization; each user session is independent.
type Session struct {
	ID        string               `json:"id"`
	Stage     Stage                `json:"stage"`
	Profile   *BusinessProfile     `json:"profile,omitempty"`
	Ideas     IdeaTable            `json:"ideas,omitempty"`
	Artifacts map[int]MemeArtifact `json:"artifacts,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewSession creates a session in the initial stage.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Stage:     StageInit,
		Artifacts: make(map[int]MemeArtifact),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetProfile stores a validated business profile and advances the
// session to StageBusinessCollected. Allowed before ideas exist;
// changing the profile after generation would silently desync table
// and profile, so it is rejected.
// Parameters:
//   - profile: validated profile to store.
// Returns:
//   - error: *StageError if ideas were already generated.
func (s *Session) SetProfile(profile *BusinessProfile) error {
	if s.Stage != StageInit && s.Stage != StageBusinessCollected {
		return &StageError{Stage: s.Stage, Op: "set_profile"}
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	s.Profile = profile
	s.Stage = StageBusinessCollected
	s.UpdatedAt = time.Now()
	return nil
}

// SetIdeas installs a freshly generated idea table and advances (or
// returns) the session to StageIdeasGenerated. All existing artifacts
// are discarded: they reference row indices of the previous table.
// Parameters:
//   - table: parsed idea table (non-empty, already validated).
// Returns:
//   - error: *StageError if no profile has been collected yet.
func (s *Session) SetIdeas(table IdeaTable) error {
	if s.Stage == StageInit {
		return &StageError{Stage: s.Stage, Op: "set_ideas"}
	}
	s.Ideas = table
	s.Artifacts = make(map[int]MemeArtifact)
	s.Stage = StageIdeasGenerated
	s.UpdatedAt = time.Now()
	return nil
}

// PutArtifact records a generated meme for a row of the current table,
// replacing any prior artifact for the same index.
// Parameters:
//   - artifact: artifact with a RowIndex inside the current table.
// Returns:
//   - error: *StageError before ideas exist, *ValidationError for an
//     out-of-range row index.
func (s *Session) PutArtifact(artifact MemeArtifact) error {
	if s.Stage != StageIdeasGenerated && s.Stage != StageMemesExported {
		return &StageError{Stage: s.Stage, Op: "put_artifact"}
	}
	if artifact.RowIndex < 0 || artifact.RowIndex >= len(s.Ideas) {
		return &ValidationError{Field: "row_index", Reason: "outside current idea table"}
	}
	s.Artifacts[artifact.RowIndex] = artifact
	s.UpdatedAt = time.Now()
	return nil
}

// MarkExported advances the session to StageMemesExported. Export is
// repeatable: the bundle is derived state, so re-export from
// StageMemesExported is allowed.
// Parameters: none.
// Returns:
//   - error: *StageError if ideas have not been generated.
func (s *Session) MarkExported() error {
	if s.Stage != StageIdeasGenerated && s.Stage != StageMemesExported {
		return &StageError{Stage: s.Stage, Op: "mark_exported"}
	}
	s.Stage = StageMemesExported
	s.UpdatedAt = time.Now()
	return nil
}
