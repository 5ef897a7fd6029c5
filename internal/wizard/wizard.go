// Package wizard implements the two-phase intake state machine: general
// data and categorization first, then the category-specific questionnaire
// with attachments. Transitions are gated by validation; the final
// transition is gated by the append-only log write.
package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bmedtech/startup-intake/internal/models"
	"github.com/bmedtech/startup-intake/internal/questionnaire"
	"github.com/bmedtech/startup-intake/internal/storage"
	"github.com/bmedtech/startup-intake/internal/taxonomy"
)

// State is the session's wizard phase.
type State string

const (
	StateGeneral   State = "collecting_general"
	StateSpecific  State = "collecting_specific"
	StateSubmitted State = "submitted"
)

// ErrBadState rejects an operation invoked from the wrong phase.
var ErrBadState = errors.New("wizard: operation not allowed in current state")

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// ValidationErrors lists every violated rule of one transition attempt.
// The session stays in its current phase; staged values are untouched.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return "wizard: " + strings.Join(v, "; ")
}

// Recorder persists a completed intake: assembly plus the dual write.
// Implemented by the intake service.
type Recorder interface {
	Record(category string, general models.GeneralInfo, checklist models.TechChecklist, answers map[string]any, uploads []models.Upload) (*models.Submission, storage.Report)
}

// Machine holds the configuration shared by every session.
type Machine struct {
	tax      *taxonomy.Taxonomy
	resolver *questionnaire.Resolver
}

func NewMachine(tax *taxonomy.Taxonomy, resolver *questionnaire.Resolver) *Machine {
	return &Machine{tax: tax, resolver: resolver}
}

// Session is one applicant's transient wizard state. It holds no shared
// mutable state with other sessions; the mutex covers the hosting layer's
// per-session request interleaving.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	machine  *Machine
	state    State
	general  models.GeneralInfo
	category string
	lastUsed time.Time
}

func (m *Machine) NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		machine:   m,
		state:     StateGeneral,
		lastUsed:  now,
	}
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// General returns the staged phase-1 values for redisplay while editing.
func (s *Session) General() models.GeneralInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.general
}

// Category returns the resolved category; empty before phase 1 succeeds.
func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// LastUsed returns the time of the session's last transition attempt.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SubmitGeneral validates phase 1 and, on success, resolves the category
// and advances to the specific phase. Every violated rule is reported
// together; the session stays in the general phase on failure.
func (s *Session) SubmitGeneral(in models.GeneralInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.state != StateGeneral {
		return fmt.Errorf("%w: %s", ErrBadState, s.state)
	}

	var violations ValidationErrors
	if strings.TrimSpace(in.StartupName) == "" {
		violations = append(violations, "Nome da Startup é obrigatório.")
	}
	if in.Email == "" {
		violations = append(violations, "E-mail é obrigatório.")
	} else if !emailPattern.MatchString(in.Email) {
		violations = append(violations, "E-mail com formato inválido.")
	}

	category := ""
	switch {
	case in.Niche == "":
		violations = append(violations, "Nicho é obrigatório.")
	case in.Niche == taxonomy.UnlistedNiche:
		switch {
		case in.ManualCategory == "":
			violations = append(violations, "Selecione o Grupo Macro para nicho não listado.")
		case !s.machine.tax.HasCategory(in.ManualCategory):
			violations = append(violations, fmt.Sprintf("Grupo Macro desconhecido: %s.", in.ManualCategory))
		default:
			category = in.ManualCategory
		}
	default:
		resolved, ok := s.machine.tax.Resolve(in.Niche)
		if !ok {
			violations = append(violations, fmt.Sprintf("Nicho desconhecido: %s.", in.Niche))
		} else {
			category = resolved
		}
	}

	if len(violations) > 0 {
		return violations
	}

	s.general = in
	s.category = category
	s.state = StateSpecific
	return nil
}

// Edit moves the session back to the general phase for corrections. The
// previously entered general values stay staged for redisplay.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.state != StateSpecific {
		return fmt.Errorf("%w: %s", ErrBadState, s.state)
	}
	s.state = StateGeneral
	s.category = ""
	return nil
}

// Questions returns the field schema of the session's resolved category.
func (s *Session) Questions() ([]questionnaire.FieldSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSpecific {
		return nil, fmt.Errorf("%w: %s", ErrBadState, s.state)
	}
	return s.machine.resolver.QuestionsFor(s.category), nil
}

// Submit validates the phase-2 answers against the category schema and
// hands the accumulated record to the recorder. The session reaches the
// submitted state only when the log write succeeds; a tabular failure
// alone is surfaced through the report without blocking the transition.
func (s *Session) Submit(checklist models.TechChecklist, answers map[string]any, uploads []models.Upload, rec Recorder) (*models.Submission, storage.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.state != StateSpecific {
		return nil, storage.Report{}, fmt.Errorf("%w: %s", ErrBadState, s.state)
	}

	files := make(map[string]bool, len(uploads))
	for _, up := range uploads {
		if len(up.Data) > 0 {
			files[up.Field] = true
		}
	}
	if violations := s.machine.resolver.Validate(s.category, answers, files); len(violations) > 0 {
		return nil, storage.Report{}, ValidationErrors(violations)
	}

	sub, report := rec.Record(s.category, s.general, checklist, answers, uploads)
	if report.LogErr == nil {
		s.state = StateSubmitted
	}
	return sub, report, nil
}
