package labeler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/FrenchMajesty/comment-labeler/adapters"
)

// Labeler runs the label pipeline: validate inputs, read the file, classify every row.
// It moves through Idle -> Validating -> Processing -> Done; input errors send it back to Idle.
type Labeler struct {
	cfg Config

	mu    sync.Mutex
	phase Phase
}

// New creates a Labeler in the Idle phase
func New(cfg Config) *Labeler {
	cfg.applyDefaults()
	return &Labeler{cfg: cfg, phase: PhaseIdle}
}

// Run labels every row of cfg.File with a fresh Labeler
func Run(ctx context.Context, cfg Config) (*OutputTable, error) {
	return New(cfg).Run(ctx)
}

// Phase returns the current phase
func (l *Labeler) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Run validates the inputs and, if they hold, classifies every row in order.
// Input problems return a *MissingInputError, *ParseError or *SchemaError before any
// client call. Once processing starts, per-row failures never stop the run.
func (l *Labeler) Run(ctx context.Context) (*OutputTable, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}

	rows, client, err := l.validate()
	if err != nil {
		l.setPhase(PhaseIdle)
		return nil, err
	}

	l.setPhase(PhaseProcessing)
	table := NewProcessor(client, l.cfg.Prompt, l.cfg.Reporter).Process(ctx, rows)
	l.setPhase(PhaseDone)

	return table, nil
}

// begin moves an idle or finished Labeler into Validating
func (l *Labeler) begin() error {
	l.mu.Lock()
	from := l.phase
	if from == PhaseValidating || from == PhaseProcessing {
		l.mu.Unlock()
		return ErrRunInProgress
	}
	l.phase = PhaseValidating
	l.mu.Unlock()

	if from == PhaseDone {
		l.cfg.Reporter.PhaseChanged(PhaseDone, PhaseIdle)
	}
	l.cfg.Reporter.PhaseChanged(PhaseIdle, PhaseValidating)
	return nil
}

func (l *Labeler) setPhase(to Phase) {
	l.mu.Lock()
	from := l.phase
	l.phase = to
	l.mu.Unlock()

	l.cfg.Reporter.PhaseChanged(from, to)
}

// validate checks the credential, file and prompt in that order, reads the
// rows, then builds the client. Nothing here calls the client.
func (l *Labeler) validate() ([]InputRow, Classifier, error) {
	cfg := l.cfg

	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil, &MissingInputError{Input: InputAPIKey}
	}
	if cfg.File == nil {
		return nil, nil, &MissingInputError{Input: InputFile}
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, nil, &MissingInputError{Input: InputPrompt}
	}

	rows, err := ReadRows(*cfg.File)
	if err != nil {
		return nil, nil, err
	}

	client, err := l.newClient()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create classification client: %w", err)
	}

	return rows, client, nil
}

// newClient builds the run's client from its credential
func (l *Labeler) newClient() (Classifier, error) {
	opts := l.cfg.clientOptions()
	if l.cfg.NewClient != nil {
		return l.cfg.NewClient(l.cfg.APIKey, opts)
	}

	apiKey := l.cfg.APIKey
	switch l.cfg.Provider {
	case ProviderOpenAI:
		return adapters.NewOpenAIClassifier(&apiKey, opts)
	case ProviderAnthropic:
		return adapters.NewAnthropicClassifier(&apiKey, opts)
	default:
		return nil, fmt.Errorf("unknown provider %q", l.cfg.Provider)
	}
}
