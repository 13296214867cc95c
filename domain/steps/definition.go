package steps

import (
	"github.com/pkg/errors"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
)

const (
	StepCompleteSaga         = "COMPLETE_SAGA"
	StepCompleteCompensation = "COMPLETE_COMPENSATION"

	NumberCompleteSaga         = 99
	NumberCompleteCompensation = 199

	// CompensationBase is the first compensation step number. Forward steps are numbered below it.
	CompensationBase = 100
)

// PayloadFunc builds the typed command payload of a step from the saga state.
type PayloadFunc func(state *entities.SagaState) (interface{}, error)

// ExtractFunc copies the saga relevant fields of a successful reply into state.
type ExtractFunc func(state *entities.SagaState, payload map[string]interface{}) error

// LocalFunc runs a step inside the orchestrator, without any external call.
type LocalFunc func(state *entities.SagaState) error

type Step struct {
	Number         int
	Name           string
	Description    string
	CommandType    string
	ReplyEventType string
	TargetService  string
	HasSideEffect  bool
	// Undoes names the forward step a compensation step reverts.
	Undoes   string
	Terminal bool

	Payload PayloadFunc
	Extract ExtractFunc
	Local   LocalFunc
}

func (s *Step) IsCompensation() bool {
	return s.Number >= CompensationBase
}

func (s *Step) IsLocal() bool {
	return s.Local != nil
}

// Definition is the ordered step table of one saga type.
type Definition struct {
	SagaType     entities.SagaType
	forward      []*Step
	compensation []*Step
	byName       map[string]*Step
	byNumber     map[int]*Step
}

// NewDefinition validates the tables and appends the terminal pseudo-steps.
func NewDefinition(sagaType entities.SagaType, forward, compensation []*Step) (*Definition, error) {
	if sagaType.Flow() == "" {
		return nil, errors.Wrapf(sagaerrors.ErrUnknownFlow, "saga type %s", sagaType)
	}
	d := &Definition{
		SagaType: sagaType,
		byName:   map[string]*Step{},
		byNumber: map[int]*Step{},
	}

	last := 0
	for _, s := range forward {
		if s.Number <= last || s.Number >= NumberCompleteSaga {
			return nil, errors.Errorf("forward step %s: number %d out of order", s.Name, s.Number)
		}
		last = s.Number
		if err := d.add(s); err != nil {
			return nil, err
		}
	}
	if len(forward) == 0 {
		return nil, errors.New("saga needs at least one forward step")
	}

	last = CompensationBase - 1
	for _, s := range compensation {
		if s.Number <= last || s.Number >= NumberCompleteCompensation {
			return nil, errors.Errorf("compensation step %s: number %d out of order", s.Name, s.Number)
		}
		last = s.Number
		undone, ok := d.byName[s.Undoes]
		if !ok || undone.IsCompensation() || !undone.HasSideEffect {
			return nil, errors.Errorf("compensation step %s must undo a forward step with side effect, got %q", s.Name, s.Undoes)
		}
		if err := d.add(s); err != nil {
			return nil, err
		}
	}

	d.forward = append(append([]*Step(nil), forward...), &Step{
		Number:      NumberCompleteSaga,
		Name:        StepCompleteSaga,
		Description: "Saga completed",
		Terminal:    true,
	})
	d.compensation = append(append([]*Step(nil), compensation...), &Step{
		Number:      NumberCompleteCompensation,
		Name:        StepCompleteCompensation,
		Description: "Compensation completed",
		Terminal:    true,
	})
	for _, s := range []*Step{d.forward[len(d.forward)-1], d.compensation[len(d.compensation)-1]} {
		d.byName[s.Name] = s
		d.byNumber[s.Number] = s
	}
	return d, nil
}

// MustDefinition is NewDefinition for static tables.
func MustDefinition(sagaType entities.SagaType, forward, compensation []*Step) *Definition {
	d, err := NewDefinition(sagaType, forward, compensation)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Definition) add(s *Step) error {
	if s.Name == "" {
		return errors.Errorf("step %d has no name", s.Number)
	}
	if _, dup := d.byName[s.Name]; dup {
		return errors.Errorf("duplicate step name %s", s.Name)
	}
	if s.Local == nil {
		if s.CommandType == "" || s.TargetService == "" || s.Payload == nil {
			return errors.Errorf("step %s needs a command type, target service and payload", s.Name)
		}
		cmd, ok := constants.CommandTypeForEvent(s.ReplyEventType)
		if !ok || cmd != s.CommandType {
			return errors.Errorf("step %s: reply %s does not answer %s", s.Name, s.ReplyEventType, s.CommandType)
		}
	}
	d.byName[s.Name] = s
	d.byNumber[s.Number] = s
	return nil
}

func (d *Definition) Flow() string {
	return d.SagaType.Flow()
}

func (d *Definition) First() *Step {
	return d.forward[0]
}

func (d *Definition) Step(name string) (*Step, bool) {
	s, ok := d.byName[name]
	return s, ok
}

func (d *Definition) StepByNumber(number int) (*Step, bool) {
	s, ok := d.byNumber[number]
	return s, ok
}

// ForwardSteps lists the forward steps in table order, without COMPLETE_SAGA.
func (d *Definition) ForwardSteps() []*Step {
	return append([]*Step(nil), d.forward[:len(d.forward)-1]...)
}

// CompensationSteps lists the compensation steps in table order, without COMPLETE_COMPENSATION.
func (d *Definition) CompensationSteps() []*Step {
	return append([]*Step(nil), d.compensation[:len(d.compensation)-1]...)
}

// AllSteps lists every non terminal step.
func (d *Definition) AllSteps() []*Step {
	return append(d.ForwardSteps(), d.CompensationSteps()...)
}

func (d *Definition) ForwardNames() []string {
	var names []string
	for _, s := range d.ForwardSteps() {
		names = append(names, s.Name)
	}
	return names
}

// TargetServices lists every service a command of this saga can be sent to.
func (d *Definition) TargetServices() []string {
	seen := map[string]bool{}
	var services []string
	for _, s := range d.AllSteps() {
		if s.TargetService == "" || seen[s.TargetService] {
			continue
		}
		seen[s.TargetService] = true
		services = append(services, s.TargetService)
	}
	return services
}

// NextStep returns the forward step following current; the last forward step leads to COMPLETE_SAGA.
func (d *Definition) NextStep(current string) (*Step, error) {
	for i, s := range d.forward {
		if s.Name != current {
			continue
		}
		if s.Terminal {
			return s, nil
		}
		return d.forward[i+1], nil
	}
	return nil, errors.Wrapf(sagaerrors.ErrUnknownStep, "forward step %s", current)
}

// FirstCompensationStep picks the compensation entry point: the first compensation step,
// in table order, whose forward step already ran. ok is false when nothing must be undone.
func (d *Definition) FirstCompensationStep(completed []string) (*Step, bool) {
	return d.nextApplicable(0, completed)
}

// NextCompensationStep continues compensation after current, skipping undo steps for
// forward steps that never ran, and ends at COMPLETE_COMPENSATION.
func (d *Definition) NextCompensationStep(current string, completed []string) (*Step, error) {
	for i, s := range d.compensation {
		if s.Name != current {
			continue
		}
		if s.Terminal {
			return s, nil
		}
		if next, ok := d.nextApplicable(i+1, completed); ok {
			return next, nil
		}
		return d.compensation[len(d.compensation)-1], nil
	}
	return nil, errors.Wrapf(sagaerrors.ErrUnknownStep, "compensation step %s", current)
}

func (d *Definition) nextApplicable(from int, completed []string) (*Step, bool) {
	done := map[string]bool{}
	for _, name := range completed {
		done[name] = true
	}
	for _, s := range d.compensation[from:] {
		if !s.Terminal && done[s.Undoes] {
			return s, true
		}
	}
	return nil, false
}

// Matches reports whether ev is the reply expected by step: the echoed step number, when
// present, must equal the step number and the event type must answer the step command.
func (d *Definition) Matches(step *Step, ev *entities.EventMessage) bool {
	if step == nil || ev == nil || step.Terminal || step.IsLocal() {
		return false
	}
	if ev.StepID != 0 && ev.StepID != step.Number {
		return false
	}
	cmd, ok := constants.CommandTypeForEvent(ev.Type)
	return ok && cmd == step.CommandType
}
