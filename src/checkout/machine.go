package checkout

import (
	"errors"
	"sync"

	"festreg/src/models"
	"festreg/src/store"
)

type Step string

const (
	STEP_SELECT  Step = "select"
	STEP_FORMS   Step = "forms"
	STEP_REVIEW  Step = "review"
	STEP_PAYMENT Step = "payment"
)

// stepTransitions lists the forward edge of each step. Backward
// navigation is always allowed one step at a time; "back" from select is
// the browser's concern.
var stepTransitions = map[Step]Step{
	STEP_SELECT: STEP_FORMS,
	STEP_FORMS:  STEP_REVIEW,
	STEP_REVIEW: STEP_PAYMENT,
}

var stepOrder = []Step{STEP_SELECT, STEP_FORMS, STEP_REVIEW, STEP_PAYMENT}

func prevStep(s Step) (Step, bool) {
	for i, step := range stepOrder {
		if step == s && i > 0 {
			return stepOrder[i-1], true
		}
	}
	return s, false
}

var (
	ErrNothingSelected  = errors.New("select at least one event or a visitor pass to continue")
	ErrValidationFailed = errors.New("please fix the highlighted fields")
	ErrNoFurtherStep    = errors.New("checkout is already at the final step")
)

// Machine owns the canonical checkout state for one tab session. It
// hydrates from the state store on attach, debounce-persists every
// mutation, and clears the store when the flow is abandoned. File
// attachments are kept on the machine itself, outside the persisted
// state.
type Machine struct {
	mu sync.Mutex

	SessionID string
	Catalog   models.Catalog

	step  Step
	state State

	files       map[string]map[string]*FileAttachment
	memberFiles map[string]map[int]*FileAttachment

	store *store.Store
}

func NewMachine(sessionID string, catalog models.Catalog, st *store.Store) *Machine {
	return &Machine{
		SessionID:   sessionID,
		Catalog:     catalog,
		step:        STEP_SELECT,
		state:       NewState(),
		files:       map[string]map[string]*FileAttachment{},
		memberFiles: map[string]map[int]*FileAttachment{},
		store:       st,
	}
}

// Hydrate overwrites the empty defaults with whatever the store still
// holds for this session. Missing keys keep their defaults; the applied
// promo and files are never restored.
func (m *Machine) Hydrate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var step Step
	if m.store.Load(store.KEY_STEP, &step) {
		if _, ok := stepIndex(step); ok {
			m.step = step
		}
	}
	m.store.Load(store.KEY_SELECTED_EVENTS, &m.state.SelectedEventIDs)
	m.store.Load(store.KEY_VISITOR_DAYS, &m.state.VisitorPassDays)
	m.store.Load(store.KEY_VISITOR_DETAILS, &m.state.VisitorPassDetails)
	m.store.Load(store.KEY_FLAGSHIP, &m.state.FlagshipBenefitsByEvent)
	m.store.Load(store.KEY_FORM_DATA, &m.state.FormDataBySignature)
	m.store.Load(store.KEY_TEAM_MEMBERS, &m.state.TeamMembersBySignature)
	m.store.Load(store.KEY_PROMO_INPUT, &m.state.PromoInput)
}

func stepIndex(s Step) (int, bool) {
	for i, step := range stepOrder {
		if step == s {
			return i, true
		}
	}
	return 0, false
}

func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Snapshot returns a copy of the current state for read-only use.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Update applies a sparse mutation and schedules persistence for every
// touched field. This is the only write path into the state.
func (m *Machine) Update(p Partial) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.SelectedEventIDs != nil {
		m.state.SelectedEventIDs = dedupeIDs(*p.SelectedEventIDs)
		m.store.Save(store.KEY_SELECTED_EVENTS, m.state.SelectedEventIDs)
	}
	if p.VisitorPassDays != nil {
		days := *p.VisitorPassDays
		if days < 0 {
			days = 0
		}
		if days > 3 {
			days = 3
		}
		m.state.VisitorPassDays = days
		m.store.Save(store.KEY_VISITOR_DAYS, m.state.VisitorPassDays)
	}
	if p.VisitorPassDetails != nil {
		m.state.VisitorPassDetails = p.VisitorPassDetails
		m.store.Save(store.KEY_VISITOR_DETAILS, m.state.VisitorPassDetails)
	}
	if p.FlagshipBenefitsByEvent != nil {
		m.state.FlagshipBenefitsByEvent = p.FlagshipBenefitsByEvent
		m.store.Save(store.KEY_FLAGSHIP, m.state.FlagshipBenefitsByEvent)
	}
	if p.FormDataBySignature != nil {
		m.state.FormDataBySignature = p.FormDataBySignature
		m.store.Save(store.KEY_FORM_DATA, m.state.FormDataBySignature)
	}
	if p.TeamMembersBySignature != nil {
		m.state.TeamMembersBySignature = p.TeamMembersBySignature
		m.store.Save(store.KEY_TEAM_MEMBERS, m.state.TeamMembersBySignature)
	}
	if p.PromoInput != nil {
		m.state.PromoInput = *p.PromoInput
		m.store.Save(store.KEY_PROMO_INPUT, m.state.PromoInput)
	}
}

// ApplyPromo replaces any previously applied promo; discounts never
// stack. The applied promo is intentionally not persisted.
func (m *Machine) ApplyPromo(p AppliedPromo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.AppliedPromo = &p
}

func (m *Machine) ClearPromo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.AppliedPromo = nil
}

// AttachFile stores an upload for one form field in memory only.
func (m *Machine) AttachFile(signature, field string, f *FileAttachment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[signature] == nil {
		m.files[signature] = map[string]*FileAttachment{}
	}
	m.files[signature][field] = f
}

// AttachMemberFile stores a roster member's upload, keyed by member index.
func (m *Machine) AttachMemberFile(signature string, index int, f *FileAttachment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.memberFiles[signature] == nil {
		m.memberFiles[signature] = map[int]*FileAttachment{}
	}
	m.memberFiles[signature][index] = f
}

// Files returns a copy of the attachment maps. Callers iterate the
// snapshot without holding the machine lock; an upload landing
// mid-iteration mutates the machine's maps, never the copy.
func (m *Machine) Files() map[string]map[string]*FileAttachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]*FileAttachment, len(m.files))
	for sig, fields := range m.files {
		inner := make(map[string]*FileAttachment, len(fields))
		for name, f := range fields {
			inner[name] = f
		}
		out[sig] = inner
	}
	return out
}

// MemberFiles returns a copy, same contract as Files.
func (m *Machine) MemberFiles() map[string]map[int]*FileAttachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[int]*FileAttachment, len(m.memberFiles))
	for sig, members := range m.memberFiles {
		inner := make(map[int]*FileAttachment, len(members))
		for idx, f := range members {
			inner[idx] = f
		}
		out[sig] = inner
	}
	return out
}

// SelectedEvents resolves the current selection against the catalog.
// Derived on every call, never stored.
func (m *Machine) SelectedEvents() []models.EventCatalogItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Catalog.Select(m.state.SelectedEventIDs)
}

func (m *Machine) TotalPrice() float64 {
	return TotalPrice(m.SelectedEvents(), m.Snapshot().VisitorPassDays)
}

func (m *Machine) FinalPrice() float64 {
	total := m.TotalPrice()
	st := m.Snapshot()
	if st.AppliedPromo == nil {
		return total
	}
	return FinalPrice(total, st.AppliedPromo.DiscountAmount)
}

// Advance moves to the next step after running the step's guard. A
// failed forms guard returns the error map alongside ErrValidationFailed
// and leaves the step unchanged.
func (m *Machine) Advance() (Errors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, ok := stepTransitions[m.step]
	if !ok {
		return nil, ErrNoFurtherStep
	}
	switch m.step {
	case STEP_SELECT:
		if len(m.state.SelectedEventIDs) == 0 && m.state.VisitorPassDays == 0 {
			return nil, ErrNothingSelected
		}
	case STEP_FORMS:
		errs := Validate(ValidationInput{
			State:       &m.state,
			Groups:      m.state.FieldGroups(m.Catalog),
			Files:       m.files,
			MemberFiles: m.memberFiles,
		})
		if len(errs) > 0 {
			return errs, ErrValidationFailed
		}
	}
	m.setStepLocked(next)
	return nil, nil
}

// Back moves one step towards select; on select there is nowhere to go
// and the step is left alone.
func (m *Machine) Back() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := prevStep(m.step); ok {
		m.setStepLocked(prev)
	}
}

func (m *Machine) setStepLocked(s Step) {
	m.step = s
	m.store.Save(store.KEY_STEP, s)
}

// Close is the abandon-checkout contract: cancel pending writes and
// remove every stored key. A fresh machine for the same session hydrates
// to the empty defaults afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Clear()
}
