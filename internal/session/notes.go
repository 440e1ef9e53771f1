package session

import "fmt"

// Notes is a four-section SOAP note
type Notes struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// NotesMode selects who writes the notes
type NotesMode string

const (
	NotesEditable NotesMode = "editable" // clinician types the notes
	NotesDerived  NotesMode = "derived"  // summary provider fills them in
)

// NotesPlaceholder is shown in derived mode until a summary arrives
const NotesPlaceholder = "Notes will be generated when the session ends."

// Section names one field of Notes
type Section string

const (
	SectionSubjective Section = "subjective"
	SectionObjective  Section = "objective"
	SectionAssessment Section = "assessment"
	SectionPlan       Section = "plan"
)

// ParseSection validates a section name
func ParseSection(s string) (Section, error) {
	switch Section(s) {
	case SectionSubjective, SectionObjective, SectionAssessment, SectionPlan:
		return Section(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// NotesView is what the renderer shows
type NotesView struct {
	Notes
	Mode      NotesMode `json:"mode"`
	Generated bool      `json:"generated"`
}

// NotesDocument holds the notes for one session. It is not safe for concurrent
// use; Session serializes access.
type NotesDocument struct {
	mode      NotesMode
	notes     Notes
	generated bool
}

// NewNotesDocument creates an empty document. Unknown modes fall back to derived.
func NewNotesDocument(mode NotesMode) *NotesDocument {
	if mode != NotesEditable {
		mode = NotesDerived
	}
	return &NotesDocument{mode: mode}
}

// Mode returns the document's writer mode
func (d *NotesDocument) Mode() NotesMode {
	return d.mode
}

// Edit replaces one section with clinician text
func (d *NotesDocument) Edit(section Section, text string) error {
	if d.mode != NotesEditable {
		return ErrNotesReadOnly
	}

	switch section {
	case SectionSubjective:
		d.notes.Subjective = text
	case SectionObjective:
		d.notes.Objective = text
	case SectionAssessment:
		d.notes.Assessment = text
	case SectionPlan:
		d.notes.Plan = text
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return nil
}

// Apply overwrites the whole document with a provider result
func (d *NotesDocument) Apply(n Notes) {
	d.notes = n
	d.generated = true
}

// Current returns the stored notes without placeholders
func (d *NotesDocument) Current() Notes {
	return d.notes
}

// View returns the notes for display, with placeholders for derived notes that
// have not been generated yet
func (d *NotesDocument) View() NotesView {
	v := NotesView{Notes: d.notes, Mode: d.mode, Generated: d.generated}
	if d.mode == NotesDerived && !d.generated {
		v.Notes = Notes{
			Subjective: NotesPlaceholder,
			Objective:  NotesPlaceholder,
			Assessment: NotesPlaceholder,
			Plan:       NotesPlaceholder,
		}
	}
	return v
}

// Reset empties the document
func (d *NotesDocument) Reset() {
	d.notes = Notes{}
	d.generated = false
}
