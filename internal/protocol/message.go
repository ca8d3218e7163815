// Package protocol defines the JSONL message protocol spoken between the
// host and a running script process.
//
// Each message is one JSON object per line, keyed by a "type" discriminant.
// The set of variants is closed on the host side, but scripts may be built
// against a newer or older protocol revision, so the graceful parsing tier
// (ParseGraceful, Reader) classifies and skips lines it cannot understand
// instead of ending the stream.
package protocol

// Kind is the wire value of the "type" discriminant.
type Kind string

// Message kinds. Prompt kinds carry an "id" used to correlate the eventual
// submit response; notification and control kinds carry none.
const (
	// Prompt requests (id-bearing)
	KindArg      Kind = "arg"
	KindSelect   Kind = "select"
	KindDiv      Kind = "div"
	KindEditor   Kind = "editor"
	KindTextarea Kind = "textarea"
	KindForm     Kind = "form"
	KindFields   Kind = "fields"
	KindPath     Kind = "path"
	KindDrop     Kind = "drop"
	KindHotkey   Kind = "hotkey"
	KindEnv      Kind = "env"
	KindConfirm  Kind = "confirm"
	KindChat     Kind = "chat"
	KindTerm     Kind = "term"

	// Prompt response (id-bearing)
	KindSubmit Kind = "submit"

	// Notifications
	KindBeep   Kind = "beep"
	KindSay    Kind = "say"
	KindNotify Kind = "notify"
	KindToast  Kind = "toast"
	KindLog    Kind = "log"

	// System control
	KindShow           Kind = "show"
	KindHide           Kind = "hide"
	KindBlur           Kind = "blur"
	KindFocus          Kind = "focus"
	KindExit           Kind = "exit"
	KindSetPlaceholder Kind = "setPlaceholder"
	KindSetHint        Kind = "setHint"
	KindSetPanel       Kind = "setPanel"
	KindSetPreview     Kind = "setPreview"
	KindSetProgress    Kind = "setProgress"
	KindSetInput       Kind = "setInput"
	KindSetChoices     Kind = "setChoices"
)

// Message is the closed tagged union of everything that can cross the wire.
//
// RequestID returns the correlation id and true for id-bearing variants
// (prompt requests and Submit); control and notification variants return
// ("", false). The invariant upheld by the GUI is that every id-bearing
// request receives at most one matching Submit, or the session ends
// without one.
type Message interface {
	Kind() Kind
	RequestID() (string, bool)
}

// prompt is embedded by every id-bearing variant.
type prompt struct {
	ID string `json:"id"`
}

// RequestID implements Message for id-bearing variants.
func (p *prompt) RequestID() (string, bool) { return p.ID, true }

// noID is embedded by variants that carry no correlation id.
type noID struct{}

// RequestID implements Message for global control and notification variants.
func (noID) RequestID() (string, bool) { return "", false }

// Choice is one selectable entry in an Arg or Select prompt.
type Choice struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// Field is one input in a Fields prompt.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
}

// Arg asks the user for a single text input, optionally constrained to choices.
type Arg struct {
	prompt
	Placeholder string   `json:"placeholder"`
	Hint        string   `json:"hint,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

func (*Arg) Kind() Kind { return KindArg }

func (m *Arg) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.Placeholder == "" {
		return missingField("placeholder")
	}
	return nil
}

// Select asks the user to pick from a fixed list of choices.
type Select struct {
	prompt
	Placeholder string   `json:"placeholder"`
	Choices     []Choice `json:"choices"`
	Multi       bool     `json:"multi,omitempty"`
}

func (*Select) Kind() Kind { return KindSelect }

func (m *Select) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.Placeholder == "" {
		return missingField("placeholder")
	}
	if len(m.Choices) == 0 {
		return missingField("choices")
	}
	return nil
}

// Div displays a block of HTML and waits for dismissal.
type Div struct {
	prompt
	HTML string `json:"html"`
}

func (*Div) Kind() Kind { return KindDiv }

func (m *Div) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.HTML == "" {
		return missingField("html")
	}
	return nil
}

// Editor opens a full editor buffer seeded with a value.
type Editor struct {
	prompt
	Value    string `json:"value"`
	Language string `json:"language,omitempty"`
}

func (*Editor) Kind() Kind { return KindEditor }

func (m *Editor) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Textarea asks for multi-line text input.
type Textarea struct {
	prompt
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
}

func (*Textarea) Kind() Kind { return KindTextarea }

func (m *Textarea) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Form renders an HTML form and collects its submitted values.
type Form struct {
	prompt
	HTML string `json:"html"`
}

func (*Form) Kind() Kind { return KindForm }

func (m *Form) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.HTML == "" {
		return missingField("html")
	}
	return nil
}

// Fields renders a list of labeled inputs and collects their values.
type Fields struct {
	prompt
	Fields []Field `json:"fields"`
}

func (*Fields) Kind() Kind { return KindFields }

func (m *Fields) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if len(m.Fields) == 0 {
		return missingField("fields")
	}
	return nil
}

// Path asks the user to pick a filesystem path.
type Path struct {
	prompt
	StartPath string `json:"startPath,omitempty"`
}

func (*Path) Kind() Kind { return KindPath }

func (m *Path) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Drop waits for the user to drag and drop files or text onto the prompt.
type Drop struct {
	prompt
	Placeholder string `json:"placeholder,omitempty"`
}

func (*Drop) Kind() Kind { return KindDrop }

func (m *Drop) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Hotkey waits for a single key combination.
type Hotkey struct {
	prompt
	Placeholder string `json:"placeholder,omitempty"`
}

func (*Hotkey) Kind() Kind { return KindHotkey }

func (m *Hotkey) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Env asks for (or confirms) the value of a named environment variable.
type Env struct {
	prompt
	Key string `json:"key"`
}

func (*Env) Kind() Kind { return KindEnv }

func (m *Env) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.Key == "" {
		return missingField("key")
	}
	return nil
}

// Confirm asks a yes/no question.
type Confirm struct {
	prompt
	Question string `json:"question"`
}

func (*Confirm) Kind() Kind { return KindConfirm }

func (m *Confirm) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.Question == "" {
		return missingField("question")
	}
	return nil
}

// Chat opens a conversational prompt that stays open across turns.
type Chat struct {
	prompt
	Placeholder string `json:"placeholder,omitempty"`
}

func (*Chat) Kind() Kind { return KindChat }

func (m *Chat) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Term requests an embedded terminal, optionally seeded with a command.
type Term struct {
	prompt
	Command string `json:"command,omitempty"`
}

func (*Term) Kind() Kind { return KindTerm }

func (m *Term) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Submit answers an earlier id-bearing prompt. Value holds whatever the
// prompt collected (string, list, form map) and is passed through opaquely.
type Submit struct {
	prompt
	Value any `json:"value"`
}

// NewSubmit builds the response to an id-bearing prompt.
func NewSubmit(id string, value any) *Submit {
	return &Submit{prompt: prompt{ID: id}, Value: value}
}

func (*Submit) Kind() Kind { return KindSubmit }

func (m *Submit) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	return nil
}

// Beep plays the system alert sound.
type Beep struct {
	noID
}

func (*Beep) Kind() Kind { return KindBeep }

// Say speaks text aloud.
type Say struct {
	noID
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (*Say) Kind() Kind { return KindSay }

func (m *Say) validate() error {
	if m.Text == "" {
		return missingField("text")
	}
	return nil
}

// Notify posts a system notification.
type Notify struct {
	noID
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

func (*Notify) Kind() Kind { return KindNotify }

func (m *Notify) validate() error {
	if m.Title == "" {
		return missingField("title")
	}
	return nil
}

// Toast shows a transient in-window notification.
type Toast struct {
	noID
	Text     string `json:"text"`
	Duration int    `json:"duration,omitempty"`
}

func (*Toast) Kind() Kind { return KindToast }

func (m *Toast) validate() error {
	if m.Text == "" {
		return missingField("text")
	}
	return nil
}

// Log forwards a script-side log line to the host log.
type Log struct {
	noID
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

func (*Log) Kind() Kind { return KindLog }

func (m *Log) validate() error {
	if m.Message == "" {
		return missingField("message")
	}
	return nil
}

// Show makes the prompt window visible.
type Show struct {
	noID
}

func (*Show) Kind() Kind { return KindShow }

// Hide hides the prompt window.
type Hide struct {
	noID
}

func (*Hide) Kind() Kind { return KindHide }

// Blur removes focus from the prompt window.
type Blur struct {
	noID
}

func (*Blur) Kind() Kind { return KindBlur }

// Focus focuses the prompt window.
type Focus struct {
	noID
}

func (*Focus) Kind() Kind { return KindFocus }

// Exit asks the host to end the session with the given code.
type Exit struct {
	noID
	Code int `json:"code,omitempty"`
}

func (*Exit) Kind() Kind { return KindExit }

// SetPlaceholder updates the current prompt's placeholder text.
type SetPlaceholder struct {
	noID
	Text string `json:"text"`
}

func (*SetPlaceholder) Kind() Kind { return KindSetPlaceholder }

func (m *SetPlaceholder) validate() error {
	if m.Text == "" {
		return missingField("text")
	}
	return nil
}

// SetHint updates the current prompt's hint text.
type SetHint struct {
	noID
	Text string `json:"text"`
}

func (*SetHint) Kind() Kind { return KindSetHint }

// SetPanel replaces the current prompt's panel HTML.
type SetPanel struct {
	noID
	HTML string `json:"html"`
}

func (*SetPanel) Kind() Kind { return KindSetPanel }

func (m *SetPanel) validate() error {
	if m.HTML == "" {
		return missingField("html")
	}
	return nil
}

// SetPreview replaces the current prompt's preview HTML.
type SetPreview struct {
	noID
	HTML string `json:"html"`
}

func (*SetPreview) Kind() Kind { return KindSetPreview }

func (m *SetPreview) validate() error {
	if m.HTML == "" {
		return missingField("html")
	}
	return nil
}

// SetProgress updates the progress indicator (0-100; -1 hides it).
type SetProgress struct {
	noID
	Percent int `json:"percent"`
}

func (*SetProgress) Kind() Kind { return KindSetProgress }

// SetInput replaces the current prompt's input text (empty clears it).
type SetInput struct {
	noID
	Text string `json:"text"`
}

func (*SetInput) Kind() Kind { return KindSetInput }

// SetChoices replaces the current prompt's choice list (empty clears it).
type SetChoices struct {
	noID
	Choices []Choice `json:"choices"`
}

func (*SetChoices) Kind() Kind { return KindSetChoices }

// registry maps each discriminant to a fresh zero value of its variant.
// Parsing uses it for dispatch; Marshal uses it to reject kinds outside
// the closed union. Keep it in sync with the Kind constants above.
var registry = map[Kind]func() Message{
	KindArg:            func() Message { return new(Arg) },
	KindSelect:         func() Message { return new(Select) },
	KindDiv:            func() Message { return new(Div) },
	KindEditor:         func() Message { return new(Editor) },
	KindTextarea:       func() Message { return new(Textarea) },
	KindForm:           func() Message { return new(Form) },
	KindFields:         func() Message { return new(Fields) },
	KindPath:           func() Message { return new(Path) },
	KindDrop:           func() Message { return new(Drop) },
	KindHotkey:         func() Message { return new(Hotkey) },
	KindEnv:            func() Message { return new(Env) },
	KindConfirm:        func() Message { return new(Confirm) },
	KindChat:           func() Message { return new(Chat) },
	KindTerm:           func() Message { return new(Term) },
	KindSubmit:         func() Message { return new(Submit) },
	KindBeep:           func() Message { return new(Beep) },
	KindSay:            func() Message { return new(Say) },
	KindNotify:         func() Message { return new(Notify) },
	KindToast:          func() Message { return new(Toast) },
	KindLog:            func() Message { return new(Log) },
	KindShow:           func() Message { return new(Show) },
	KindHide:           func() Message { return new(Hide) },
	KindBlur:           func() Message { return new(Blur) },
	KindFocus:          func() Message { return new(Focus) },
	KindExit:           func() Message { return new(Exit) },
	KindSetPlaceholder: func() Message { return new(SetPlaceholder) },
	KindSetHint:        func() Message { return new(SetHint) },
	KindSetPanel:       func() Message { return new(SetPanel) },
	KindSetPreview:     func() Message { return new(SetPreview) },
	KindSetProgress:    func() Message { return new(SetProgress) },
	KindSetInput:       func() Message { return new(SetInput) },
	KindSetChoices:     func() Message { return new(SetChoices) },
}

// Kinds returns every discriminant in the closed union.
// Useful for diagnostics and exhaustiveness checks in tests.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
