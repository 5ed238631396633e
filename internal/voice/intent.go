package voice

// Action is the UI action an utterance resolves to.
type Action string

const (
	ActionStop             Action = "stop"
	ActionNavigate         Action = "navigate"
	ActionFillField        Action = "fill_field"
	ActionClickButton      Action = "click_button"
	ActionReadPage         Action = "read_page"
	ActionScroll           Action = "scroll"
	ActionAskClarification Action = "ask_clarification"
)

const (
	ScrollUp   = "up"
	ScrollDown = "down"
)

// Intent is the structured result handed back to the client. Target and
// Value are only set for the actions that carry them.
type Intent struct {
	Action     Action  `json:"action"`
	Target     string  `json:"target,omitempty"`
	Value      string  `json:"value,omitempty"`
	Message    string  `json:"message,omitempty"`
	Confidence float64 `json:"confidence"`
}

func Stop() Intent {
	return Intent{Action: ActionStop, Confidence: 1}
}

func Navigate(target string) Intent {
	return Intent{Action: ActionNavigate, Target: target, Confidence: 0.85}
}

func FillField(fieldID, value string) Intent {
	return Intent{Action: ActionFillField, Target: fieldID, Value: value, Confidence: 0.85}
}

func ClickButton(target string) Intent {
	return Intent{Action: ActionClickButton, Target: target, Confidence: 0.9}
}

func ReadPage() Intent {
	return Intent{Action: ActionReadPage, Confidence: 0.95}
}

func Scroll(direction string) Intent {
	return Intent{Action: ActionScroll, Target: direction, Confidence: 0.9}
}

// AskClarification carries an optional prompt. An empty message leaves the
// wording to the caller.
func AskClarification(message string) Intent {
	return Intent{Action: ActionAskClarification, Message: message}
}

// Field describes one form control visible on the client page.
type Field struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Type        string `json:"type"`
}

// PageContext is what the client knows about the current page.
type PageContext struct {
	Path   string  `json:"path,omitempty"`
	Fields []Field `json:"formFields"`
}
