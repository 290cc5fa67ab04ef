package insight

// Level is the severity of a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-facing message. Kind is set for notices produced from
// an error.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Kind  Kind   `json:"-"`
}

// KindName is Kind as text, empty when the notice has no error kind.
func (n Notice) KindName() string {
	if n.Kind == KindNone {
		return ""
	}
	return n.Kind.String()
}

func info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func warning(text string) Notice { return Notice{Level: LevelWarning, Text: text} }

func failure(kind Kind, text string) Notice {
	return Notice{Level: LevelError, Text: text, Kind: kind}
}

// ChartNotice turns a chart build failure into the notice shown in place of
// the chart.
func ChartNotice(err error) Notice {
	return failure(Classify(err), "Error creating visualization: "+err.Error())
}
