package model

// Participant identity is supplied by the caller at join time and trusted
// as given. Identity may outlive any single connection.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Selection struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Cursor is the last-known position of one connected participant.
type Cursor struct {
	ParticipantID string     `json:"participant_id"`
	Name          string     `json:"name,omitempty"`
	Color         string     `json:"color,omitempty"`
	Position      Position   `json:"position"`
	Selection     *Selection `json:"selection,omitempty"`
}
