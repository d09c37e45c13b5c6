package model

// PollResults is the aggregated vote tally for one poll.
type PollResults struct {
	PollID    string            `json:"poll_id"`
	Title     string            `json:"title"`
	Questions []QuestionResults `json:"questions"`
}

// QuestionResults holds per-option counts for one question.
type QuestionResults struct {
	QuestionID string          `json:"question_id"`
	Text       string          `json:"text"`
	ChoiceMode ChoiceMode      `json:"choice_mode"`
	TotalVotes int64           `json:"total_votes"`
	Options    []OptionResults `json:"options"`
}

// OptionResults is the count and share of one option.
type OptionResults struct {
	OptionID   string  `json:"option_id"`
	Text       string  `json:"text"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}
