package domain

// AnswerState is the terminal state of one answer turn.
type AnswerState string

const (
	// AnswerDone means every surfaced citation passed validation, or the turn
	// ended in the designed no-information response.
	AnswerDone AnswerState = "done"
	// AnswerFailed means regeneration attempts were exhausted with at least
	// one unverifiable citation; the answer text is withheld.
	AnswerFailed AnswerState = "failed"
)

// NoInformationAnswer is the designed terminal response when neither client
// documents nor permitted legal sources contain anything relevant.
const NoInformationAnswer = "This information does not appear in the current case documents or permitted legal sources."

// UnverifiableAnswer replaces the generated text when validation could not be
// satisfied within the attempt budget. Fail closed: never surface text whose
// citations did not verify.
const UnverifiableAnswer = "The system could not produce a fully verifiable answer to this question. Please rephrase or upload supporting documents."

// AnswerResult is the outcome of one question through the answer engine.
type AnswerResult struct {
	CaseID           string          `json:"case_id"`
	Question         string          `json:"question"`
	Answer           string          `json:"answer"`
	State            AnswerState     `json:"state"`
	Attempts         int             `json:"attempts"`
	Evidence         []EvidenceItem  `json:"evidence,omitempty"`
	LegalSources     []LegalSnapshot `json:"legal_sources,omitempty"`
	Citations        []Citation      `json:"citations,omitempty"`
	ValidationErrors []string        `json:"validation_errors,omitempty"`
	SessionUpdated   bool            `json:"session_updated"`
}
