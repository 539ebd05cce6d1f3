package catalog

// Section is one of the three fixed sub-tests within an exam set.
type Section string

const (
	SectionListening Section = "listening"
	SectionGrammar   Section = "grammar"
	SectionReading   Section = "reading"
)

// SectionOrder returns the fixed delivery order of sections.
func SectionOrder() []Section {
	return []Section{SectionListening, SectionGrammar, SectionReading}
}

// Level is a CEFR proficiency band. Questions carry one as difficulty,
// results carry one as outcome.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

type Question struct {
	ID            string   `json:"id"`
	ExamSetID     int      `json:"exam_set_id"`
	Section       Section  `json:"section"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Level         Level    `json:"level"`
	MediaRef      string   `json:"media_ref,omitempty"` // blob key for audio/image
}

// Sanitized returns a copy safe to serve to exam takers.
func (q Question) Sanitized() Question {
	q.CorrectOption = -1
	return q
}

type ExamSet struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// IsActive is derived per viewer from their completion set; it is
	// never stored.
	IsActive       bool `json:"is_active"`
	TotalQuestions int  `json:"total_questions"`
}
