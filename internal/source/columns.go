package source

import (
	"github.com/gobwas/glob"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

// CandidateColumns names the columns of a row-per-candidate export.
type CandidateColumns struct {
	// Reference is the key column.
	Reference string `mapstructure:"reference"`
	// Answers is a glob selecting the answer columns.
	Answers string `mapstructure:"answers"`
	// AnswerPrefix and NamePrefix pair an answer column with the column
	// holding its question name: "Reactie 3" is named by "Naam 3".
	AnswerPrefix string `mapstructure:"answer_prefix"`
	NamePrefix   string `mapstructure:"name_prefix"`
	// Grade is the column compared against InvalidMarkers.
	Grade          string   `mapstructure:"grade"`
	InvalidMarkers []string `mapstructure:"invalid_markers"`

	answers glob.Glob
}

// QuestionColumns names the columns of a row-per-(candidate, question) export.
type QuestionColumns struct {
	StudentNumber   string   `mapstructure:"student_number"`
	Question        string   `mapstructure:"question"`
	QuestionType    string   `mapstructure:"question_type"`
	OpenAnswer      string   `mapstructure:"open_answer"`
	ChoiceAnswer    string   `mapstructure:"choice_answer"`
	InvalidAttempts string   `mapstructure:"invalid_attempts"`
	OpenTypes       []string `mapstructure:"open_types"`
}

// Columns holds every column convention of the tabular exports.
type Columns struct {
	Candidate CandidateColumns `mapstructure:"candidate"`
	Question  QuestionColumns  `mapstructure:"question"`
	// Roster is a glob selecting the display attributes of a student.
	Roster string `mapstructure:"roster"`

	roster glob.Glob
}

// DefaultColumns returns the conventions of the Dutch exports the tool was
// built for.
func DefaultColumns() Columns {
	return Columns{
		Candidate: CandidateColumns{
			Reference:      "Reference",
			Answers:        "Reactie*",
			AnswerPrefix:   "Reactie",
			NamePrefix:     "Naam",
			Grade:          "Cijfer",
			InvalidMarkers: []string{"ongeldig", "invalid"},
		},
		Question: QuestionColumns{
			StudentNumber:   "Studentnummer",
			Question:        "Vraag",
			QuestionType:    "Vraagtype",
			OpenAnswer:      "Antwoord",
			ChoiceAnswer:    "Gekozen alternatief",
			InvalidAttempts: "Ongeldige pogingen",
			OpenTypes:       []string{"open", "open vraag", "essay", "open question"},
		},
		Roster: "{Voornaam,Tussenvoegsel,Achternaam,Naam kandidaat,Naam,Name}",
	}
}

// withDefaults fills every empty field from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Candidate.Reference, d.Candidate.Reference)
	fill(&c.Candidate.Answers, d.Candidate.Answers)
	fill(&c.Candidate.AnswerPrefix, d.Candidate.AnswerPrefix)
	fill(&c.Candidate.NamePrefix, d.Candidate.NamePrefix)
	fill(&c.Candidate.Grade, d.Candidate.Grade)
	if len(c.Candidate.InvalidMarkers) == 0 {
		c.Candidate.InvalidMarkers = d.Candidate.InvalidMarkers
	}
	fill(&c.Question.StudentNumber, d.Question.StudentNumber)
	fill(&c.Question.Question, d.Question.Question)
	fill(&c.Question.QuestionType, d.Question.QuestionType)
	fill(&c.Question.OpenAnswer, d.Question.OpenAnswer)
	fill(&c.Question.ChoiceAnswer, d.Question.ChoiceAnswer)
	fill(&c.Question.InvalidAttempts, d.Question.InvalidAttempts)
	if len(c.Question.OpenTypes) == 0 {
		c.Question.OpenTypes = d.Question.OpenTypes
	}
	fill(&c.Roster, d.Roster)
	return c
}

// Compile validates the glob patterns. It returns a ConfigError naming the
// first invalid pattern.
func (c Columns) Compile() (Columns, error) {
	c = c.withDefaults()
	answers, err := glob.Compile(c.Candidate.Answers)
	if err != nil {
		return c, apperrors.NewConfigError("invalid answer column pattern %q: %v", c.Candidate.Answers, err)
	}
	roster, err := glob.Compile(c.Roster)
	if err != nil {
		return c, apperrors.NewConfigError("invalid roster column pattern %q: %v", c.Roster, err)
	}
	c.Candidate.answers = answers
	c.roster = roster
	return c, nil
}
