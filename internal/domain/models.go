package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the requested challenge level of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts the canonical names case-insensitively. Empty input yields Medium.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return DifficultyMedium, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, raw)
}

// Unanswered marks a question the learner has not selected an option for.
// It lies outside every valid option index so it never scores.
const Unanswered = -1

// Question models an MCQ item addressed by option index.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// IsValidOption reports whether idx addresses one of the question's options.
func (q Question) IsValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// IsCorrect reports whether the selection matches the declared correct option.
func (q Question) IsCorrect(selection int) bool {
	return selection == q.CorrectOption
}

// OptionText resolves an option index to its text, or "" when out of range.
func (q Question) OptionText(idx int) string {
	if !q.IsValidOption(idx) {
		return ""
	}
	return q.Options[idx]
}

// Quiz is an immutable generated assessment.
type Quiz struct {
	Title        string     `json:"title"`
	Questions    []Question `json:"questions"`
	Difficulty   Difficulty `json:"difficulty"`
	NotesSummary string     `json:"notesSummary"`
	// WeakAreas is advisory and may be absent; nil means the collaborator sent none.
	WeakAreas []string `json:"weakAreas,omitempty"`
}

// Validate rejects payloads the session engine cannot index safely.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrInvalidQuiz, i)
		}
		if len(question.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidQuiz, i)
		}
		if !question.IsValidOption(question.CorrectOption) {
			return fmt.Errorf("%w: question %d correct option %d out of range", ErrInvalidQuiz, i, question.CorrectOption)
		}
	}
	return nil
}

// QuizResult is the outcome of a finished session.
type QuizResult struct {
	Score     int   `json:"score"`
	Total     int   `json:"total"`
	Answers   []int `json:"answers"`
	TimeTaken int   `json:"timeTaken"`
}

// Feedback is revealed once the current question is locked.
type Feedback struct {
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation"`
}

// SessionView is a read-only snapshot of a live session.
type SessionView struct {
	CurrentIndex   int       `json:"currentIndex"`
	Total          int       `json:"total"`
	Selection      int       `json:"selection"`
	Locked         bool      `json:"locked"`
	Finished       bool      `json:"finished"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Clock          string    `json:"clock"`
	Progress       int       `json:"progress"`
	Feedback       *Feedback `json:"feedback,omitempty"`
}

// ReviewEntry is one row of the post-quiz review.
type ReviewEntry struct {
	Prompt        string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation"`
}

// ResultSummary is the presentation-ready view of a result.
type ResultSummary struct {
	Accuracy  int           `json:"accuracy"`
	Message   string        `json:"message"`
	TimeLabel string        `json:"timeLabel"`
	Review    []ReviewEntry `json:"review"`
}

// FlowState is the application-level screen the learner is on.
type FlowState string

const (
	FlowHome       FlowState = "home"
	FlowGenerating FlowState = "generating"
	FlowSession    FlowState = "session"
	FlowResult     FlowState = "result"
)

// FlowSnapshot is broadcast to observers on every flow change and timer tick.
type FlowSnapshot struct {
	LearnerID string         `json:"learnerId"`
	State     FlowState      `json:"state"`
	Quiz      *Quiz          `json:"quiz,omitempty"`
	Session   *SessionView   `json:"session,omitempty"`
	Result    *QuizResult    `json:"result,omitempty"`
	Summary   *ResultSummary `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
}
