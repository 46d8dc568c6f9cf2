package app

import (
	"fmt"
	"math"

	"notes-quiz-service/internal/domain"
)

// Score counts selections equal to their question's correct option.
// Unanswered entries never match a valid index and count as incorrect.
func Score(quiz domain.Quiz, selections []int) (correct, total int) {
	total = len(quiz.Questions)
	for i, question := range quiz.Questions {
		if i < len(selections) && question.IsCorrect(selections[i]) {
			correct++
		}
	}
	return correct, total
}

// BuildResult aggregates a finished attempt. Answers are copied.
func BuildResult(quiz domain.Quiz, selections []int, elapsedSeconds int) domain.QuizResult {
	correct, total := Score(quiz, selections)
	answers := make([]int, total)
	for i := range answers {
		answers[i] = domain.Unanswered
		if i < len(selections) {
			answers[i] = selections[i]
		}
	}
	return domain.QuizResult{
		Score:     correct,
		Total:     total,
		Answers:   answers,
		TimeTaken: elapsedSeconds,
	}
}

// Summarize derives accuracy, a celebration message and the per-question review.
func Summarize(quiz domain.Quiz, result domain.QuizResult) domain.ResultSummary {
	accuracy := 0
	if result.Total > 0 {
		accuracy = int(math.Round(float64(result.Score) / float64(result.Total) * 100))
	}

	review := make([]domain.ReviewEntry, 0, len(quiz.Questions))
	for i, question := range quiz.Questions {
		answer := domain.Unanswered
		if i < len(result.Answers) {
			answer = result.Answers[i]
		}
		review = append(review, domain.ReviewEntry{
			Prompt:        question.Prompt,
			UserAnswer:    question.OptionText(answer),
			CorrectAnswer: question.OptionText(question.CorrectOption),
			Correct:       question.IsCorrect(answer),
			Explanation:   question.Explanation,
		})
	}

	return domain.ResultSummary{
		Accuracy:  accuracy,
		Message:   celebrationMessage(accuracy),
		TimeLabel: fmt.Sprintf("%dm %ds", result.TimeTaken/60, result.TimeTaken%60),
		Review:    review,
	}
}

func celebrationMessage(accuracy int) string {
	switch {
	case accuracy >= 90:
		return "Masterful! You're a pro."
	case accuracy >= 70:
		return "Great job! Keep learning."
	case accuracy >= 50:
		return "Good start! Practice makes perfect."
	default:
		return "Keep going! Review your notes again."
	}
}
