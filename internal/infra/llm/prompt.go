package llm

import (
	"fmt"
	"strings"

	"notes-quiz-service/internal/domain"
)

const submitQuizTool = "submit_quiz"

func systemPrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	if req.Mode() == domain.ModeImage {
		sb.WriteString("You are an expert OCR and quiz generator. Extract the study material from the provided image and turn it into a professional multiple choice quiz.\n")
	} else {
		sb.WriteString("You are an expert quiz generator. Analyze the notes provided and create high-quality multiple choice questions.\n")
	}
	sb.WriteString(fmt.Sprintf("CRITICAL: All text content must be written strictly in %s.\n", req.Language))
	sb.WriteString("Each question must have exactly 4 unique options and exactly one correct answer.\n")
	sb.WriteString(fmt.Sprintf("Use the %s tool to return the quiz.", submitQuizTool))
	return sb.String()
}

func userPrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	if req.Mode() == domain.ModeImage {
		sb.WriteString("Analyze the study material in this image (notes, a book chapter or hand-written notes).\n")
		if req.Topic != "" {
			sb.WriteString(fmt.Sprintf("The topic is: %s\n", req.Topic))
		}
		sb.WriteString("1. Extract the key educational content.\n")
		sb.WriteString(fmt.Sprintf("2. Generate %d multiple choice questions.\n", req.Count))
		sb.WriteString(fmt.Sprintf("3. Language: %s\n", req.Language))
		sb.WriteString(fmt.Sprintf("4. Difficulty: %s\n", req.Difficulty))
		return sb.String()
	}

	sb.WriteString("Please generate a quiz based on the following notes.\n")
	sb.WriteString(fmt.Sprintf("Requested Language: %s\n", req.Language))
	sb.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	sb.WriteString(fmt.Sprintf("Number of questions: %d\n\n", req.Count))
	sb.WriteString("Notes content:\n")
	if req.Topic != "" {
		sb.WriteString(fmt.Sprintf("Topic: %s\n\n", req.Topic))
	}
	sb.WriteString(req.Notes)
	return sb.String()
}

func quizSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Short title of the quiz",
			},
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type": "string",
						},
						"options": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Exactly 4 unique answer options",
						},
						"correctAnswer": map[string]interface{}{
							"type":        "integer",
							"description": "Index of the correct answer (0-3)",
						},
						"explanation": map[string]interface{}{
							"type": "string",
						},
					},
					"required": []string{"question", "options", "correctAnswer", "explanation"},
				},
			},
			"notesSummary": map[string]interface{}{
				"type":        "string",
				"description": "A short 1-2 sentence summary of the key notes",
			},
			"weakAreas": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "2-3 specific topics to review if these questions are missed",
			},
		},
		"required": []string{"title", "questions", "notesSummary", "weakAreas"},
	}
}
