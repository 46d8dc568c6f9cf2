// Package export encodes a finished quiz and its result into portable files.
// Every encoder is a pure function of (quiz, result).
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notes-quiz-service/internal/domain"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// TabularHeader is the exact header row of the tabular dump.
var TabularHeader = []string{"Question", "User Answer", "Correct Answer", "Status"}

// ParseFormat accepts json, csv or xlsx in any case.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, raw)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// FileName follows quiz-results-<unix-millis>.<ext>.
func FileName(f Format, at time.Time) string {
	return fmt.Sprintf("quiz-results-%d.%s", at.UnixMilli(), f)
}

// Encode dispatches to the encoder for f.
func Encode(f Format, quiz domain.Quiz, result domain.QuizResult) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(quiz, result)
	case FormatCSV:
		return CSV(quiz, result)
	case FormatXLSX:
		return XLSX(quiz, result)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
}

// Dump is the structured export document.
type Dump struct {
	Quiz   domain.Quiz       `json:"quiz"`
	Result domain.QuizResult `json:"result"`
}

// JSON renders the structured dump, pretty-printed with two-space indentation.
func JSON(quiz domain.Quiz, result domain.QuizResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Dump{Quiz: quiz, Result: result}); err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CSV renders the tabular dump. Fields holding commas, quotes or newlines are
// quoted per RFC 4180; rows are newline separated without a trailing newline.
func CSV(quiz domain.Quiz, result domain.QuizResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TabularHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range Rows(quiz, result) {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Rows resolves each question to [prompt, chosen text, correct text, status].
// An unanswered question has an empty user answer and is Incorrect.
func Rows(quiz domain.Quiz, result domain.QuizResult) [][]string {
	rows := make([][]string, 0, len(quiz.Questions))
	for i, question := range quiz.Questions {
		answer := domain.Unanswered
		if i < len(result.Answers) {
			answer = result.Answers[i]
		}
		status := "Incorrect"
		if question.IsCorrect(answer) {
			status = "Correct"
		}
		rows = append(rows, []string{
			question.Prompt,
			question.OptionText(answer),
			question.OptionText(question.CorrectOption),
			status,
		})
	}
	return rows
}
