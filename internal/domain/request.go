package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinNotesChars    = 50
	DefaultMaxNotes  = 8000
	MinQuestionCount = 5
	MaxQuestionCount = 20
	DefaultCount     = 10
	DefaultLanguage  = "Hindi"
)

// GenerationMode selects which gateway input is populated.
type GenerationMode string

const (
	ModeText  GenerationMode = "text"
	ModeImage GenerationMode = "image"
)

// GenerationRequest carries study content and quiz parameters to the gateway.
type GenerationRequest struct {
	Notes      string
	Image      []byte
	Difficulty Difficulty
	Count      int
	Language   string
	Topic      string
	// Fresh bypasses cached and archived quizzes; the new quiz replaces them.
	// It does not take part in the fingerprint.
	Fresh bool
}

// Mode reports whether the request is text or image based.
func (r GenerationRequest) Mode() GenerationMode {
	if len(r.Image) > 0 {
		return ModeImage
	}
	return ModeText
}

// Normalize fills defaults and validates the request. maxNotes <= 0 uses DefaultMaxNotes.
func (r GenerationRequest) Normalize(defaultLanguage string, maxNotes int) (GenerationRequest, error) {
	if maxNotes <= 0 {
		maxNotes = DefaultMaxNotes
	}
	hasNotes := strings.TrimSpace(r.Notes) != ""
	hasImage := len(r.Image) > 0
	switch {
	case hasNotes && hasImage:
		return r, fmt.Errorf("%w: provide either notes or an image, not both", ErrInvalidRequest)
	case !hasNotes && !hasImage:
		return r, fmt.Errorf("%w: notes or image required", ErrInvalidRequest)
	}
	if hasNotes {
		if utf8.RuneCountInString(strings.TrimSpace(r.Notes)) < MinNotesChars {
			return r, fmt.Errorf("%w: notes must contain at least %d characters", ErrInvalidRequest, MinNotesChars)
		}
		r.Notes = truncateRunes(r.Notes, maxNotes)
	}

	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Count < MinQuestionCount || r.Count > MaxQuestionCount {
		return r, fmt.Errorf("%w: question count %d outside [%d,%d]", ErrInvalidRequest, r.Count, MinQuestionCount, MaxQuestionCount)
	}

	difficulty, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return r, err
	}
	r.Difficulty = difficulty

	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = defaultLanguage
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	r.Topic = strings.TrimSpace(r.Topic)
	return r, nil
}

// Fingerprint identifies requests that would produce interchangeable quizzes.
func (r GenerationRequest) Fingerprint() string {
	h := sha256.New()
	writeField := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	writeField([]byte(r.Mode()))
	writeField([]byte(r.Notes))
	writeField(r.Image)
	writeField([]byte(r.Difficulty))
	writeField([]byte(fmt.Sprint(r.Count)))
	writeField([]byte(r.Language))
	writeField([]byte(r.Topic))
	return hex.EncodeToString(h.Sum(nil))
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
