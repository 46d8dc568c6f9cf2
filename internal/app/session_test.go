package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notes-quiz-service/internal/domain"
)

func TestNewSessionStartsPresentingFirstQuestion(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	view := s.View()
	assert.Equal(t, 0, view.CurrentIndex)
	assert.Equal(t, 2, view.Total)
	assert.False(t, view.Locked)
	assert.Equal(t, domain.Unanswered, view.Selection)
	assert.Nil(t, view.Feedback)
	assert.Equal(t, 50, view.Progress)
	assert.Equal(t, []int{domain.Unanswered, domain.Unanswered}, s.Selections())
}

func TestSelectOverwritesUntilConfirmed(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	require.NoError(t, s.Select(0, 2))
	require.NoError(t, s.Select(0, 1))
	assert.Equal(t, 1, s.View().Selection)

	require.NoError(t, s.Confirm(0))
	before := s.Selections()

	err := s.Select(0, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Equal(t, before, s.Selections(), "selection must not change once locked")
}

func TestConfirmWithoutSelectionStaysPresenting(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	err := s.Confirm(0)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.False(t, s.View().Locked)
}

func TestRejectsOutOfStateActions(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	assert.ErrorIs(t, s.Select(1, 0), domain.ErrInvalidSelection, "not the current question")
	assert.ErrorIs(t, s.Select(0, 4), domain.ErrInvalidSelection, "option out of range")
	assert.ErrorIs(t, s.Select(0, -1), domain.ErrInvalidSelection, "sentinel is not selectable")

	result, err := s.Advance(0)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection, "advance before confirm")
	assert.Nil(t, result)
	assert.Equal(t, 0, s.View().CurrentIndex)
}

func TestAdvanceMovesToNextQuestion(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	require.NoError(t, s.Select(0, 1))
	require.NoError(t, s.Confirm(0))
	before := s.Selections()[1]

	result, err := s.Advance(0)
	require.NoError(t, err)
	assert.Nil(t, result)

	view := s.View()
	assert.Equal(t, 1, view.CurrentIndex)
	assert.False(t, view.Locked)
	assert.Equal(t, before, s.Selections()[1])
	assert.Equal(t, 100, view.Progress)
}

func TestLockedViewRevealsFeedback(t *testing.T) {
	s, _ := newTestSession(twoQuestionQuiz())
	defer s.Exit()

	require.NoError(t, s.Select(0, 3))
	require.NoError(t, s.Confirm(0))

	view := s.View()
	require.NotNil(t, view.Feedback)
	assert.False(t, view.Feedback.Correct)
	assert.Equal(t, 1, view.Feedback.CorrectOption)
	assert.Equal(t, "Chloroplasts hold chlorophyll.", view.Feedback.Explanation)
}

func TestTerminalAdvanceProducesSingleResult(t *testing.T) {
	s, ticker := newTestSession(twoQuestionQuiz())

	require.NoError(t, s.Select(0, 1))
	require.NoError(t, s.Confirm(0))
	_, err := s.Advance(0)
	require.NoError(t, err)
	require.NoError(t, s.Select(1, 1))
	require.NoError(t, s.Confirm(1))

	result, err := s.Advance(1)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, []int{1, 1}, result.Answers)
	assert.False(t, s.Active())
	assert.True(t, ticker.isStopped())

	again, err := s.Advance(1)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Nil(t, again)
	assert.ErrorIs(t, s.Select(1, 0), domain.ErrInvalidSelection)

	result.Answers[0] = 3
	assert.Equal(t, []int{1, 1}, s.Selections(), "result answers must be a copy")
}

func TestExitProducesNoResult(t *testing.T) {
	s, ticker := newTestSession(twoQuestionQuiz())

	require.NoError(t, s.Select(0, 1))
	require.NoError(t, s.Confirm(0))
	s.Exit()

	result, err := s.Advance(0)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Nil(t, result)
	assert.True(t, ticker.isStopped())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("timer goroutine did not exit")
	}
}

func TestTimerCountsTicksUntilFinish(t *testing.T) {
	hooks := make(chan int, 8)
	s, ticker := newTestSession(twoQuestionQuiz(), WithTickHook(func(s *Session) {
		hooks <- s.Elapsed()
	}))

	ticker.c <- time.Now()
	ticker.c <- time.Now()
	assert.Eventually(t, func() bool { return s.Elapsed() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, <-hooks)
	assert.Equal(t, 2, <-hooks)
	assert.Equal(t, "00:02", s.View().Clock)

	// Confirming does not pause the timer.
	require.NoError(t, s.Select(0, 1))
	require.NoError(t, s.Confirm(0))
	ticker.c <- time.Now()
	assert.Eventually(t, func() bool { return s.Elapsed() == 3 }, time.Second, 5*time.Millisecond)

	_, err := s.Advance(0)
	require.NoError(t, err)
	require.NoError(t, s.Select(1, 0))
	require.NoError(t, s.Confirm(1))
	result, err := s.Advance(1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TimeTaken)

	assert.False(t, s.tick(), "ticks after finish are discarded")
	assert.Equal(t, 3, s.Elapsed())
}

func TestSessionToleratesNonStandardOptionCount(t *testing.T) {
	quiz := &domain.Quiz{
		Title: "Short",
		Questions: []domain.Question{
			{Prompt: "Pick", Options: []string{"a", "b", "c"}, CorrectOption: 0},
		},
	}
	s, _ := newTestSession(quiz)

	assert.ErrorIs(t, s.Select(0, 3), domain.ErrInvalidSelection)
	require.NoError(t, s.Select(0, 0))
	require.NoError(t, s.Confirm(0))
	result, err := s.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 1, result.Total)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "61:01", FormatClock(3661))
}

func TestEmptyQuizSessionIsFinished(t *testing.T) {
	s, ticker := newTestSession(&domain.Quiz{Title: "Empty"})

	view := s.View()
	assert.True(t, view.Finished)
	assert.Equal(t, 0, view.Total)
	assert.Equal(t, domain.Unanswered, view.Selection)
	assert.False(t, s.Active())
	assert.True(t, ticker.isStopped())

	assert.ErrorIs(t, s.Select(0, 0), domain.ErrInvalidSelection)
	_, err := s.Advance(0)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("timer goroutine did not exit")
	}
}
