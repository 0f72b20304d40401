package app

import (
	"strings"

	"quiz-platform/internal/domain"
)

// gradeSubmission checks a submission against the question's answers. Points are all or nothing.
func gradeSubmission(question domain.Question, sub domain.AnswerSubmission) (domain.Grade, error) {
	var correct bool
	switch question.Type {
	case domain.SingleChoice, domain.TrueFalse:
		if sub.AnswerID == "" {
			return domain.Grade{}, domain.Invalidf("Answer ID is required for %s questions", question.Type)
		}
		selected, ok := findAnswer(question.Answers, sub.AnswerID)
		if !ok {
			return domain.Grade{}, domain.ErrInvalidAnswerID
		}
		correct = selected.IsCorrect

	case domain.MultipleChoice:
		if len(sub.AnswerIDs) == 0 {
			return domain.Grade{}, domain.Invalid("Answer IDs are required for MULTIPLE_CHOICE questions")
		}
		selected := make(map[string]struct{}, len(sub.AnswerIDs))
		for _, id := range sub.AnswerIDs {
			if _, ok := findAnswer(question.Answers, id); !ok {
				return domain.Grade{}, domain.ErrInvalidAnswerID
			}
			selected[id] = struct{}{}
		}
		correct = sameSet(selected, correctAnswerIDs(question.Answers))

	case domain.OpenText, domain.FillBlank:
		// a blank answer never matches and is graded wrong
		text := strings.TrimSpace(sub.TextAnswer)
		for _, accepted := range question.Answers {
			if text != "" && strings.EqualFold(strings.TrimSpace(accepted.Text), text) {
				correct = true
				break
			}
		}

	default:
		return domain.Grade{}, domain.Invalidf("Unsupported question type %q", question.Type)
	}

	if !correct {
		return domain.Grade{}, nil
	}
	return domain.Grade{Correct: true, Points: question.Points}, nil
}

func findAnswer(answers []domain.Answer, id string) (domain.Answer, bool) {
	for _, a := range answers {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Answer{}, false
}

func correctAnswerIDs(answers []domain.Answer) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, a := range answers {
		if a.IsCorrect {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// validateAnswers enforces the answer-shape rules of each question type.
func validateAnswers(typ domain.QuestionType, answers []domain.Answer) error {
	correct := 0
	for _, a := range answers {
		if strings.TrimSpace(a.Text) == "" {
			return domain.Invalid("Answer text must not be empty")
		}
		if a.IsCorrect {
			correct++
		}
	}

	switch typ {
	case domain.SingleChoice:
		if len(answers) < 2 {
			return domain.Invalid("Single choice questions must have at least 2 answers")
		}
		if correct != 1 {
			return domain.Invalid("Single choice questions must have exactly 1 correct answer")
		}
	case domain.MultipleChoice:
		if len(answers) < 2 {
			return domain.Invalid("Multiple choice questions must have at least 2 answers")
		}
		if correct < 1 {
			return domain.Invalid("Multiple choice questions must have at least 1 correct answer")
		}
	case domain.TrueFalse:
		if len(answers) != 2 {
			return domain.Invalid("True/false questions must have exactly 2 answers")
		}
		if correct != 1 {
			return domain.Invalid("True/false questions must have exactly 1 correct answer")
		}
	case domain.OpenText, domain.FillBlank:
		if len(answers) < 1 {
			return domain.Invalid("Text questions must have at least 1 accepted answer")
		}
	default:
		return domain.Invalidf("Unsupported question type %q", typ)
	}
	return nil
}
