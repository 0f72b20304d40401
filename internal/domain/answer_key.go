package domain

// AnswerKey is the grading view of a quiz: its questions with their answers.
type AnswerKey struct {
	QuizID    string     `json:"quizId"`
	TimeLimit *int       `json:"timeLimit"`
	Questions []Question `json:"questions"`
}

func (k AnswerKey) Question(id string) (Question, bool) {
	for _, q := range k.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// MaxScore is the sum of question points.
func (k AnswerKey) MaxScore() int {
	total := 0
	for _, q := range k.Questions {
		total += q.Points
	}
	return total
}

// AnswerSubmission is a user's answer to one question. Which field is read depends on the question type.
type AnswerSubmission struct {
	QuestionID string
	AnswerID   string
	AnswerIDs  []string
	TextAnswer string
	TimeSpent  *int
}

// Grade is the outcome of grading one submission.
type Grade struct {
	Correct bool
	Points  int
}
