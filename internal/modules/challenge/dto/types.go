package dto

type ChallengeOutput struct {
	ID                  string
	Title               string
	Description         string
	Points              int
	DurationDays        int
	ReflectionQuestions []string
}
