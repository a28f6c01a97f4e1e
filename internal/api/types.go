package api

import "strings"

// Question mirrors the public question payload served by the AMA API and
// carried inside stream events.
type Question struct {
	ID            string `json:"id"`
	Value         string `json:"value"`
	ReactionCount int    `json:"reaction_count"`
	Answered      bool   `json:"answered"`
}

// Room mirrors /room/{id}.
type Room struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	QuestionsCount int    `json:"questions_count"`
}

// ErrorResponse is the JSON body the API returns alongside 4xx/5xx statuses.
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type createQuestionRequest struct {
	RoomID string `json:"room_id"`
	Value  string `json:"value"`
}

// CloneQuestions returns an independent copy of qs, or nil when qs is empty.
func CloneQuestions(qs []Question) []Question {
	if len(qs) == 0 {
		return nil
	}
	dup := make([]Question, len(qs))
	copy(dup, qs)
	return dup
}

// Preview returns the question text collapsed onto a single line.
func (q Question) Preview() string {
	return strings.Join(strings.Fields(q.Value), " ")
}
