package types

// RegisterRequest and LoginRequest take fields as sent. The store decides
// what is a duplicate; there are no format rules.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RunRequest carries the non-file fields of a research run upload.
type RunRequest struct {
	Mode     string `form:"mode" json:"mode"`
	Question string `form:"question" json:"question"`
}

// EvaluateRequest carries the Challenge Me answers next to the re-uploaded file.
type EvaluateRequest struct {
	Answer1 string `form:"answer1" json:"answer1"`
	Answer2 string `form:"answer2" json:"answer2"`
	Answer3 string `form:"answer3" json:"answer3"`
}

func (r EvaluateRequest) Answers() Answers {
	return Answers{r.Answer1, r.Answer2, r.Answer3}
}

// LookupRequest runs one of the agent's reference tools directly.
type LookupRequest struct {
	Source string `json:"source" binding:"required,oneof=web wikipedia"`
	Query  string `json:"query" binding:"required"`
}
