package sync

import "encoding/json"

type loadInput struct {
	Username string `query:"username" doc:"Имя пользователя, чей снимок нужно вернуть"`
}

type loadOutput struct {
	Status int
	Body   LoadResponse
}

type LoadResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Error     string          `json:"error,omitempty"`
	Details   string          `json:"details,omitempty"`
}

// saveInput принимает тело как есть: снимок может весить десятки мегабайт,
// и разбирать его в map ради схемы OpenAPI дорого.
type saveInput struct {
	RawBody []byte
}

type SaveRequest struct {
	Username string          `json:"username"`
	Data     json.RawMessage `json:"data"`
}

type saveOutput struct {
	Status int
	Body   SaveResponse
}

type SaveResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
}
