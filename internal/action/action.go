package action

import "net/http"

type State int

const (
	Continue State = iota // 0：run the next check
	Done                  // 1：stop, the decision is final
)

// Decision saves the result of the check chain
type Decision struct {
	State        State
	HTTPCode     []byte
	ResponseData []byte
	// Source names the check that finished the chain.
	Source string
	// Cookie is set on the response when the chain is done.
	Cookie *http.Cookie
}

func NewDecision() *Decision {
	return &Decision{State: Continue}
}

func (d *Decision) Set(state State) {
	d.State = state
}

func (d *Decision) SetCode(state State, httpCode []byte) {
	d.State = state
	d.HTTPCode = httpCode
}

func (d *Decision) SetResponse(state State, httpCode []byte, responseData []byte) {
	d.State = state
	d.HTTPCode = httpCode
	d.ResponseData = responseData
}
