package entity

// Lists is the state of both documents after a workflow ran.
type Lists struct {
	Detected []string `json:"detected"`
	Blocked  []string `json:"blocked"`
}

// Notice is the structured outcome of a workflow, delivered to whoever
// subscribed to workflow results. Blocking notices require an explicit
// acknowledgment from the user (imports).
type Notice struct {
	Op       string `json:"op"` // "block", "unblock", "import", "export", "store"
	Website  string `json:"website,omitempty"`
	Message  string `json:"message"`
	Err      string `json:"error,omitempty"`
	Blocking bool   `json:"blocking"`
}

// Failed reports whether the notice describes a failure.
func (n Notice) Failed() bool {
	return n.Err != ""
}
