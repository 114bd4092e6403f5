package sandbox

// State is the provider-reported lifecycle state of a sandbox.
type State string

const (
	StateCreating State = "creating"
	StateStarted  State = "started"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Sandbox is a remotely provisioned container as reported by the provider.
type Sandbox struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
	State State  `json:"state"`
}

// CreateRequest provisions a new sandbox.
type CreateRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ExecRequest runs a shell command inside a sandbox.
type ExecRequest struct {
	Command        string `json:"command"`
	Cwd            string `json:"cwd,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// ExecResult is the outcome of a shell command.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// TreeEntry is one node of a sandbox file tree listing.
type TreeEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}
