package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo is the metadata kept alongside a saved process dump
type ProcessInfo struct {
	PID  ProcessID `json:"pid"`
	Name string    `json:"name"`
}
