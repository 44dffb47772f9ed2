package domain

// ConnectionState is the lifecycle state of one server pipeline. It is owned
// exclusively by the lifecycle manager; every other component reads it only.
type ConnectionState int32

const (
	StateUninitialized ConnectionState = iota
	StateConnecting
	StateConnected
	StateRunning
	StateStopping
	StateStopped
)

var stateNames = map[ConnectionState]string{
	StateUninitialized: "UNINITIALIZED",
	StateConnecting:    "CONNECTING",
	StateConnected:     "CONNECTED",
	StateRunning:       "RUNNING",
	StateStopping:      "STOPPING",
	StateStopped:       "STOPPED",
}

func (s ConnectionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether the state admits no further transitions.
func (s ConnectionState) Terminal() bool {
	return s == StateStopped
}
