package recorder

// State is one node of the Recorder's state machine
// (IDLE → LAUNCHING → READY ⇄ RECORDING → CLOSING → IDLE).
type State string

const (
	StateIdle       State = "IDLE"
	StateLaunching  State = "LAUNCHING"
	StateReady      State = "READY"
	StateRecording  State = "RECORDING"
	StateClosing    State = "CLOSING"
)
