package replayer

// State is one node of the Replayer's state machine
// (IDLE → LAUNCHING → LAUNCHED ⇄ PLAYING → CLOSING → IDLE).
type State string

const (
	StateIdle      State = "IDLE"
	StateLaunching State = "LAUNCHING"
	StateLaunched  State = "LAUNCHED"
	StatePlaying   State = "PLAYING"
	StateClosing   State = "CLOSING"
)
