package process

// ProcessState represents the state of a process
type ProcessState string

const (
	ProcessRunning    ProcessState = "R" // Running
	ProcessSleeping   ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting    ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie     ProcessState = "Z" // Zombie
	ProcessStopped    ProcessState = "T" // Stopped (on a signal)
	ProcessTracingStp ProcessState = "t" // Tracing stop
	ProcessDead       ProcessState = "X" // Dead
	ProcessUnknown    ProcessState = ""
)

// Alive reports whether memory of a process in this state can still be read.
// An unknown state counts as alive; the next read decides.
func (s ProcessState) Alive() bool {
	return s != ProcessZombie && s != ProcessDead
}
