package release

// State of a release flow
type State string

const (
	// Idle is the state of a release that has not started yet
	Idle State = "idle"
	// ComputeTarget determines the version and tag to build
	ComputeTarget State = "compute-target"
	// CheckExistence queries the registry
	CheckExistence State = "check-existence"
	// Confirm waits for the operator
	Confirm State = "confirm"
	// Stage writes the target version into the baseline record
	Stage State = "stage"
	// Build runs the image build
	Build State = "build"
	// Restore puts the previous baseline back
	Restore State = "restore"
	// Push publishes the image
	Push State = "push"
	// Advance durably records a promoted version as the new baseline
	Advance State = "advance"

	// Done is the terminal state of a successful release
	Done State = "done"
	// Aborted is the terminal state of a release declined by the operator
	Aborted State = "aborted"
	// Failed is the terminal state of a release interrupted by an error
	Failed State = "failed"
)

// IsTerminal tells if a flow ends in this state
func (s State) IsTerminal() bool {
	switch s {
	case Done, Aborted, Failed:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	return string(s)
}
