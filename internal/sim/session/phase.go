package session

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseAwaitingAction
	PhaseResolving
	PhaseAwardingRewards
	PhaseSynchronizing
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "SETUP"
	case PhaseAwaitingAction:
		return "AWAITING_ACTION"
	case PhaseResolving:
		return "RESOLVING"
	case PhaseAwardingRewards:
		return "AWARDING_REWARDS"
	case PhaseSynchronizing:
		return "SYNCHRONIZING"
	case PhaseTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
