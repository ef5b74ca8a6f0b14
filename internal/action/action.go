package action

type Action int

const (
	Undecided Action = iota // 0：Undecided
	Allow                   // 1：Pass
	Deny                    // 2：Reject
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "undecided"
	}
}

// Decision saves the result of the decision
type Decision struct {
	result Action
	reason string
}

func NewDecision() *Decision {
	return &Decision{result: Undecided}
}

func (d *Decision) Get() Action {
	return d.result
}

func (d *Decision) Reason() string {
	return d.reason
}

func (d *Decision) Set(new Action, reason string) {
	d.result = new
	d.reason = reason
}

// Decided reports whether a verdict has been reached
func (d *Decision) Decided() bool {
	return d.result != Undecided
}
