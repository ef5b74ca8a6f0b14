package dataType

const GateVersion = "1.0.1"

type UserRequest struct {
	RequestID     string
	RemoteIP      string
	Uri           string
	UserAgent     string
	Host          string
	InternalToken string
}

// GateRule is the persisted gate state stored next to the allow list.
type GateRule struct {
	Enabled     bool     `yaml:"enabled"`
	RequiredIPs []string `yaml:"required_ips"`
}
