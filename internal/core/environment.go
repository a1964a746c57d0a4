package core

// Environment selects logging verbosity and error detail for the server.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the process serves production traffic.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment maps the SERVER_ENVIRONMENT value onto the known set.
// Unrecognised values become Development so a misconfigured deployment
// starts with verbose logging instead of refusing to boot.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}
