package appconf

// Environment selects environment-specific behaviour such as log verbosity.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// Config holds the transport-level settings of the server process.
type Config struct {
	Port           int
	Env            Environment
	Verbose        bool
	RateLimit      int
	LogFile        string
	MetricsEnabled bool
	NATSURL        string
}

// EnvFlagToEnvironment maps the -env flag value onto an Environment.
// Matching is exact; anything unrecognised is Development.
func EnvFlagToEnvironment(env string) Environment {
	switch env {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}
