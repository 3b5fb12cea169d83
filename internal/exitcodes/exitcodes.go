package exitcodes

// Exit codes for kepler-clean
// These codes form the operational contract with cron jobs and batch scripts
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration missing or invalid (KEPLER_MODELS, config file, flags)
	SafetyViolation = 3 // Safety validator blocked a delete target
	RuntimeError    = 4 // Filesystem or other runtime error during cleaning
	ParseError      = 5 // A dump file name did not end in #<integer>
)
