package codes

// Process exit codes reported by ratbuild
const (
	ExitSuccess          = 0
	ExitUsage            = 1
	ExitCompileFailed    = 2
	ExitArtifactNotFound = 3
	ExitRelocationFailed = 4
	ExitTestFailed       = 5
	ExitInterrupted      = 130
)

// ExitCodes maps ratbuild exit codes to their descriptions
var ExitCodes = map[int]string{
	ExitSuccess:          "Success",
	ExitUsage:            "Invalid usage or configuration",
	ExitCompileFailed:    "Compilation failed",
	ExitArtifactNotFound: "Expected artifact missing after compilation",
	ExitRelocationFailed: "Artifact relocation failed",
	ExitTestFailed:       "Test stage failed",
	ExitInterrupted:      "Interrupted",
}

// GetExitMessage returns the description for a given exit code, or a generic message if unknown
func GetExitMessage(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// ExitCode returns the process exit code for err.
// A nil error is success; errors outside the taxonomy are usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	e, ok := AsError(err)
	if !ok {
		return ExitUsage
	}

	switch e.Kind {
	case CompileFailed:
		return ExitCompileFailed
	case ArtifactNotFound:
		return ExitArtifactNotFound
	case RelocationFailed:
		return ExitRelocationFailed
	case TestFailed:
		return ExitTestFailed
	case Interrupted:
		return ExitInterrupted
	default:
		return ExitUsage
	}
}
