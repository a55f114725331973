package compiler

// ErrorCodes maps cargo exit codes to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "General failure",
	101: "Compile errors",
	126: "Compiler not executable",
	127: "Compiler not found",
	130: "Interrupted",
}

// IsSuccess returns true if the exit code indicates successful compilation
func IsSuccess(code int) bool {
	return code == 0
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}
