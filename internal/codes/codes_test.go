package codes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, ExitSuccess},
		{"plain error is usage", errors.New("boom"), ExitUsage},
		{"compile failed", New(CompileFailed, "core", "compile", nil), ExitCompileFailed},
		{"artifact not found", New(ArtifactNotFound, "stub", "relocate", nil), ExitArtifactNotFound},
		{"relocation failed", New(RelocationFailed, "bin", "strip", nil), ExitRelocationFailed},
		{"test failed", New(TestFailed, "", "native", nil), ExitTestFailed},
		{"interrupted", New(Interrupted, "core", "compile", nil), ExitInterrupted},
		{"config invalid", New(ConfigInvalid, "", "config", nil), ExitUsage},
		{
			name: "wrapped error keeps its kind",
			err:  fmt.Errorf("failed to build: %w", New(CompileFailed, "core", "compile", nil)),
			want: ExitCompileFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestGetExitMessage(t *testing.T) {
	assert.Equal(t, "Success", GetExitMessage(ExitSuccess))
	assert.Equal(t, "Test stage failed", GetExitMessage(ExitTestFailed))
	assert.Equal(t, "Unknown error", GetExitMessage(42))
}

func TestError_Message(t *testing.T) {
	err := New(CompileFailed, "core", "compile", errors.New("exit status 101"))
	assert.Equal(t, "CompileFailed: core/compile: exit status 101", err.Error())

	err = New(TestFailed, "", "downstream", nil)
	assert.Equal(t, "TestFailed: downstream", err.Error())
}

func TestError_Is(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("wrapped: %w", New(TestFailed, "", "native", cause))

	assert.True(t, errors.Is(err, &Error{Kind: TestFailed}))
	assert.False(t, errors.Is(err, &Error{Kind: CompileFailed}))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsKind(err, TestFailed))
}
