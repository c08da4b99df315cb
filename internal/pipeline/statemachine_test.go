package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/pipeline"
)

func TestTransition_QueuedToRunning_Allowed(t *testing.T) {
	require.NoError(t, pipeline.Transition(domain.RunQueued, domain.RunRunning))
}

func TestTransition_RunningToEachTerminalState_Allowed(t *testing.T) {
	for _, to := range []domain.RunStatus{domain.RunSucceeded, domain.RunFailed, domain.RunSkipped} {
		require.NoError(t, pipeline.Transition(domain.RunRunning, to))
	}
}

func TestTransition_FromTerminal_AlwaysRejected(t *testing.T) {
	for _, from := range []domain.RunStatus{domain.RunSucceeded, domain.RunFailed, domain.RunSkipped} {
		err := pipeline.Transition(from, domain.RunRunning)
		require.Error(t, err)
	}
}

func TestTransition_QueuedToTerminal_Rejected(t *testing.T) {
	err := pipeline.Transition(domain.RunQueued, domain.RunSucceeded)
	require.Error(t, err)
}
