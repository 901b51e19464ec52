package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"evogen.dev/pkg/evogen/internal/domain"
	m "evogen.dev/pkg/evogen/internal/model"
)

func TestMergeCmd_UsesRootOutputFlagByDefault(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().Merge(mock.Anything, mock.MatchedBy(func(args domain.MergeArgs) bool {
		return args.Reports == m.Path(".evogen-reports") &&
			assert.ObjectsAreEqual([]m.Path{"ci/job-1", "ci/job-2"}, args.Inputs)
	})).Return(nil).Once()

	require.NoError(t, newTestCmd(t, newMergeCmd(), "merge", "ci/job-1", "ci/job-2").Execute())
}

func TestMergeCmd_RootOutputFlagIsPassedThrough(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().Merge(mock.Anything, mock.MatchedBy(func(args domain.MergeArgs) bool {
		return args.Reports == m.Path("./reports-dir")
	})).Return(nil).Once()

	require.NoError(t, newTestCmd(t, newMergeCmd(), "--output", "./reports-dir", "merge", "ci/job-1").Execute())
}

func TestMergeCmd_RequiresInputs(t *testing.T) {
	useMockWorkflow(t)

	require.Error(t, newTestCmd(t, newMergeCmd(), "merge").Execute())
}
