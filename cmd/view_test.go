package cmd

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"evogen.dev/pkg/evogen/internal/domain"
	m "evogen.dev/pkg/evogen/internal/model"
)

func TestViewCmd_UsesRootOutputFlagByDefault(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().View(mock.Anything, mock.MatchedBy(func(args domain.ViewArgs) bool {
		return args.Reports == m.Path(".evogen-reports") && args.Class == "" && !args.Diff
	})).Return(nil).Once()

	require.NoError(t, newTestCmd(t, newViewCmd(), "view").Execute())
}

func TestViewCmd_ClassAndDiff(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().View(mock.Anything, mock.MatchedBy(func(args domain.ViewArgs) bool {
		return args.Reports == m.Path("./reports-dir") && args.Class == "Flags" && args.Diff
	})).Return(nil).Once()

	err := newTestCmd(t, newViewCmd(), "view", "--output", "./reports-dir", "--class", "Flags", "--diff").Execute()
	require.NoError(t, err)
}

func TestViewCmd_PropagatesError(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().View(mock.Anything, mock.Anything).Return(domain.ErrNotEnoughReports).Once()

	err := newTestCmd(t, newViewCmd(), "view", "--diff").Execute()
	require.ErrorIs(t, err, domain.ErrNotEnoughReports)
}

func TestViewCmd_PositionalArgsAreRejected(t *testing.T) {
	useMockWorkflow(t)

	require.Error(t, newTestCmd(t, newViewCmd(), "view", "./custom-reports").Execute())
}
