package deletion

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) GetPublishMetadata(ctx context.Context, url string) (int, error) {
	args := m.Called(ctx, url)
	return args.Int(0), args.Error(1)
}

func (m *mockRemote) RequestDeletion(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

type recordingRecorder struct {
	outcomes []Outcome
}

func (r *recordingRecorder) ObserveRemoval(o Outcome) { r.outcomes = append(r.outcomes, o) }

func TestReconcileByMetadataStatus(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{}
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/gone").Return(http.StatusNotFound, nil)
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/pending").Return(http.StatusOK, nil)
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/broken").Return(http.StatusInternalServerError, nil)
	remote.On("RequestDeletion", mock.Anything, "https://a.com/gone").Return(nil).Once()

	rec := &recordingRecorder{}
	d := New(remote, remote, rec, Config{}, nil)
	report, err := d.ReconcileDeletions(context.Background(), []string{
		"https://a.com/gone", "https://a.com/pending", "https://a.com/broken",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.com/gone"}, report.Requested)
	assert.Equal(t, []string{"https://a.com/pending"}, report.AlreadyRequested)
	assert.Equal(t, []string{"https://a.com/broken"}, report.Pending)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []Outcome{OutcomeRequested, OutcomeAlreadyRequested, OutcomePending}, rec.outcomes)

	remote.AssertNumberOfCalls(t, "RequestDeletion", 1)
	remote.AssertExpectations(t)
}

func TestReconcileScenario(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{}
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/x").Return(http.StatusNotFound, nil)
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/y").Return(http.StatusOK, nil)
	remote.On("RequestDeletion", mock.Anything, "https://a.com/x").Return(nil).Once()

	report, err := New(remote, remote, nil, Config{}, nil).
		ReconcileDeletions(context.Background(), []string{"https://a.com/x", "https://a.com/y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/x"}, report.Requested)
	assert.Equal(t, []string{"https://a.com/y"}, report.AlreadyRequested)
	remote.AssertNotCalled(t, "RequestDeletion", mock.Anything, "https://a.com/y")
}

func TestReconcileDryRun(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{}
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/x").Return(http.StatusNotFound, nil)

	report, err := New(remote, remote, nil, Config{DryRun: true}, nil).
		ReconcileDeletions(context.Background(), []string{"https://a.com/x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/x"}, report.WouldRequest)
	assert.Empty(t, report.Requested)
	remote.AssertNotCalled(t, "RequestDeletion", mock.Anything, mock.Anything)
}

func TestReconcileRemovalFailureContinues(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{}
	remote.On("GetPublishMetadata", mock.Anything, mock.Anything).Return(http.StatusNotFound, nil)
	remote.On("RequestDeletion", mock.Anything, "https://a.com/1").Return(errors.New("quota exceeded"))
	remote.On("RequestDeletion", mock.Anything, "https://a.com/2").Return(nil)

	report, err := New(remote, remote, nil, Config{}, nil).
		ReconcileDeletions(context.Background(), []string{"https://a.com/1", "https://a.com/2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1"}, report.Failed)
	assert.Equal(t, []string{"https://a.com/2"}, report.Requested)
}

func TestReconcileProbeErrorAborts(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{}
	remote.On("GetPublishMetadata", mock.Anything, "https://a.com/1").Return(0, errors.New("dial tcp: refused"))

	report, err := New(remote, remote, nil, Config{}, nil).
		ReconcileDeletions(context.Background(), []string{"https://a.com/1", "https://a.com/2"})
	require.ErrorContains(t, err, "publish metadata https://a.com/1")
	assert.Empty(t, report.Requested)
	remote.AssertNotCalled(t, "GetPublishMetadata", mock.Anything, "https://a.com/2")
}
