package httptransport_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"procura/internal/assignment"
	"procura/internal/delivery"
	httptransport "procura/internal/transport/http"
	"procura/internal/transport/http/mocks"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/middleware/admin"
	"procura/pkg/platform/middleware/requestid"
	"procura/pkg/testutil"
)

func newRouter(t *testing.T, checks map[string]httptransport.Check) (http.Handler, *mocks.MockAssignments, *mocks.MockDeliveries) {
	t.Helper()
	ctrl := gomock.NewController(t)
	assignments := mocks.NewMockAssignments(ctrl)
	deliveries := mocks.NewMockDeliveries(ctrl)
	h := httptransport.NewHandler(assignments, deliveries, checks, nil)
	return httptransport.NewRouter(h, testAdminToken), assignments, deliveries
}

const testAdminToken = "ops-secret"

var opsAuth = testutil.WithHeader(admin.Header, testAdminToken)

func TestHealthz(t *testing.T) {
	testutil.Given(t, "the ops router", func(t *testing.T) {
		router, _, _ := newRouter(t, nil)

		testutil.When(t, "probing liveness", func(t *testing.T) {
			w := testutil.DoRequest(router, http.MethodGet, "/healthz")

			testutil.Then(t, "it answers ok and tags the response with a request id", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.NotEmpty(t, w.Header().Get(requestid.Header))
			})
		})
	})
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		router, _, _ := newRouter(t, map[string]httptransport.Check{"postgres": ok, "redis": ok})
		w := testutil.DoRequest(router, http.MethodGet, "/readyz")
		require.Equal(t, http.StatusOK, w.Code)

		body := testutil.UnmarshalResponse[struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}](t, w)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
	})

	t.Run("one failing check makes the service unavailable", func(t *testing.T) {
		router, _, _ := newRouter(t, map[string]httptransport.Check{"postgres": ok, "redis": down})
		w := testutil.DoRequest(router, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := newRouter(t, nil)
	w := testutil.DoRequest(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessAssignments(t *testing.T) {
	failed := id.NewDepartmentID()

	t.Run("returns the batch summary", func(t *testing.T) {
		router, assignments, _ := newRouter(t, nil)
		assignments.EXPECT().ProcessAllDepartments(gomock.Any()).Return(assignment.BatchSummary{
			Processed: 3, AutoAssigned: 1, NotificationsSent: 1, Errors: 1, Failed: []id.DepartmentID{failed},
		}, nil)

		w := testutil.DoRequest(router, http.MethodPost, "/ops/assignments/process", opsAuth)
		require.Equal(t, http.StatusOK, w.Code)

		body := *testutil.UnmarshalResponse[map[string]any](t, w)
		assert.EqualValues(t, 3, body["processed"])
		assert.EqualValues(t, 1, body["autoAssigned"])
		assert.Equal(t, []any{failed.String()}, body["failed"])
	})

	t.Run("maps service errors", func(t *testing.T) {
		router, assignments, _ := newRouter(t, nil)
		assignments.EXPECT().ProcessAllDepartments(gomock.Any()).
			Return(assignment.BatchSummary{}, dErrors.New(dErrors.CodeInternal, "failed to list departments"))

		w := testutil.DoRequest(router, http.MethodPost, "/ops/assignments/process", opsAuth)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "failed to list departments")
	})

	t.Run("rejects GET", func(t *testing.T) {
		router, _, _ := newRouter(t, nil)
		w := testutil.DoRequest(router, http.MethodGet, "/ops/assignments/process", opsAuth)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRetryDeliveries(t *testing.T) {
	t.Run("uses the default limit", func(t *testing.T) {
		router, _, deliveries := newRouter(t, nil)
		deliveries.EXPECT().RetryFailed(gomock.Any(), 100).Return(delivery.RetryReport{Attempted: 2, Delivered: 1, Failed: 1}, nil)

		w := testutil.DoRequest(router, http.MethodPost, "/ops/deliveries/retry", opsAuth)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"attempted":2,"delivered":1,"failed":1,"skipped":0}`, w.Body.String())
	})

	t.Run("honours an explicit limit", func(t *testing.T) {
		router, _, deliveries := newRouter(t, nil)
		deliveries.EXPECT().RetryFailed(gomock.Any(), 5).Return(delivery.RetryReport{}, nil)

		w := testutil.DoRequest(router, http.MethodPost, "/ops/deliveries/retry?limit=5", opsAuth)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects an invalid limit", func(t *testing.T) {
		router, _, _ := newRouter(t, nil)
		w := testutil.DoRequest(router, http.MethodPost, "/ops/deliveries/retry?limit=abc", opsAuth)
		testutil.AssertStatusAndError(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestOpsRequireAdminToken(t *testing.T) {
	testutil.Given(t, "the ops router", func(t *testing.T) {
		router, _, _ := newRouter(t, nil)

		testutil.When(t, "triggering a batch without a token", func(t *testing.T) {
			w := testutil.DoRequest(router, http.MethodPost, "/ops/assignments/process")

			testutil.Then(t, "it is rejected before reaching the service", func(t *testing.T) {
				testutil.AssertStatusAndError(t, w, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "triggering a retry with the wrong token", func(t *testing.T) {
			w := testutil.DoRequest(router, http.MethodPost, "/ops/deliveries/retry",
				testutil.WithHeader(admin.Header, "guess"))

			testutil.Then(t, "it is rejected", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			})
		})
	})
}

func TestOpsDisabledWithoutConfiguredToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := httptransport.NewHandler(mocks.NewMockAssignments(ctrl), mocks.NewMockDeliveries(ctrl), nil, nil)
	router := httptransport.NewRouter(h, "")

	w := testutil.DoRequest(router, http.MethodPost, "/ops/assignments/process", testutil.WithHeader(admin.Header, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
