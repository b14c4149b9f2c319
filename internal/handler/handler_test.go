package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"distromart-be/internal/apperr"
	"distromart-be/internal/auth"
	"distromart-be/internal/credit"
	"distromart-be/internal/ledger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/order"
	"distromart-be/internal/payment"
	"distromart-be/internal/reconcile"
	"distromart-be/internal/report"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- service mocks ---

type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) PlaceOrder(ctx context.Context, actor auth.Actor, draft order.Draft) (*order.Order, error) {
	args := m.Called(ctx, actor, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrderForClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID, draft order.Draft) (*order.Order, error) {
	args := m.Called(ctx, actor, clientID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status order.Status) (*order.Order, error) {
	args := m.Called(ctx, actor, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Assign(ctx context.Context, actor auth.Actor, orderID, subAdminID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, orderID, subAdminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, actor auth.Actor, f order.Filter) ([]order.Order, error) {
	args := m.Called(ctx, actor, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) RecordPayment(ctx context.Context, actor auth.Actor, in payment.Input) (*payment.Receipt, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func (m *MockPaymentService) History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]payment.Payment, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

type MockCreditService struct{ mock.Mock }

func (m *MockCreditService) ValidatePendingLimit(ctx context.Context, actor auth.Actor, clientID uuid.UUID, total, paid decimal.Decimal) (*credit.Result, error) {
	args := m.Called(ctx, actor, clientID, total, paid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Result), args.Error(1)
}

func (m *MockCreditService) FinancialStatus(ctx context.Context, actor auth.Actor, clientID uuid.UUID) (*credit.FinancialStatus, error) {
	args := m.Called(ctx, actor, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.FinancialStatus), args.Error(1)
}

func (m *MockCreditService) SetPendingLimit(ctx context.Context, actor auth.Actor, clientID uuid.UUID, limit credit.PendingLimit) error {
	return m.Called(ctx, actor, clientID, limit).Error(0)
}

type MockReportService struct{ mock.Mock }

func (m *MockReportService) BrandPending(ctx context.Context, actor auth.Actor) ([]report.BrandPending, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.BrandPending), args.Error(1)
}

func (m *MockReportService) SalesmanPerformance(ctx context.Context, actor auth.Actor, salesmanID uuid.UUID, from, to *time.Time) (*report.SalesmanPerformance, error) {
	args := m.Called(ctx, actor, salesmanID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.SalesmanPerformance), args.Error(1)
}

func (m *MockReportService) Dashboard(ctx context.Context, actor auth.Actor) (*report.Dashboard, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Dashboard), args.Error(1)
}

func (m *MockReportService) OverdueCollections(ctx context.Context, actor auth.Actor, asOf time.Time) ([]report.OverdueOrder, error) {
	args := m.Called(ctx, actor, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.OverdueOrder), args.Error(1)
}

type MockReconciler struct{ mock.Mock }

func (m *MockReconciler) Run(ctx context.Context) (*reconcile.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Result), args.Error(1)
}

// --- helpers ---

type fixture struct {
	orders    *MockOrderService
	payments  *MockPaymentService
	credit    *MockCreditService
	reports   *MockReportService
	reconcile *MockReconciler
	metrics   *metrics.Registry
	mux       *http.ServeMux
}

func newFixture() *fixture {
	f := &fixture{
		orders:    new(MockOrderService),
		payments:  new(MockPaymentService),
		credit:    new(MockCreditService),
		reports:   new(MockReportService),
		reconcile: new(MockReconciler),
		metrics:   metrics.NewRegistry(),
		mux:       http.NewServeMux(),
	}
	New(Deps{
		Orders:    f.orders,
		Payments:  f.payments,
		Credit:    f.credit,
		Reports:   f.reports,
		Reconcile: f.reconcile,
		Metrics:   f.metrics,
	}).Register(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string, actor *auth.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		OrderID string `json:"order_id"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	retailer = auth.Actor{ID: uuid.New(), Role: auth.RoleRetailer}
	admin    = auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	subAdmin = auth.Actor{ID: uuid.New(), Role: auth.RoleSubAdmin}
)

const draftBody = `{"items":[{"product_id":"7f6c2d1e-0d5a-4c5e-9d6f-1a2b3c4d5e6f","quantity":2,"unit_price":"500.00"}],"initial_payment":"400.00","payment_method":"cash"}`

// --- tests ---

func TestPlaceOrder(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFixture()
		created := &order.Order{ID: uuid.New(), OrderNumber: "ORD-20261017-0001"}
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.MatchedBy(func(dr order.Draft) bool {
			return len(dr.Items) == 1 && dr.Items[0].Quantity == 2 &&
				dr.InitialPayment != nil && dr.InitialPayment.Equal(d("400")) &&
				dr.PaymentMethod == payment.MethodCash
		})).Return(created, nil).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "ORD-20261017-0001")
		f.orders.AssertExpectations(t)
	})

	t.Run("Limit exceeded renders the numbers", func(t *testing.T) {
		f := newFixture()
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.Anything).
			Return(nil, &credit.LimitExceededError{CurrentPending: d("4000"), NewPending: d("1500"), Limit: d("5000")}).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "pending_limit_exceeded", env.Error.Code)
		assert.Contains(t, env.Error.Message, "4000.00")
		assert.Contains(t, env.Error.Message, "1500.00")
		assert.Contains(t, env.Error.Message, "5000.00")
	})

	t.Run("Stale quoted price", func(t *testing.T) {
		f := newFixture()
		productID := uuid.MustParse("7f6c2d1e-0d5a-4c5e-9d6f-1a2b3c4d5e6f")
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.MatchedBy(func(dr order.Draft) bool {
			return len(dr.Items) == 1 && dr.Items[0].UnitPrice != nil && dr.Items[0].UnitPrice.Equal(d("500"))
		})).Return(nil, &order.PriceChangedError{ProductID: productID, Quoted: d("500"), Current: d("525")}).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "price_changed", env.Error.Code)
		assert.Contains(t, env.Error.Message, "525.00")
		f.orders.AssertExpectations(t)
	})

	t.Run("Conflict is retried", func(t *testing.T) {
		f := newFixture()
		created := &order.Order{ID: uuid.New()}
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.Anything).
			Return(nil, apperr.Conflict("client_locked", errors.New("busy"))).Once()
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.Anything).
			Return(created, nil).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusCreated, w.Code)
		f.orders.AssertNumberOfCalls(t, "PlaceOrder", 2)
	})

	t.Run("Conflict exhausted", func(t *testing.T) {
		f := newFixture()
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.Anything).
			Return(nil, apperr.Conflict("client_locked", errors.New("busy")))

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "the resource is busy, please retry", decodeError(t, w).Error.Message)
		f.orders.AssertNumberOfCalls(t, "PlaceOrder", 3)
	})

	t.Run("Unknown field", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/orders", `{"items":[],"discount":"10"}`, &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w).Error.Code)
		f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Empty items fail validation", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/orders", `{"items":[]}`, &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_field", decodeError(t, w).Error.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		f := newFixture()
		f.orders.On("PlaceOrder", mock.Anything, auth.Actor{}, mock.Anything).
			Return(nil, auth.ErrUnauthenticated).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthenticated", decodeError(t, w).Error.Code)
	})

	t.Run("Persistence failure hides the cause", func(t *testing.T) {
		f := newFixture()
		orderID := uuid.New()
		err := apperr.Persistence("order_commit_unknown", errors.New("pq: connection reset")).WithOrder(orderID.String())
		f.orders.On("PlaceOrder", mock.Anything, retailer, mock.Anything).Return(nil, err).Once()

		w := f.do(t, http.MethodPost, "/api/orders", draftBody, &retailer)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "order_commit_unknown", env.Error.Code)
		assert.Equal(t, orderID.String(), env.Error.OrderID)
		assert.NotContains(t, env.Error.Message, "pq:")
	})
}

func TestCreateOrderForClient(t *testing.T) {
	f := newFixture()
	salesman := auth.Actor{ID: uuid.New(), Role: auth.RoleSalesman}
	clientID := uuid.New()
	f.orders.On("CreateOrderForClient", mock.Anything, salesman, clientID, mock.Anything).
		Return(&order.Order{ID: uuid.New(), UserID: clientID}, nil).Once()

	w := f.do(t, http.MethodPost, "/api/clients/"+clientID.String()+"/orders", draftBody, &salesman)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.orders.AssertExpectations(t)
}

func TestGetOrder(t *testing.T) {
	t.Run("Invalid id", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/orders/not-a-uuid", "", &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_id", decodeError(t, w).Error.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.orders.On("Get", mock.Anything, retailer, id).Return(nil, order.ErrOrderNotFound).Once()

		w := f.do(t, http.MethodGet, "/api/orders/"+id.String(), "", &retailer)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListOrders(t *testing.T) {
	t.Run("Filter from query", func(t *testing.T) {
		f := newFixture()
		clientID := uuid.New()
		f.orders.On("List", mock.Anything, admin, mock.MatchedBy(func(fl order.Filter) bool {
			return fl.ClientID != nil && *fl.ClientID == clientID &&
				fl.Status != nil && *fl.Status == order.StatusPending &&
				fl.PaymentStatus != nil && *fl.PaymentStatus == ledger.PaymentPartial &&
				fl.OutstandingOnly &&
				fl.SortField == order.SortPending && fl.SortAsc &&
				fl.DateFrom != nil && fl.DateFrom.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				fl.Search == "0042" && fl.Limit == 10 && fl.Page == 2
		})).Return(nil, nil).Once()

		w := f.do(t, http.MethodGet, "/api/orders?client_id="+clientID.String()+
			"&status=pending&payment_status=partial&outstanding=true&sort=pending_amount&asc=true"+
			"&from=2026-01-01&q=0042&limit=10&page=2", "", &admin)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		f.orders.AssertExpectations(t)
	})

	t.Run("Rejects bad query", func(t *testing.T) {
		f := newFixture()
		for _, q := range []string{"status=shipped_maybe", "payment_status=owing", "sort=name", "from=yesterday", "limit=ten", "client_id=7"} {
			w := f.do(t, http.MethodGet, "/api/orders?"+q, "", &admin)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, q)
		}
		f.orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateStatusAndAssign(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	assignee := uuid.New()
	f.orders.On("UpdateStatus", mock.Anything, subAdmin, id, order.StatusProcessing).
		Return(&order.Order{ID: id, Status: order.StatusProcessing}, nil).Once()
	f.orders.On("Assign", mock.Anything, admin, id, assignee).
		Return(&order.Order{ID: id, AssignedTo: &assignee}, nil).Once()

	w := f.do(t, http.MethodPatch, "/api/orders/"+id.String()+"/status", `{"status":"processing"}`, &subAdmin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/api/orders/"+id.String()+"/status", `{"status":"teleported"}`, &subAdmin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_status", decodeError(t, w).Error.Code)

	w = f.do(t, http.MethodPut, "/api/orders/"+id.String()+"/assignee", `{"sub_admin_id":"`+assignee.String()+`"}`, &admin)
	assert.Equal(t, http.StatusOK, w.Code)

	f.orders.AssertExpectations(t)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.orders.On("CancelOrder", mock.Anything, retailer, id).
		Return(nil, &order.NotCancellableError{Status: order.StatusProcessing}).Once()

	w := f.do(t, http.MethodPost, "/api/orders/"+id.String()+"/cancel", "", &retailer)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "order_not_cancellable", env.Error.Code)
	assert.Contains(t, env.Error.Message, "processing")
}

func TestRecordPayment(t *testing.T) {
	t.Run("Order id comes from the path", func(t *testing.T) {
		f := newFixture()
		orderID := uuid.New()
		f.payments.On("RecordPayment", mock.Anything, admin, mock.MatchedBy(func(in payment.Input) bool {
			return in.OrderID == orderID && in.Amount.Equal(d("250.50")) && in.Method == payment.MethodUPI
		})).Return(&payment.Receipt{OrderID: orderID, PaymentStatus: ledger.PaymentPartial}, nil).Once()

		w := f.do(t, http.MethodPost, "/api/orders/"+orderID.String()+"/payments",
			`{"amount":"250.50","payment_method":"upi"}`, &admin)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"payment_status":"partial"`)
		f.payments.AssertExpectations(t)
	})

	t.Run("Overpayment is payment required", func(t *testing.T) {
		f := newFixture()
		orderID := uuid.New()
		f.payments.On("RecordPayment", mock.Anything, admin, mock.Anything).
			Return(nil, &payment.ExceedsPendingError{Amount: d("300"), Pending: d("200")}).Once()

		w := f.do(t, http.MethodPost, "/api/orders/"+orderID.String()+"/payments",
			`{"amount":"300","payment_method":"cash"}`, &admin)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "payment_exceeds_pending", env.Error.Code)
		assert.Contains(t, env.Error.Message, "300.00")
		assert.Contains(t, env.Error.Message, "200.00")
	})

	t.Run("Unknown method", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/orders/"+uuid.NewString()+"/payments",
			`{"amount":"10","payment_method":"barter"}`, &admin)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		f.payments.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("History is never null", func(t *testing.T) {
		f := newFixture()
		orderID := uuid.New()
		f.payments.On("History", mock.Anything, retailer, orderID).Return(nil, nil).Once()

		w := f.do(t, http.MethodGet, "/api/orders/"+orderID.String()+"/payments", "", &retailer)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestPendingLimit(t *testing.T) {
	clientID := uuid.New()

	t.Run("Check reads amounts from the query", func(t *testing.T) {
		f := newFixture()
		f.credit.On("ValidatePendingLimit", mock.Anything, retailer, clientID,
			mock.MatchedBy(func(v decimal.Decimal) bool { return v.Equal(d("1000")) }),
			mock.MatchedBy(func(v decimal.Decimal) bool { return v.Equal(d("250")) }),
		).Return(&credit.Result{Valid: true, Limit: credit.Unbounded()}, nil).Once()

		w := f.do(t, http.MethodGet, "/api/clients/"+clientID.String()+"/pending-limit/check?total=1000&paid=250", "", &retailer)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"limit":null`)
		f.credit.AssertExpectations(t)
	})

	t.Run("Check rejects a bad amount", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/clients/"+clientID.String()+"/pending-limit/check?total=lots", "", &retailer)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Set bounded", func(t *testing.T) {
		f := newFixture()
		f.credit.On("SetPendingLimit", mock.Anything, admin, clientID, mock.MatchedBy(func(l credit.PendingLimit) bool {
			return l.IsBounded() && l.Amount().Equal(d("5000"))
		})).Return(nil).Once()

		w := f.do(t, http.MethodPut, "/api/clients/"+clientID.String()+"/pending-limit", `{"pending_amount_limit":"5000"}`, &admin)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.credit.AssertExpectations(t)
	})

	t.Run("Set null clears", func(t *testing.T) {
		f := newFixture()
		f.credit.On("SetPendingLimit", mock.Anything, admin, clientID, mock.MatchedBy(func(l credit.PendingLimit) bool {
			return !l.IsBounded()
		})).Return(nil).Once()

		w := f.do(t, http.MethodPut, "/api/clients/"+clientID.String()+"/pending-limit", `{"pending_amount_limit":null}`, &admin)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.credit.AssertExpectations(t)
	})

	t.Run("Negative limit", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPut, "/api/clients/"+clientID.String()+"/pending-limit", `{"pending_amount_limit":"-1"}`, &admin)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		f.credit.AssertNotCalled(t, "SetPendingLimit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Forbidden", func(t *testing.T) {
		f := newFixture()
		f.credit.On("SetPendingLimit", mock.Anything, subAdmin, clientID, mock.Anything).
			Return(apperr.Forbidden("role %s cannot set pending limits", subAdmin.Role)).Once()

		w := f.do(t, http.MethodPut, "/api/clients/"+clientID.String()+"/pending-limit", `{"pending_amount_limit":"10"}`, &subAdmin)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decodeError(t, w).Error.Code)
	})
}

func TestReports(t *testing.T) {
	t.Run("Salesman window", func(t *testing.T) {
		f := newFixture()
		salesmanID := uuid.New()
		f.reports.On("SalesmanPerformance", mock.Anything, admin, salesmanID,
			mock.MatchedBy(func(tm *time.Time) bool { return tm != nil && tm.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) }),
			mock.MatchedBy(func(tm *time.Time) bool { return tm == nil }),
		).Return(&report.SalesmanPerformance{SalesmanID: salesmanID}, nil).Once()

		w := f.do(t, http.MethodGet, "/api/reports/salesmen/"+salesmanID.String()+"?from=2026-03-01", "", &admin)

		assert.Equal(t, http.StatusOK, w.Code)
		f.reports.AssertExpectations(t)
	})

	t.Run("Overdue as of a date", func(t *testing.T) {
		f := newFixture()
		asOf := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
		f.reports.On("OverdueCollections", mock.Anything, admin, asOf).Return([]report.OverdueOrder{}, nil).Once()

		w := f.do(t, http.MethodGet, "/api/reports/overdue?as_of=2026-05-02", "", &admin)

		assert.Equal(t, http.StatusOK, w.Code)
		f.reports.AssertExpectations(t)
	})

	t.Run("Dashboard forbidden", func(t *testing.T) {
		f := newFixture()
		f.reports.On("Dashboard", mock.Anything, retailer).
			Return(nil, apperr.Forbidden("role %s cannot view reports", retailer.Role)).Once()

		w := f.do(t, http.MethodGet, "/api/reports/dashboard", "", &retailer)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRunReconcile(t *testing.T) {
	t.Run("Admin only", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/admin/reconcile", "", &subAdmin)

		assert.Equal(t, http.StatusForbidden, w.Code)
		f.reconcile.AssertNotCalled(t, "Run", mock.Anything)
	})

	t.Run("Runs a sweep", func(t *testing.T) {
		f := newFixture()
		f.reconcile.On("Run", mock.Anything).Return(&reconcile.Result{Scanned: 4}, nil).Once()

		w := f.do(t, http.MethodPost, "/api/admin/reconcile", "", &admin)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"scanned":4`)
	})

	t.Run("Already running", func(t *testing.T) {
		f := newFixture()
		f.reconcile.On("Run", mock.Anything).Return(nil, reconcile.ErrAlreadyRunning).Once()

		w := f.do(t, http.MethodPost, "/api/admin/reconcile", "", &admin)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "reconcile_running", decodeError(t, w).Error.Code)
	})
}

func TestCounters(t *testing.T) {
	t.Run("Staff read the snapshot", func(t *testing.T) {
		f := newFixture()
		f.metrics.Inc(metrics.LedgerRepaired)
		f.metrics.Inc(metrics.LedgerRepaired)

		w := f.do(t, http.MethodGet, "/debug/counters", "", &subAdmin)

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]uint64
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, uint64(2), got[metrics.LedgerRepaired])
	})

	t.Run("Clients are forbidden", func(t *testing.T) {
		f := newFixture()
		f.metrics.Inc(metrics.OrdersPlaced)

		w := f.do(t, http.MethodGet, "/debug/counters", "", &retailer)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), metrics.OrdersPlaced)
	})

	t.Run("Anonymous callers are unauthenticated", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/debug/counters", "", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
