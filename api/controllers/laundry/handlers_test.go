package laundry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/api/middleware"
	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/internal/payments"
	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubOrderService struct {
	createInput laundry.CreateOrderInput
	listInput   laundry.ListOrdersInput
	listParams  pagination.Params
	updateInput laundry.UpdateOrderInput
	order       *models.LaundryOrder
	err         error
	calls       int
}

func (s *stubOrderService) CreateOrder(ctx context.Context, actor policy.Actor, input laundry.CreateOrderInput) (*models.LaundryOrder, error) {
	s.calls++
	s.createInput = input
	return s.order, s.err
}

func (s *stubOrderService) GetOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*models.LaundryOrder, error) {
	s.calls++
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(ctx context.Context, actor policy.Actor, input laundry.ListOrdersInput, params pagination.Params) (pagination.Page[models.LaundryOrder], error) {
	s.calls++
	s.listInput = input
	s.listParams = params
	if s.err != nil {
		return pagination.Page[models.LaundryOrder]{}, s.err
	}
	return pagination.Page[models.LaundryOrder]{Items: []models.LaundryOrder{*s.order}, NextCursor: "next"}, nil
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID, input laundry.UpdateOrderInput) (*models.LaundryOrder, error) {
	s.calls++
	s.updateInput = input
	return s.order, s.err
}

func (s *stubOrderService) Transition(ctx context.Context, actor policy.Actor, orderID uuid.UUID, target enums.LaundryOrderStatus) (*models.LaundryOrder, error) {
	s.calls++
	return s.order, s.err
}

type stubPaymentService struct {
	input  payments.RecordInput
	result *payments.RecordResult
	err    error
}

func (s *stubPaymentService) Record(ctx context.Context, actor policy.Actor, input payments.RecordInput) (*payments.RecordResult, error) {
	s.input = input
	return s.result, s.err
}

func (s *stubPaymentService) Refund(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*payments.RecordResult, error) {
	return s.result, s.err
}

func (s *stubPaymentService) Get(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*models.Payment, error) {
	return nil, s.err
}

func (s *stubPaymentService) List(ctx context.Context, actor policy.Actor, params pagination.Params) (pagination.Page[models.Payment], error) {
	return pagination.Page[models.Payment]{}, s.err
}

func sampleOrder() *models.LaundryOrder {
	return &models.LaundryOrder{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		LaundryVendorID: uuid.New(),
		OrderNumber:     "LO-20250110-0001",
		PickupDate:      time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
		Status:          enums.LaundryOrderStatusPending,
		Subtotal:        decimal.RequireFromString("100.00"),
		TaxAmount:       decimal.RequireFromString("18.00"),
		TotalAmount:     decimal.RequireFromString("118.00"),
		PaymentStatus:   enums.PaymentStatusPending,
	}
}

func residentRequest(method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithActor(ctx, policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser})
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

const createBody = `{
	"laundry_vendor_id": "6f1c2d52-6a43-4c1b-9a7e-1f2b3c4d5e6f",
	"items": [{"laundry_item_id": "0b8c7d6e-5f4a-4b3c-8d2e-1f0a9b8c7d6e", "quantity": 3}],
	"pickup_address": "Tower B, 402",
	"pickup_date": "2025-01-12",
	"pickup_time_slot": "09:00-11:00"
}`

func TestCreateOrderRequiresActor(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/laundry/orders", strings.NewReader(createBody))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be invoked without an actor")
	}
}

func TestCreateOrderParsesBody(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPost, "/api/v1/laundry/orders", createBody, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := svc.createInput.PickupDate.Format(laundry.DateLayout); got != "2025-01-12" {
		t.Fatalf("unexpected pickup date %s", got)
	}
	if len(svc.createInput.Items) != 1 || svc.createInput.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", svc.createInput.Items)
	}

	var envelope struct {
		Data laundry.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != "LO-20250110-0001" {
		t.Fatalf("unexpected order number %q", envelope.Data.OrderNumber)
	}
	if !envelope.Data.TotalAmount.Equal(decimal.RequireFromString("118")) {
		t.Fatalf("unexpected total %s", envelope.Data.TotalAmount)
	}
}

func TestCreateOrderRejectsBadPickupDate(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, logger.Nop())

	body := strings.Replace(createBody, "2025-01-12", "12/01/2025", 1)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPost, "/api/v1/laundry/orders", body, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be invoked for invalid input")
	}
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, logger.Nop())

	body := strings.Replace(createBody, `"pickup_address"`, `"total_amount": "1.00", "pickup_address"`, 1)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPost, "/api/v1/laundry/orders", body, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListOrdersFilters(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := ListOrders(svc, logger.Nop())

	vendorID := uuid.New()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodGet, "/api/v1/laundry/orders?status=Ready&vendor_id="+vendorID.String()+"&limit=5", "", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listInput.Status == nil || *svc.listInput.Status != enums.LaundryOrderStatusReady {
		t.Fatalf("expected ready filter, got %v", svc.listInput.Status)
	}
	if svc.listInput.LaundryVendorID == nil || *svc.listInput.LaundryVendorID != vendorID {
		t.Fatalf("expected vendor filter %s", vendorID)
	}
	if svc.listParams.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.listParams.Limit)
	}

	var envelope struct {
		Data pagination.Page[laundry.OrderDTO] `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := ListOrders(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodGet, "/api/v1/laundry/orders?status=washing", "", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be invoked")
	}
}

func TestGetOrderMapsNotFound(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := GetOrder(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodGet, "/", "", map[string]string{orderParam: uuid.NewString()}))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetOrderRejectsMalformedID(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := GetOrder(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodGet, "/", "", map[string]string{orderParam: "not-a-uuid"}))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUpdateOrderParsesStatusAndDate(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	handler := UpdateOrder(svc, logger.Nop())

	body := `{"status":"picked_up","estimated_delivery_date":"2025-01-15"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPut, "/", body, map[string]string{orderParam: uuid.NewString()}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updateInput.Status == nil || *svc.updateInput.Status != enums.LaundryOrderStatusPickedUp {
		t.Fatalf("unexpected status %v", svc.updateInput.Status)
	}
	if svc.updateInput.EstimatedDeliveryDate == nil || svc.updateInput.EstimatedDeliveryDate.Day() != 15 {
		t.Fatalf("unexpected delivery date %v", svc.updateInput.EstimatedDeliveryDate)
	}
}

func TestUpdateOrderSurfacesInvalidTransition(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move delivered to pending")}
	handler := UpdateOrder(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPut, "/", `{"status":"pending"}`, map[string]string{orderParam: uuid.NewString()}))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestRecordPayment(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.LaundryOrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	svc := &stubPaymentService{result: &payments.RecordResult{
		Payment: &models.Payment{ID: uuid.New(), OrderID: order.ID, Amount: order.TotalAmount, Status: enums.PaymentStatusPaid, TransactionID: "txn_1"},
		Order:   order,
	}}
	handler := RecordPayment(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPost, "/", `{"payment_method":"upi","amount":"118.00"}`, map[string]string{orderParam: order.ID.String()}))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.OrderID != order.ID || svc.input.Method != "upi" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	if svc.input.Amount == nil || !svc.input.Amount.Equal(decimal.RequireFromString("118")) {
		t.Fatalf("unexpected amount %v", svc.input.Amount)
	}
}

func TestRecordPaymentRequiresMethod(t *testing.T) {
	svc := &stubPaymentService{}
	handler := RecordPayment(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, residentRequest(http.MethodPost, "/", `{}`, map[string]string{orderParam: uuid.NewString()}))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
