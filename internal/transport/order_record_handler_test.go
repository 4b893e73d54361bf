package transport

import (
	"context"
	"net/http"
	"testing"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRecordService struct {
	service.OrderRecordService

	gotPage     int
	gotPageSize int
	gotStatus   domain.OrderStatus
	gotOrderID  uuid.UUID
	latestErr   error
}

func (s *stubRecordService) ListMyItems(_ context.Context, _ domain.Actor, page, pageSize int) (*service.OrderItemPage, error) {
	s.gotPage, s.gotPageSize = page, pageSize
	return &service.OrderItemPage{Items: []*domain.OrderItemRecord{}, Total: 0, Page: page, PageSize: pageSize}, nil
}

func (s *stubRecordService) ItemStats(context.Context, domain.Actor) (*domain.OrderItemStats, error) {
	return &domain.OrderItemStats{TotalItems: 4, Sales: decimal.RequireFromString("80.00")}, nil
}

func (s *stubRecordService) OrderSummary(_ context.Context, _ domain.Actor, orderID uuid.UUID) (*service.OrderSummary, error) {
	s.gotOrderID = orderID
	return &service.OrderSummary{
		OrderID:          orderID,
		OrderNumber:      "PED2410150001",
		Status:           domain.OrderStatusPending,
		OrderItemSummary: domain.OrderItemSummary{TotalItems: 2, TotalUnits: 3, TotalValue: decimal.RequireFromString("55.00")},
	}, nil
}

func (s *stubRecordService) StatusEventsByStatus(_ context.Context, _ domain.Actor, status domain.OrderStatus, page, pageSize int) (*service.StatusEventPage, error) {
	s.gotStatus = status
	return &service.StatusEventPage{Events: []*domain.OrderStatusRecord{}, Page: page, PageSize: pageSize}, nil
}

func (s *stubRecordService) LatestStatus(_ context.Context, _ domain.Actor, orderID uuid.UUID) (*domain.OrderStatusEvent, error) {
	s.gotOrderID = orderID
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	return &domain.OrderStatusEvent{ID: uuid.New(), OrderID: orderID, Status: domain.OrderStatusShipped}, nil
}

func newRecordRouter(svc *stubRecordService, role domain.Role) http.Handler {
	r := chi.NewRouter()
	NewOrderRecordHandler(svc, zap.NewNop()).RegisterRoutes(r, asUser(role), middleware.RequireAdmin(zap.NewNop()))
	return r
}

func TestOrderItemRoutes(t *testing.T) {
	t.Run("mis-items is not taken for an item id", func(t *testing.T) {
		svc := &stubRecordService{}
		w := serve(newRecordRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/items-pedido/mis-items?pagina=2&limite=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, svc.gotPage)
		assert.Equal(t, 5, svc.gotPageSize)
		body := decodeJSON(t, w.Body.Bytes())
		assert.EqualValues(t, 2, body["pagina"])
	})

	t.Run("stats are admin only", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden,
			serve(newRecordRouter(&stubRecordService{}, domain.RoleCustomer), http.MethodGet, "/api/items-pedido/admin/estadisticas", "").Code)

		w := serve(newRecordRouter(&stubRecordService{}, domain.RoleAdmin), http.MethodGet, "/api/items-pedido/admin/estadisticas", "")
		require.Equal(t, http.StatusOK, w.Code)
		stats := decodeJSON(t, w.Body.Bytes())["estadisticas"].(map[string]interface{})
		assert.EqualValues(t, 4, stats["total_items"])
		assert.Equal(t, "80", stats["total_ventas_items"])
	})

	t.Run("items by variant are admin only", func(t *testing.T) {
		w := serve(newRecordRouter(&stubRecordService{}, domain.RoleCustomer), http.MethodGet, "/api/items-pedido/variante/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("order summary flattens the totals", func(t *testing.T) {
		svc := &stubRecordService{}
		orderID := uuid.New()
		w := serve(newRecordRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/items-pedido/pedido/"+orderID.String()+"/resumen", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, orderID, svc.gotOrderID)
		summary := decodeJSON(t, w.Body.Bytes())["resumen"].(map[string]interface{})
		assert.Equal(t, "PED2410150001", summary["numero_pedido"])
		assert.EqualValues(t, 3, summary["total_unidades"])
	})

	t.Run("a malformed item id is rejected", func(t *testing.T) {
		w := serve(newRecordRouter(&stubRecordService{}, domain.RoleCustomer), http.MethodGet, "/api/items-pedido/no-es-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lines cannot be edited or deleted", func(t *testing.T) {
		router := newRecordRouter(&stubRecordService{}, domain.RoleAdmin)
		assert.Equal(t, http.StatusMethodNotAllowed, serve(router, http.MethodPut, "/api/items-pedido/"+uuid.NewString(), `{"cantidad":2}`).Code)
		assert.Equal(t, http.StatusMethodNotAllowed, serve(router, http.MethodDelete, "/api/items-pedido/"+uuid.NewString(), "").Code)
	})
}

func TestOrderStatusRoutes(t *testing.T) {
	t.Run("filters by the status in the path", func(t *testing.T) {
		svc := &stubRecordService{}
		w := serve(newRecordRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/estados-pedido/estado/enviado", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.OrderStatusShipped, svc.gotStatus)
	})

	t.Run("latest status of an order", func(t *testing.T) {
		svc := &stubRecordService{}
		orderID := uuid.New()
		w := serve(newRecordRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/estados-pedido/pedido/"+orderID.String()+"/ultimo", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, orderID, svc.gotOrderID)
		event := decodeJSON(t, w.Body.Bytes())["estado"].(map[string]interface{})
		assert.Equal(t, "enviado", event["estado"])
	})

	t.Run("latest status of a foreign order", func(t *testing.T) {
		svc := &stubRecordService{latestErr: apperror.Forbidden("no tiene permisos sobre este recurso")}
		w := serve(newRecordRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/estados-pedido/pedido/"+uuid.NewString()+"/ultimo", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("history is append only", func(t *testing.T) {
		router := newRecordRouter(&stubRecordService{}, domain.RoleAdmin)
		assert.Equal(t, http.StatusMethodNotAllowed, serve(router, http.MethodPost, "/api/estados-pedido/", `{"estado":"enviado"}`).Code)
		assert.Equal(t, http.StatusMethodNotAllowed, serve(router, http.MethodDelete, "/api/estados-pedido/"+uuid.NewString(), "").Code)
	})
}
