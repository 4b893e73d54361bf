package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubOrderService records the calls the handler forwards. Methods a test
// does not override panic through the nil embedded interface.
type stubOrderService struct {
	service.OrderService

	createErr   error
	gotCartID   uuid.UUID
	gotInput    service.CreateOrderInput
	gotStatus   domain.OrderStatus
	gotComment  string
	gotReason   string
	listedState domain.OrderStatus
}

func (s *stubOrderService) CreateFromCart(_ context.Context, actor domain.Actor, cartID uuid.UUID, input service.CreateOrderInput) (*domain.Order, error) {
	s.gotCartID, s.gotInput = cartID, input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.Order{ID: uuid.New(), OrderNumber: "PED2410150001", UserID: actor.UserID, CartID: cartID, Status: domain.OrderStatusPending}, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, _ domain.Actor, orderID uuid.UUID, status domain.OrderStatus, comment string) (*domain.Order, error) {
	s.gotStatus, s.gotComment = status, comment
	return &domain.Order{ID: orderID, Status: status}, nil
}

func (s *stubOrderService) Cancel(_ context.Context, _ domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error) {
	s.gotReason = reason
	return &domain.Order{ID: orderID, Status: domain.OrderStatusCancelled}, nil
}

func (s *stubOrderService) ListByStatus(_ context.Context, _ domain.Actor, status domain.OrderStatus, page, pageSize int) (*service.OrderPage, error) {
	s.listedState = status
	return &service.OrderPage{Orders: []*domain.Order{}, Page: page, PageSize: pageSize}, nil
}

func (s *stubOrderService) ListAll(context.Context, domain.Actor, *domain.OrderStatus, int, int) (*service.OrderPage, error) {
	return &service.OrderPage{Orders: []*domain.Order{}}, nil
}

// asUser stands in for the JWT middleware
func asUser(role domain.Role) func(http.Handler) http.Handler {
	user := &domain.PublicUser{ID: uuid.New(), Name: "Lucía", Email: "lucia@gardem.es", Role: role}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
		})
	}
}

func newOrderRouter(svc *stubOrderService, role domain.Role) http.Handler {
	r := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop()).RegisterRoutes(r, asUser(role), middleware.RequireAdmin(zap.NewNop()))
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	t.Run("forwards the checkout data", func(t *testing.T) {
		svc := &stubOrderService{}
		cartID := uuid.New()

		w := serve(newOrderRouter(svc, domain.RoleCustomer), http.MethodPost, "/api/pedidos/cesta/"+cartID.String(),
			`{"direccion_entrega":"Calle Mayor 1, Madrid","telefono_contacto":"600123123","notas":"portal B"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, cartID, svc.gotCartID)
		assert.Equal(t, "Calle Mayor 1, Madrid", svc.gotInput.DeliveryAddress)
		require.NotNil(t, svc.gotInput.Notes)
		assert.Equal(t, "portal B", *svc.gotInput.Notes)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Pedido creado exitosamente", body["mensaje"])
		assert.Equal(t, "PED2410150001", body["pedido"].(map[string]interface{})["numero_pedido"])
	})

	t.Run("missing contact phone is rejected before the service", func(t *testing.T) {
		svc := &stubOrderService{}
		w := serve(newOrderRouter(svc, domain.RoleCustomer), http.MethodPost, "/api/pedidos/cesta/"+uuid.NewString(),
			`{"direccion_entrega":"Calle Mayor 1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, uuid.Nil, svc.gotCartID)
	})

	t.Run("malformed cart id", func(t *testing.T) {
		w := serve(newOrderRouter(&stubOrderService{}, domain.RoleCustomer), http.MethodPost, "/api/pedidos/cesta/no-es-uuid",
			`{"direccion_entrega":"Calle Mayor 1","telefono_contacto":"600123123"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sequence collision is retryable", func(t *testing.T) {
		svc := &stubOrderService{createErr: apperror.New(apperror.CodeSequenceConflict, "número de pedido duplicado")}
		w := serve(newOrderRouter(svc, domain.RoleCustomer), http.MethodPost, "/api/pedidos/cesta/"+uuid.NewString(),
			`{"direccion_entrega":"Calle Mayor 1","telefono_contacto":"600123123"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body middleware.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.True(t, body.Retryable)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &stubOrderService{}
	router := newOrderRouter(svc, domain.RoleAdmin)

	w := serve(router, http.MethodPut, "/api/pedidos/"+uuid.NewString()+"/estado", `{"estado":"perdido"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.gotStatus)

	w = serve(router, http.MethodPut, "/api/pedidos/"+uuid.NewString()+"/estado", `{"estado":"enviado","comentario":"SEUR 123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OrderStatusShipped, svc.gotStatus)
	assert.Equal(t, "SEUR 123", svc.gotComment)
}

func TestCancelOrder_BodyIsOptional(t *testing.T) {
	svc := &stubOrderService{}
	router := newOrderRouter(svc, domain.RoleCustomer)

	w := serve(router, http.MethodPut, "/api/pedidos/"+uuid.NewString()+"/cancelar", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.gotReason)

	w = serve(router, http.MethodPut, "/api/pedidos/"+uuid.NewString()+"/cancelar", `{"motivo":"talla equivocada"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "talla equivocada", svc.gotReason)
}

func TestOrderRoutes(t *testing.T) {
	t.Run("status listing is not read as an order id", func(t *testing.T) {
		svc := &stubOrderService{}
		w := serve(newOrderRouter(svc, domain.RoleCustomer), http.MethodGet, "/api/pedidos/estado/enviado?pagina=2&limite=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.OrderStatusShipped, svc.listedState)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.EqualValues(t, 2, body["pagina"])
		assert.EqualValues(t, 5, body["limite"])
	})

	t.Run("listing every order needs an administrator", func(t *testing.T) {
		w := serve(newOrderRouter(&stubOrderService{}, domain.RoleCustomer), http.MethodGet, "/api/pedidos/", "")
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = serve(newOrderRouter(&stubOrderService{}, domain.RoleAdmin), http.MethodGet, "/api/pedidos/", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non numeric page", func(t *testing.T) {
		w := serve(newOrderRouter(&stubOrderService{}, domain.RoleAdmin), http.MethodGet, "/api/pedidos/?pagina=dos", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
