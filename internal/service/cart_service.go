package service

import (
	"context"
	"errors"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService manages a customer's basket. Every mutation runs in a
// transaction that locks the cart row, so concurrent edits of one cart
// are applied one after the other.
type CartService interface {
	GetOrCreateActive(ctx context.Context, actor domain.Actor) (*domain.Cart, error)
	Get(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (*domain.Cart, error)
	Totals(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (*domain.CartTotals, error)
	Items(ctx context.Context, actor domain.Actor, cartID uuid.UUID) ([]*domain.CartItem, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.Cart, error)

	AddItem(ctx context.Context, actor domain.Actor, cartID, variantID uuid.UUID, quantity int) (*domain.CartItem, error)
	AddItems(ctx context.Context, actor domain.Actor, cartID uuid.UUID, lines []CartLineInput) (*BulkAddResult, error)
	UpdateItemQuantity(ctx context.Context, actor domain.Actor, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) error
	Clear(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (int, error)
}

// CartLineInput is one variant and quantity of a bulk add.
type CartLineInput struct {
	VariantID uuid.UUID
	Quantity  int
}

// BulkAddError explains why one line of a bulk add was skipped.
type BulkAddError struct {
	VariantID uuid.UUID `json:"id_variante"`
	Message   string    `json:"error"`
}

// BulkAddResult lists the lines a bulk add stored and the ones it skipped.
type BulkAddResult struct {
	Added  []*domain.CartItem `json:"items_agregados"`
	Errors []BulkAddError     `json:"errores"`
}

type cartService struct {
	tx     repository.TxManager
	carts  repository.CartRepository
	logger *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(tx repository.TxManager, carts repository.CartRepository, logger *zap.Logger) CartService {
	return &cartService{
		tx:     tx,
		carts:  carts,
		logger: logger,
	}
}

func (s *cartService) GetOrCreateActive(ctx context.Context, actor domain.Actor) (*domain.Cart, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}

	cart, err := s.carts.FindActiveByUser(ctx, actor.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart, err = s.createActive(ctx, actor.UserID)
	}
	if err != nil {
		return nil, translate(err, "failed to get active cart")
	}

	return s.hydrate(ctx, cart)
}

func (s *cartService) createActive(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.carts.Create(ctx, cart)
	if errors.Is(err, repository.ErrActiveCartExists) {
		// A concurrent request created it first.
		return s.carts.FindActiveByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cart created",
		zap.String("cart_id", cart.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return cart, nil
}

func (s *cartService) Get(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.ownedCart(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, cart)
}

func (s *cartService) Totals(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (*domain.CartTotals, error) {
	cart, err := s.Get(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	return cart.Totals, nil
}

func (s *cartService) Items(ctx context.Context, actor domain.Actor, cartID uuid.UUID) ([]*domain.CartItem, error) {
	if _, err := s.ownedCart(ctx, actor, cartID); err != nil {
		return nil, err
	}

	items, err := s.carts.Items(ctx, cartID)
	if err != nil {
		return nil, translate(err, "failed to list cart items")
	}
	return items, nil
}

func (s *cartService) List(ctx context.Context, actor domain.Actor) ([]*domain.Cart, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	carts, err := s.carts.List(ctx)
	if err != nil {
		return nil, translate(err, "failed to list carts")
	}
	return carts, nil
}

// AddItem puts quantity units of a variant in the cart. A variant already in
// the cart is merged into its existing line, and the stock check covers the
// merged quantity.
func (s *cartService) AddItem(ctx context.Context, actor domain.Actor, cartID, variantID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, apperror.Validation("la cantidad debe ser mayor que cero")
	}

	var itemID uuid.UUID
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := lockEditableCart(ctx, repos, actor, cartID); err != nil {
			return err
		}

		variant, err := repos.Variants.FindByID(ctx, variantID)
		if err != nil {
			return translate(err, "failed to get variant")
		}

		existing, err := repos.Carts.FindItemByVariant(ctx, cartID, variantID)
		if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
			return translate(err, "failed to find cart item")
		}

		requested := quantity
		if existing != nil {
			requested += existing.Quantity
		}
		if requested > variant.Stock {
			return insufficientStock(variant.Stock, requested)
		}

		if existing != nil {
			itemID = existing.ID
			return translate(repos.Carts.UpdateItemQuantity(ctx, existing.ID, requested), "failed to update cart item")
		}

		now := time.Now().UTC()
		item := &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			VariantID: variantID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		itemID = item.ID
		return translate(repos.Carts.InsertItem(ctx, item), "failed to add cart item")
	})
	if err != nil {
		return nil, err
	}

	item, err := s.carts.FindItem(ctx, itemID)
	if err != nil {
		return nil, translate(err, "failed to load cart item")
	}
	return item, nil
}

// AddItems adds each line on its own, so one bad line does not undo the
// others. A missing, foreign or finalized cart fails the whole call, as does
// any internal error.
func (s *cartService) AddItems(ctx context.Context, actor domain.Actor, cartID uuid.UUID, lines []CartLineInput) (*BulkAddResult, error) {
	if len(lines) == 0 {
		return nil, apperror.Validation("se requiere al menos un item")
	}
	cart, err := s.ownedCart(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	if !cart.IsActive() {
		return nil, apperror.Conflict("la cesta ya fue finalizada y no admite cambios").
			WithDetails("estado", cart.Status)
	}

	result := &BulkAddResult{Added: []*domain.CartItem{}, Errors: []BulkAddError{}}
	for _, line := range lines {
		item, err := s.AddItem(ctx, actor, cartID, line.VariantID, line.Quantity)
		if err != nil {
			typed := apperror.As(err)
			if typed == nil || typed.Code() == apperror.CodeInternal {
				return nil, err
			}
			result.Errors = append(result.Errors, BulkAddError{VariantID: line.VariantID, Message: typed.Message()})
			continue
		}
		result.Added = append(result.Added, item)
	}

	s.logger.Info("Cart lines added",
		zap.String("cart_id", cartID.String()),
		zap.Int("added", len(result.Added)),
		zap.Int("skipped", len(result.Errors)),
	)
	return result, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, actor domain.Actor, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, apperror.Validation("la cantidad debe ser mayor que cero")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		item, err := repos.Carts.FindItem(ctx, itemID)
		if err != nil {
			return translate(err, "failed to find cart item")
		}
		if _, err := lockEditableCart(ctx, repos, actor, item.CartID); err != nil {
			return err
		}
		if quantity > item.Stock {
			return insufficientStock(item.Stock, quantity)
		}
		return translate(repos.Carts.UpdateItemQuantity(ctx, itemID, quantity), "failed to update cart item")
	})
	if err != nil {
		return nil, err
	}

	item, err := s.carts.FindItem(ctx, itemID)
	if err != nil {
		return nil, translate(err, "failed to load cart item")
	}
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		item, err := repos.Carts.FindItem(ctx, itemID)
		if err != nil {
			return translate(err, "failed to find cart item")
		}
		if _, err := lockEditableCart(ctx, repos, actor, item.CartID); err != nil {
			return err
		}
		return translate(repos.Carts.DeleteItem(ctx, itemID), "failed to remove cart item")
	})
}

// Clear empties the cart and reports how many lines were removed
func (s *cartService) Clear(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (int, error) {
	var removed int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := lockEditableCart(ctx, repos, actor, cartID); err != nil {
			return err
		}

		var err error
		removed, err = repos.Carts.Clear(ctx, cartID)
		return translate(err, "failed to clear cart")
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Cart cleared",
		zap.String("cart_id", cartID.String()),
		zap.Int("items_removed", removed),
	)
	return removed, nil
}

func (s *cartService) ownedCart(ctx context.Context, actor domain.Actor, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, translate(err, "failed to get cart")
	}
	if err := Authorize(actor, cart.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) hydrate(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return nil, translate(err, "failed to list cart items")
	}

	totals := domain.ComputeCartTotals(items)
	cart.Items = items
	cart.Totals = &totals
	return cart, nil
}

// lockEditableCart locks the cart row and checks that actor may change it.
func lockEditableCart(ctx context.Context, repos repository.Repositories, actor domain.Actor, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := repos.Carts.FindByIDForUpdate(ctx, cartID)
	if err != nil {
		return nil, translate(err, "failed to lock cart")
	}
	if err := Authorize(actor, cart.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if !cart.IsActive() {
		return nil, apperror.Conflict("la cesta ya fue finalizada y no admite cambios").
			WithDetails("estado", cart.Status)
	}
	return cart, nil
}

func insufficientStock(available, requested int) error {
	return apperror.Conflict("stock insuficiente").
		WithDetails("stock_disponible", available).
		WithDetails("cantidad_solicitada", requested)
}
