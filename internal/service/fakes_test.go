package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/events"
	"gardem-catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory database shared by the fake repositories.
// memTx snapshots it before a unit of work and restores the snapshot when
// the work fails, which mirrors a rolled back transaction.
type memStore struct {
	mu sync.Mutex

	users      map[uuid.UUID]*domain.User
	categories map[uuid.UUID]*domain.Category
	sizes      map[uuid.UUID]*domain.Size
	colors     map[uuid.UUID]*domain.Color
	products   map[uuid.UUID]*domain.Product
	variants   map[uuid.UUID]*domain.Variant
	images     map[uuid.UUID]*domain.ProductImage
	carts      map[uuid.UUID]*domain.Cart
	cartItems  map[uuid.UUID]*domain.CartItem
	orders     map[uuid.UUID]*domain.Order
	orderItems map[uuid.UUID][]*domain.OrderItem
	history    map[uuid.UUID][]*domain.OrderStatusEvent
	sequences  map[string]int

	// failDecrement makes DecrementStock fail for this variant.
	failDecrement uuid.UUID
	// takenNumbers makes Create report a duplicate order number.
	takenNumbers map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[uuid.UUID]*domain.User{},
		categories:   map[uuid.UUID]*domain.Category{},
		sizes:        map[uuid.UUID]*domain.Size{},
		colors:       map[uuid.UUID]*domain.Color{},
		products:     map[uuid.UUID]*domain.Product{},
		variants:     map[uuid.UUID]*domain.Variant{},
		images:       map[uuid.UUID]*domain.ProductImage{},
		carts:        map[uuid.UUID]*domain.Cart{},
		cartItems:    map[uuid.UUID]*domain.CartItem{},
		orders:       map[uuid.UUID]*domain.Order{},
		orderItems:   map[uuid.UUID][]*domain.OrderItem{},
		history:      map[uuid.UUID][]*domain.OrderStatusEvent{},
		sequences:    map[string]int{},
		takenNumbers: map[string]bool{},
	}
}

func cloneMap[V any](m map[uuid.UUID]*V) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func cloneSliceMap[V any](m map[uuid.UUID][]*V) map[uuid.UUID][]*V {
	out := make(map[uuid.UUID][]*V, len(m))
	for k, v := range m {
		out[k] = append([]*V(nil), v...)
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	sequences := make(map[string]int, len(s.sequences))
	for k, v := range s.sequences {
		sequences[k] = v
	}
	return &memStore{
		users:      cloneMap(s.users),
		categories: cloneMap(s.categories),
		sizes:      cloneMap(s.sizes),
		colors:     cloneMap(s.colors),
		products:   cloneMap(s.products),
		variants:   cloneMap(s.variants),
		images:     cloneMap(s.images),
		carts:      cloneMap(s.carts),
		cartItems:  cloneMap(s.cartItems),
		orders:     cloneMap(s.orders),
		orderItems: cloneSliceMap(s.orderItems),
		history:    cloneSliceMap(s.history),
		sequences:  sequences,
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.categories = snap.categories
	s.sizes = snap.sizes
	s.colors = snap.colors
	s.products = snap.products
	s.variants = snap.variants
	s.images = snap.images
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.history = snap.history
	s.sequences = snap.sequences
}

func (s *memStore) repositories() repository.Repositories {
	return repository.Repositories{
		Carts:    &memCartRepo{s},
		Variants: &memVariantRepo{s},
		Orders:   &memOrderRepo{s},
	}
}

type memTx struct {
	store   *memStore
	commits int
}

func (m *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	snap := m.store.snapshot()
	if err := fn(ctx, m.store.repositories()); err != nil {
		m.store.restore(snap)
		return err
	}
	m.commits++
	return nil
}

// users

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.User{}
	for _, u := range r.s.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, u := range r.s.users {
		if u.ID != user.ID && u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	for _, o := range r.s.orders {
		if o.UserID == id {
			return repository.ErrUserHasOrders
		}
	}
	delete(r.s.users, id)
	return nil
}

// catalog reference data

type memCategoryRepo struct{ s *memStore }

func (r *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return repository.ErrCategoryAlreadyExists
		}
	}
	c := *category
	r.s.categories[category.ID] = &c
	return nil
}

func (r *memCategoryRepo) List(_ context.Context, activeOnly bool) ([]*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range r.s.categories {
		if activeOnly && !c.Active {
			continue
		}
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategoryRepo) ListWithProductCount(ctx context.Context) ([]*domain.CategoryWithCount, error) {
	categories, _ := r.List(ctx, false)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		row := &domain.CategoryWithCount{Category: *c}
		for _, p := range r.s.products {
			if p.CategoryID == c.ID {
				row.ProductCount++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *memCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	c := *category
	r.s.categories[category.ID] = &c
	return nil
}

func (r *memCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return repository.ErrCategoryInUse
		}
	}
	delete(r.s.categories, id)
	return nil
}

type memSizeRepo struct{ s *memStore }

func (r *memSizeRepo) Create(_ context.Context, size *domain.Size) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sizes {
		if existing.Name == size.Name {
			return repository.ErrSizeAlreadyExists
		}
	}
	c := *size
	r.s.sizes[size.ID] = &c
	return nil
}

func (r *memSizeRepo) List(_ context.Context) ([]*domain.Size, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Size{}
	for _, size := range r.s.sizes {
		c := *size
		out = append(out, &c)
	}
	return out, nil
}

func (r *memSizeRepo) ListWithProductCount(_ context.Context) ([]*domain.SizeWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.SizeWithCount{}
	for _, size := range r.s.sizes {
		out = append(out, &domain.SizeWithCount{
			Size:         *size,
			ProductCount: r.s.distinctProducts(func(v *domain.Variant) bool { return v.SizeID == size.ID }),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memSizeRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Size, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	size, ok := r.s.sizes[id]
	if !ok {
		return nil, repository.ErrSizeNotFound
	}
	c := *size
	return &c, nil
}

func (r *memSizeRepo) Update(_ context.Context, size *domain.Size) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sizes[size.ID]; !ok {
		return repository.ErrSizeNotFound
	}
	c := *size
	r.s.sizes[size.ID] = &c
	return nil
}

func (r *memSizeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sizes[id]; !ok {
		return repository.ErrSizeNotFound
	}
	for _, v := range r.s.variants {
		if v.SizeID == id {
			return repository.ErrSizeInUse
		}
	}
	delete(r.s.sizes, id)
	return nil
}

type memColorRepo struct{ s *memStore }

func (r *memColorRepo) Create(_ context.Context, color *domain.Color) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.colors {
		if existing.Name == color.Name {
			return repository.ErrColorAlreadyExists
		}
	}
	c := *color
	r.s.colors[color.ID] = &c
	return nil
}

func (r *memColorRepo) List(_ context.Context) ([]*domain.Color, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Color{}
	for _, color := range r.s.colors {
		c := *color
		out = append(out, &c)
	}
	return out, nil
}

func (r *memColorRepo) ListWithProductCount(_ context.Context) ([]*domain.ColorWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.ColorWithCount{}
	for _, color := range r.s.colors {
		out = append(out, &domain.ColorWithCount{
			Color:        *color,
			ProductCount: r.s.distinctProducts(func(v *domain.Variant) bool { return v.ColorID == color.ID }),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// distinctProducts counts products with at least one matching variant.
// Callers hold s.mu.
func (s *memStore) distinctProducts(match func(*domain.Variant) bool) int {
	seen := map[uuid.UUID]bool{}
	for _, v := range s.variants {
		if match(v) {
			seen[v.ProductID] = true
		}
	}
	return len(seen)
}

func (r *memColorRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Color, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	color, ok := r.s.colors[id]
	if !ok {
		return nil, repository.ErrColorNotFound
	}
	c := *color
	return &c, nil
}

func (r *memColorRepo) Update(_ context.Context, color *domain.Color) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.colors[color.ID]; !ok {
		return repository.ErrColorNotFound
	}
	c := *color
	r.s.colors[color.ID] = &c
	return nil
}

func (r *memColorRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.colors[id]; !ok {
		return repository.ErrColorNotFound
	}
	for _, v := range r.s.variants {
		if v.ColorID == id {
			return repository.ErrColorInUse
		}
	}
	delete(r.s.colors, id)
	return nil
}

// products, variants and images

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) Create(_ context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[product.CategoryID]; !ok {
		return repository.ErrCategoryNotFound
	}
	c := *product
	r.s.products[product.ID] = &c
	return nil
}

func (r *memProductRepo) Update(_ context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	if _, ok := r.s.categories[product.CategoryID]; !ok {
		return repository.ErrCategoryNotFound
	}
	c := *product
	r.s.products[product.ID] = &c
	return nil
}

func (r *memProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, v := range r.s.variants {
		if v.ProductID == id {
			return repository.ErrProductInUse
		}
	}
	delete(r.s.products, id)
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	c := *p
	if category, ok := r.s.categories[p.CategoryID]; ok {
		c.CategoryName = category.Name
	}
	return &c, nil
}

func (r *memProductRepo) List(_ context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return r.page(func(p *domain.Product) bool {
		return filter.CategoryID == nil || p.CategoryID == *filter.CategoryID
	}, filter.Page, filter.PageSize)
}

func (r *memProductRepo) Search(_ context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	query = strings.ToLower(query)
	return r.page(func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query)
	}, page, pageSize)
}

func (r *memProductRepo) page(match func(*domain.Product) bool, page, pageSize int) ([]*domain.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*domain.Product{}
	for _, p := range r.s.products {
		if match(p) {
			c := *p
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *memProductRepo) ListWithVariantCount(_ context.Context) ([]*domain.ProductWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.ProductWithCount{}
	for _, p := range r.s.products {
		row := &domain.ProductWithCount{Product: *p}
		for _, v := range r.s.variants {
			if v.ProductID == p.ID {
				row.VariantCount++
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memVariantRepo struct{ s *memStore }

func (r *memVariantRepo) Create(_ context.Context, variant *domain.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[variant.ProductID]
	if !ok {
		return repository.ErrVariantReference
	}
	for _, v := range r.s.variants {
		if v.ProductID == variant.ProductID && v.SizeID == variant.SizeID && v.ColorID == variant.ColorID {
			return repository.ErrVariantAlreadyExists
		}
	}
	c := *variant
	c.ProductName = product.Name
	c.BasePrice = product.BasePrice
	r.s.variants[variant.ID] = &c
	return nil
}

func (r *memVariantRepo) Update(_ context.Context, variant *domain.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.variants[variant.ID]; !ok {
		return repository.ErrVariantNotFound
	}
	c := *variant
	r.s.variants[variant.ID] = &c
	return nil
}

func (r *memVariantRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.variants[id]; !ok {
		return repository.ErrVariantNotFound
	}
	for _, item := range r.s.cartItems {
		if item.VariantID == id {
			return repository.ErrVariantInUse
		}
	}
	delete(r.s.variants, id)
	return nil
}

func (r *memVariantRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return nil, repository.ErrVariantNotFound
	}
	c := *v
	return &c, nil
}

func (r *memVariantRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]*domain.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Variant{}
	for _, v := range r.s.variants {
		if v.ProductID == productID {
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memVariantRepo) ListLowStock(_ context.Context, threshold int) ([]*domain.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Variant{}
	for _, v := range r.s.variants {
		if v.Stock <= threshold {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (r *memVariantRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return 0, repository.ErrVariantNotFound
	}
	if v.Stock+delta < 0 {
		return 0, repository.ErrInsufficientStock
	}
	v.Stock += delta
	return v.Stock, nil
}

func (r *memVariantRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id == r.s.failDecrement {
		return errors.New("connection reset by peer")
	}
	v, ok := r.s.variants[id]
	if !ok || v.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	v.Stock -= quantity
	return nil
}

type memImageRepo struct{ s *memStore }

func (r *memImageRepo) Create(_ context.Context, image *domain.ProductImage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[image.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	c := *image
	r.s.images[image.ID] = &c
	return nil
}

func (r *memImageRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.ProductImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	image, ok := r.s.images[id]
	if !ok {
		return nil, repository.ErrImageNotFound
	}
	c := *image
	return &c, nil
}

func (r *memImageRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.ProductImage{}
	for _, image := range r.s.images {
		if image.ProductID == productID {
			c := *image
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memImageRepo) SetPrimary(_ context.Context, productID, imageID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := false
	for _, image := range r.s.images {
		if image.ProductID == productID {
			image.IsPrimary = image.ID == imageID
			found = true
		}
	}
	if !found {
		return repository.ErrImageNotFound
	}
	return nil
}

func (r *memImageRepo) Reorder(_ context.Context, productID uuid.UUID, positions []domain.ImagePosition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range positions {
		image, ok := r.s.images[p.ImageID]
		if !ok || image.ProductID != productID {
			return repository.ErrImageNotFound
		}
	}
	for _, p := range positions {
		r.s.images[p.ImageID].Position = p.Position
	}
	return nil
}

func (r *memImageRepo) Stats(_ context.Context) (*domain.ImageStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &domain.ImageStats{}
	products := map[uuid.UUID]bool{}
	for _, image := range r.s.images {
		stats.TotalImages++
		products[image.ProductID] = true
		if image.IsPrimary {
			stats.PrimaryImages++
		}
		if strings.TrimSpace(image.AltText) == "" {
			stats.ImagesWithoutAltText++
		}
	}
	stats.ProductsWithImages = len(products)
	return stats, nil
}

func (r *memImageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.images[id]; !ok {
		return repository.ErrImageNotFound
	}
	delete(r.s.images, id)
	return nil
}

// carts

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) Create(_ context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID == cart.UserID && c.IsActive() && cart.IsActive() {
			return repository.ErrActiveCartExists
		}
	}
	c := *cart
	r.s.carts[cart.ID] = &c
	return nil
}

func (r *memCartRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *memCartRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.FindByID(ctx, id)
}

func (r *memCartRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID == userID && c.IsActive() {
			cc := *c
			return &cc, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (r *memCartRepo) List(_ context.Context) ([]*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Cart{}
	for _, c := range r.s.carts {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}

func (r *memCartRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.CartStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[id]
	if !ok {
		return repository.ErrCartNotFound
	}
	c.Status = status
	return nil
}

// joined fills the catalog columns the SQL repository joins in. Callers hold the lock.
func (r *memCartRepo) joined(item *domain.CartItem) *domain.CartItem {
	c := *item
	if v, ok := r.s.variants[item.VariantID]; ok {
		c.ProductID = v.ProductID
		c.ProductName = v.ProductName
		c.BasePrice = v.BasePrice
		c.AdditionalPrice = v.AdditionalPrice
		c.SizeName = v.SizeName
		c.ColorName = v.ColorName
		c.ColorHex = v.ColorHex
		c.Stock = v.Stock
	}
	return &c
}

func (r *memCartRepo) Items(_ context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.CartItem{}
	for _, item := range r.s.cartItems {
		if item.CartID == cartID {
			out = append(out, r.joined(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID.String() < out[j].VariantID.String() })
	return out, nil
}

func (r *memCartRepo) ItemsForUpdate(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	return r.Items(ctx, cartID)
}

func (r *memCartRepo) FindItem(_ context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cartItems[itemID]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	return r.joined(item), nil
}

func (r *memCartRepo) FindItemByVariant(_ context.Context, cartID, variantID uuid.UUID) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.cartItems {
		if item.CartID == cartID && item.VariantID == variantID {
			return r.joined(item), nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (r *memCartRepo) InsertItem(_ context.Context, item *domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[item.CartID]; !ok {
		return repository.ErrCartItemInvalidRef
	}
	if _, ok := r.s.variants[item.VariantID]; !ok {
		return repository.ErrCartItemInvalidRef
	}
	for _, existing := range r.s.cartItems {
		if existing.CartID == item.CartID && existing.VariantID == item.VariantID {
			return repository.ErrCartItemExists
		}
	}
	c := *item
	r.s.cartItems[item.ID] = &c
	return nil
}

func (r *memCartRepo) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cartItems[itemID]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (r *memCartRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cartItems[itemID]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(r.s.cartItems, itemID)
	return nil
}

func (r *memCartRepo) Clear(_ context.Context, cartID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	removed := 0
	for id, item := range r.s.cartItems {
		if item.CartID == cartID {
			delete(r.s.cartItems, id)
			removed++
		}
	}
	return removed, nil
}

// orders

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.takenNumbers[order.OrderNumber] {
		return repository.ErrOrderNumberTaken
	}
	for _, o := range r.s.orders {
		if o.OrderNumber == order.OrderNumber {
			return repository.ErrOrderNumberTaken
		}
		if o.CartID == order.CartID {
			return repository.ErrCartAlreadyOrdered
		}
	}
	c := *order
	r.s.orders[order.ID] = &c
	return nil
}

func (r *memOrderRepo) InsertItems(_ context.Context, items []*domain.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		c := *item
		r.s.orderItems[item.OrderID] = append(r.s.orderItems[item.OrderID], &c)
	}
	return nil
}

func (r *memOrderRepo) find(id uuid.UUID) (*domain.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	c := *o
	if u, ok := r.s.users[o.UserID]; ok {
		c.CustomerName = u.Name
		c.CustomerEmail = u.Email
	}
	c.ItemCount = len(r.s.orderItems[id])
	return &c, nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(id)
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *memOrderRepo) Items(_ context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.OrderItem{}
	for _, item := range r.s.orderItems[orderID] {
		c := *item
		out = append(out, &c)
	}
	return out, nil
}

func (r *memOrderRepo) History(_ context.Context, orderID uuid.UUID) ([]*domain.OrderStatusEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	events := r.s.history[orderID]
	out := make([]*domain.OrderStatusEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		c := *events[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *memOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*domain.Order{}
	for id, o := range r.s.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		c, _ := r.find(id)
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *memOrderRepo) AppendStatus(_ context.Context, event *domain.OrderStatusEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[event.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	c := *event
	r.s.history[event.OrderID] = append(r.s.history[event.OrderID], &c)
	o.Status = event.Status
	o.UpdatedAt = event.ChangedAt
	return nil
}

func (r *memOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(r.s.history, id)
	delete(r.s.orderItems, id)
	delete(r.s.orders, id)
	return nil
}

func (r *memOrderRepo) Stats(_ context.Context, since time.Time) (*domain.OrderStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &domain.OrderStats{TotalSales: decimal.Zero, AverageTicket: decimal.Zero, WindowStartedAt: since}
	sold := 0
	for _, o := range r.s.orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusConfirmed:
			stats.Confirmed++
		case domain.OrderStatusShipped:
			stats.Shipped++
		case domain.OrderStatusDelivered:
			stats.Delivered++
		case domain.OrderStatusCancelled:
			stats.Cancelled++
			continue
		}
		stats.TotalSales = stats.TotalSales.Add(o.Total)
		sold++
	}
	if sold > 0 {
		stats.AverageTicket = stats.TotalSales.Div(decimal.NewFromInt(int64(sold))).Round(2)
	}
	return stats, nil
}

func (r *memOrderRepo) NextSequence(_ context.Context, day time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := day.Format("2006-01-02")
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}

// memRecordRepo reads order lines and history straight from the store.
type memRecordRepo struct{ s *memStore }

func (r *memRecordRepo) itemRecord(order *domain.Order, item *domain.OrderItem) *domain.OrderItemRecord {
	return &domain.OrderItemRecord{
		OrderItem:   *item,
		OrderNumber: order.OrderNumber,
		OrderStatus: order.Status,
		UserID:      order.UserID,
		OrderedAt:   order.CreatedAt,
	}
}

func (r *memRecordRepo) FindItem(_ context.Context, id uuid.UUID) (*domain.OrderItemRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for orderID, items := range r.s.orderItems {
		for _, item := range items {
			if item.ID == id {
				return r.itemRecord(r.s.orders[orderID], item), nil
			}
		}
	}
	return nil, repository.ErrOrderItemNotFound
}

func (r *memRecordRepo) ListItems(_ context.Context, filter repository.OrderItemFilter) ([]*domain.OrderItemRecord, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*domain.OrderItemRecord{}
	for orderID, items := range r.s.orderItems {
		order := r.s.orders[orderID]
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		for _, item := range items {
			if filter.VariantID != nil && item.VariantID != *filter.VariantID {
				continue
			}
			if filter.ProductID != nil {
				v, ok := r.s.variants[item.VariantID]
				if !ok || v.ProductID != *filter.ProductID {
					continue
				}
			}
			all = append(all, r.itemRecord(order, item))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderedAt.After(all[j].OrderedAt) })
	return pageOf(all, filter.Page, filter.PageSize), len(all), nil
}

func (r *memRecordRepo) ItemStats(_ context.Context, since time.Time) (*domain.OrderItemStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &domain.OrderItemStats{Sales: decimal.Zero, WindowStartedAt: since}
	orders := map[uuid.UUID]bool{}
	variants := map[uuid.UUID]bool{}
	for orderID, items := range r.s.orderItems {
		order := r.s.orders[orderID]
		if order.CreatedAt.Before(since) || order.Status == domain.OrderStatusCancelled {
			continue
		}
		for _, item := range items {
			stats.TotalItems++
			stats.UnitsSold += item.Quantity
			stats.Sales = stats.Sales.Add(item.Subtotal)
			orders[orderID] = true
			variants[item.VariantID] = true
		}
	}
	stats.OrdersWithItems = len(orders)
	stats.VariantsSold = len(variants)
	return stats, nil
}

func (r *memRecordRepo) statusRecord(event *domain.OrderStatusEvent) *domain.OrderStatusRecord {
	order := r.s.orders[event.OrderID]
	record := &domain.OrderStatusRecord{OrderStatusEvent: *event, OrderNumber: order.OrderNumber, UserID: order.UserID}
	if event.ChangedBy != nil {
		if u, ok := r.s.users[*event.ChangedBy]; ok {
			name := u.Name
			record.ChangedByName = &name
		}
	}
	return record
}

func (r *memRecordRepo) FindStatusEvent(_ context.Context, id uuid.UUID) (*domain.OrderStatusRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, events := range r.s.history {
		for _, event := range events {
			if event.ID == id {
				return r.statusRecord(event), nil
			}
		}
	}
	return nil, repository.ErrStatusEventNotFound
}

func (r *memRecordRepo) ListStatusEvents(_ context.Context, filter repository.StatusEventFilter) ([]*domain.OrderStatusRecord, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*domain.OrderStatusRecord{}
	for orderID, events := range r.s.history {
		if filter.UserID != nil && r.s.orders[orderID].UserID != *filter.UserID {
			continue
		}
		for _, event := range events {
			if filter.Status != nil && event.Status != *filter.Status {
				continue
			}
			all = append(all, r.statusRecord(event))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ChangedAt.After(all[j].ChangedAt) })
	return pageOf(all, filter.Page, filter.PageSize), len(all), nil
}

func (r *memRecordRepo) StatusStats(_ context.Context, since time.Time) ([]*domain.StatusDailyCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]*domain.StatusDailyCount{}
	for _, events := range r.s.history {
		for _, event := range events {
			if event.ChangedAt.Before(since) {
				continue
			}
			day := event.ChangedAt.UTC().Truncate(24 * time.Hour)
			key := string(event.Status) + day.Format("2006-01-02")
			if counts[key] == nil {
				counts[key] = &domain.StatusDailyCount{Status: event.Status, Day: day}
			}
			counts[key].Total++
		}
	}
	out := make([]*domain.StatusDailyCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, c)
	}
	return out, nil
}

func pageOf[T any](all []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// recordingPublisher keeps published events and can be told to fail.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []*events.OrderEvent
	ctxErrs []error
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}
