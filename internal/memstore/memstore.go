// Package memstore is an in-memory implementation of domain.Store and
// domain.CatalogGateway. It backs unit tests and local experiments; it
// mirrors the postgres store's constraint behavior, including the unique
// sentinels and transactional rollback.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
)

// Store holds everything in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	carts    map[uuid.UUID]*cartRecord
	orders   map[uuid.UUID]domain.Order
	counters map[int]int64
	returns  map[uuid.UUID]domain.Return
	tracking map[uuid.UUID][]domain.TrackingUpdate
	sessions map[string]domain.User
	products map[uuid.UUID]domain.Product

	seq int64

	// Error hooks let tests force failures mid-transaction.
	CreateOrderErr error
	ClearCartErr   error
	AppendErr      error
}

type cartRecord struct {
	cart  domain.Cart
	items []domain.CartItem
}

// Compile-time checks.
var (
	_ domain.Store          = (*Store)(nil)
	_ domain.Store          = (*tx)(nil)
	_ domain.CatalogGateway = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		carts:    make(map[uuid.UUID]*cartRecord),
		orders:   make(map[uuid.UUID]domain.Order),
		counters: make(map[int]int64),
		returns:  make(map[uuid.UUID]domain.Return),
		tracking: make(map[uuid.UUID][]domain.TrackingUpdate),
		sessions: make(map[string]domain.User),
		products: make(map[uuid.UUID]domain.Product),
	}
}

// --- Transactions ---

// WithTx snapshots all state and runs fn while holding the store lock, then
// restores the snapshot if fn fails. Holding the lock for the whole
// transaction keeps every other writer out, so a rollback can never erase a
// commit that happened while the transaction was open. fn must use only the
// store it is handed; touching the outer Store from inside fn deadlocks.
func (s *Store) WithTx(_ context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(&tx{s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// tx is the view handed to WithTx callbacks. The lock is already held, so
// every method calls the unlocked core directly.
type tx struct{ s *Store }

// WithTx reuses the open transaction, like the postgres store does for
// nested calls.
func (t *tx) WithTx(_ context.Context, fn func(domain.Store) error) error {
	return fn(t)
}

func (t *tx) GetCart(_ context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	return t.s.cartLocked(cartID)
}

func (t *tx) GetCartByUser(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return t.s.getCartByUserLocked(userID)
}

func (t *tx) CreateCart(_ context.Context, userID *uuid.UUID) (*domain.Cart, error) {
	return t.s.createCartLocked(userID)
}

func (t *tx) AddCartItem(_ context.Context, cartID, productID uuid.UUID, quantity int32) error {
	return t.s.addCartItemLocked(cartID, productID, quantity)
}

func (t *tx) SetCartItemQuantity(_ context.Context, cartID, productID uuid.UUID, quantity int32) error {
	return t.s.setCartItemQuantityLocked(cartID, productID, quantity)
}

func (t *tx) RemoveCartItem(_ context.Context, cartID, productID uuid.UUID) error {
	return t.s.removeCartItemLocked(cartID, productID)
}

func (t *tx) ClearCart(_ context.Context, cartID uuid.UUID) error {
	return t.s.clearCartLocked(cartID)
}

func (t *tx) AllocateOrderNumber(_ context.Context, year int) (int64, error) {
	return t.s.allocateOrderNumberLocked(year)
}

func (t *tx) CreateOrder(_ context.Context, order *domain.Order) error {
	return t.s.createOrderLocked(order)
}

func (t *tx) GetOrderByPaymentIntent(_ context.Context, paymentIntentID string) (*domain.Order, error) {
	return t.s.getOrderByPaymentIntentLocked(paymentIntentID)
}

func (t *tx) GetOrderByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	return t.s.getOrderByNumberLocked(orderNumber)
}

func (t *tx) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return t.s.listOrdersByUserLocked(userID)
}

func (t *tx) ListOrders(_ context.Context, limit, offset int32) ([]domain.Order, error) {
	return t.s.listOrdersLocked(limit, offset)
}

func (t *tx) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	return t.s.updateOrderStatusLocked(orderID, status)
}

func (t *tx) UpdateOrderTracking(_ context.Context, orderID uuid.UUID, carrier, number, url string) error {
	return t.s.updateOrderTrackingLocked(orderID, carrier, number, url)
}

func (t *tx) AppendTrackingUpdate(_ context.Context, update *domain.TrackingUpdate) error {
	return t.s.appendTrackingUpdateLocked(update)
}

func (t *tx) ListTrackingUpdates(_ context.Context, orderID uuid.UUID) ([]domain.TrackingUpdate, error) {
	return t.s.listTrackingUpdatesLocked(orderID)
}

func (t *tx) CreateReturn(_ context.Context, ret *domain.Return) error {
	return t.s.createReturnLocked(ret)
}

func (t *tx) GetReturn(_ context.Context, id uuid.UUID) (*domain.Return, error) {
	return t.s.getReturnLocked(id)
}

func (t *tx) ListReturnsByUser(_ context.Context, userID uuid.UUID) ([]domain.Return, error) {
	return t.s.listReturnsByUserLocked(userID)
}

func (t *tx) ListReturns(_ context.Context, limit, offset int32) ([]domain.Return, error) {
	return t.s.listReturnsLocked(limit, offset)
}

func (t *tx) HasActiveReturn(_ context.Context, orderNumber string) (bool, error) {
	return t.s.hasActiveReturnLocked(orderNumber)
}

func (t *tx) UpdateReturn(_ context.Context, ret *domain.Return) error {
	return t.s.updateReturnLocked(ret)
}

func (t *tx) GetUserBySessionToken(_ context.Context, token string) (*domain.User, error) {
	return t.s.getUserBySessionTokenLocked(token)
}

func (s *Store) clone() *Store {
	c := New()
	for id, rec := range s.carts {
		items := append([]domain.CartItem(nil), rec.items...)
		c.carts[id] = &cartRecord{cart: rec.cart, items: items}
	}
	for id, o := range s.orders {
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		c.orders[id] = o
	}
	for y, v := range s.counters {
		c.counters[y] = v
	}
	for id, r := range s.returns {
		r.ItemIDs = append([]uuid.UUID(nil), r.ItemIDs...)
		c.returns[id] = r
	}
	for id, t := range s.tracking {
		c.tracking[id] = append([]domain.TrackingUpdate(nil), t...)
	}
	for t, u := range s.sessions {
		c.sessions[t] = u
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	c.seq = s.seq
	return c
}

func (s *Store) restore(from *Store) {
	s.carts = from.carts
	s.orders = from.orders
	s.counters = from.counters
	s.returns = from.returns
	s.tracking = from.tracking
	s.sessions = from.sessions
	s.products = from.products
	s.seq = from.seq
}

// --- Seeding helpers ---

// SeedProduct registers a catalog product.
func (s *Store) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// SeedSession binds a token to a user.
func (s *Store) SeedSession(token string, user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = user
}

// SeedOrder inserts an order directly, bypassing the payment path.
func (s *Store) SeedOrder(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
}

// --- Catalog ---

// FindByID returns the product or ENOTFOUND.
func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.NotFound("catalog.find", "product", id.String())
	}
	return &p, nil
}

// FindMany returns products in request order, ENOTFOUND on the first miss.
func (s *Store) FindMany(_ context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok {
			return nil, domain.NotFound("catalog.find_many", "product", id.String())
		}
		products = append(products, p)
	}
	return products, nil
}

// --- Carts ---

func (s *Store) GetCart(_ context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(cartID)
}

func (s *Store) GetCartByUser(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCartByUserLocked(userID)
}

func (s *Store) getCartByUserLocked(userID uuid.UUID) (*domain.Cart, error) {
	for _, rec := range s.carts {
		if rec.cart.UserID != nil && *rec.cart.UserID == userID {
			return s.cartLocked(rec.cart.ID)
		}
	}
	return s.createCartLocked(&userID)
}

func (s *Store) CreateCart(_ context.Context, userID *uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCartLocked(userID)
}

func (s *Store) createCartLocked(userID *uuid.UUID) (*domain.Cart, error) {
	cart := domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.carts[cart.ID] = &cartRecord{cart: cart}
	out := cart
	return &out, nil
}

func (s *Store) AddCartItem(_ context.Context, cartID, productID uuid.UUID, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCartItemLocked(cartID, productID, quantity)
}

func (s *Store) addCartItemLocked(cartID, productID uuid.UUID, quantity int32) error {
	rec, ok := s.carts[cartID]
	if !ok {
		return domain.NotFound("cart.add_item", "cart", cartID.String())
	}
	for i := range rec.items {
		if rec.items[i].ProductID == productID {
			rec.items[i].Quantity += quantity
			return nil
		}
	}
	rec.items = append(rec.items, domain.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	})
	return nil
}

func (s *Store) SetCartItemQuantity(_ context.Context, cartID, productID uuid.UUID, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCartItemQuantityLocked(cartID, productID, quantity)
}

func (s *Store) setCartItemQuantityLocked(cartID, productID uuid.UUID, quantity int32) error {
	rec, ok := s.carts[cartID]
	if !ok {
		return domain.NotFound("cart.set_quantity", "cart", cartID.String())
	}
	for i := range rec.items {
		if rec.items[i].ProductID == productID {
			rec.items[i].Quantity = quantity
			return nil
		}
	}
	return domain.NotFound("cart.set_quantity", "cart item", productID.String())
}

func (s *Store) RemoveCartItem(_ context.Context, cartID, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeCartItemLocked(cartID, productID)
}

func (s *Store) removeCartItemLocked(cartID, productID uuid.UUID) error {
	rec, ok := s.carts[cartID]
	if !ok {
		return domain.NotFound("cart.remove_item", "cart", cartID.String())
	}
	for i := range rec.items {
		if rec.items[i].ProductID == productID {
			rec.items = append(rec.items[:i], rec.items[i+1:]...)
			return nil
		}
	}
	return domain.NotFound("cart.remove_item", "cart item", productID.String())
}

func (s *Store) ClearCart(_ context.Context, cartID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearCartLocked(cartID)
}

func (s *Store) clearCartLocked(cartID uuid.UUID) error {
	if s.ClearCartErr != nil {
		return s.ClearCartErr
	}

	if rec, ok := s.carts[cartID]; ok {
		rec.items = nil
	}
	return nil
}

func (s *Store) cartLocked(cartID uuid.UUID) (*domain.Cart, error) {
	rec, ok := s.carts[cartID]
	if !ok {
		return nil, domain.NotFound("cart.get", "cart", cartID.String())
	}

	cart := rec.cart
	cart.Items = make([]domain.CartItem, len(rec.items))
	for i, item := range rec.items {
		if p, ok := s.products[item.ProductID]; ok {
			item.ProductName = p.Name
			item.UnitPriceCents = p.PriceCents
		}
		cart.Items[i] = item
	}
	return &cart, nil
}

// --- Orders ---

func (s *Store) AllocateOrderNumber(_ context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocateOrderNumberLocked(year)
}

func (s *Store) allocateOrderNumberLocked(year int) (int64, error) {
	s.counters[year]++
	return s.counters[year], nil
}

func (s *Store) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createOrderLocked(order)
}

func (s *Store) createOrderLocked(order *domain.Order) error {
	if s.CreateOrderErr != nil {
		return s.CreateOrderErr
	}

	for _, existing := range s.orders {
		if existing.PaymentIntentID == order.PaymentIntentID {
			return domain.ErrPaymentAlreadyProcessed
		}
		if existing.OrderNumber == order.OrderNumber {
			return domain.ErrOrderNumberTaken
		}
	}

	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}

	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	s.orders[order.ID] = stored
	return nil
}

func (s *Store) GetOrderByPaymentIntent(_ context.Context, paymentIntentID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrderByPaymentIntentLocked(paymentIntentID)
}

func (s *Store) getOrderByPaymentIntentLocked(paymentIntentID string) (*domain.Order, error) {
	for _, o := range s.orders {
		if o.PaymentIntentID == paymentIntentID {
			out := o
			out.Items = append([]domain.OrderItem(nil), o.Items...)
			return &out, nil
		}
	}
	return nil, domain.NotFound("order.get", "order", paymentIntentID)
}

func (s *Store) GetOrderByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrderByNumberLocked(orderNumber)
}

func (s *Store) getOrderByNumberLocked(orderNumber string) (*domain.Order, error) {
	for _, o := range s.orders {
		if o.OrderNumber == orderNumber {
			out := o
			out.Items = append([]domain.OrderItem(nil), o.Items...)
			return &out, nil
		}
	}
	return nil, domain.NotFound("order.get", "order", orderNumber)
}

func (s *Store) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOrdersByUserLocked(userID)
}

func (s *Store) listOrdersByUserLocked(userID uuid.UUID) ([]domain.Order, error) {
	var orders []domain.Order
	for _, o := range s.orders {
		if o.UserID != nil && *o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (s *Store) ListOrders(_ context.Context, limit, offset int32) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOrdersLocked(limit, offset)
}

func (s *Store) listOrdersLocked(limit, offset int32) ([]domain.Order, error) {
	orders := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sortOrders(orders)
	return page(orders, limit, offset), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOrderStatusLocked(orderID, status)
}

func (s *Store) updateOrderStatusLocked(orderID uuid.UUID, status domain.OrderStatus) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.NotFound("order.update_status", "order", orderID.String())
	}
	o.Status = status
	s.orders[orderID] = o
	return nil
}

func (s *Store) UpdateOrderTracking(_ context.Context, orderID uuid.UUID, carrier, number, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOrderTrackingLocked(orderID, carrier, number, url)
}

func (s *Store) updateOrderTrackingLocked(orderID uuid.UUID, carrier, number, url string) error {
	o, ok := s.orders[orderID]
	if !ok {
		return domain.NotFound("order.update_tracking", "order", orderID.String())
	}
	o.TrackingCarrier = carrier
	o.TrackingNumber = number
	o.TrackingURL = url
	s.orders[orderID] = o
	return nil
}

func (s *Store) AppendTrackingUpdate(_ context.Context, update *domain.TrackingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTrackingUpdateLocked(update)
}

func (s *Store) appendTrackingUpdateLocked(update *domain.TrackingUpdate) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}

	update.ID = uuid.New()
	update.CreatedAt = time.Now()
	s.tracking[update.OrderID] = append(s.tracking[update.OrderID], *update)
	return nil
}

func (s *Store) ListTrackingUpdates(_ context.Context, orderID uuid.UUID) ([]domain.TrackingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTrackingUpdatesLocked(orderID)
}

func (s *Store) listTrackingUpdatesLocked(orderID uuid.UUID) ([]domain.TrackingUpdate, error) {
	return append([]domain.TrackingUpdate(nil), s.tracking[orderID]...), nil
}

// --- Returns ---

func (s *Store) CreateReturn(_ context.Context, ret *domain.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createReturnLocked(ret)
}

func (s *Store) createReturnLocked(ret *domain.Return) error {
	for _, existing := range s.returns {
		if existing.OrderNumber == ret.OrderNumber && existing.Status.Active() {
			return domain.ErrDuplicateActiveReturn
		}
	}

	ret.ID = uuid.New()
	ret.CreatedAt = time.Now()
	ret.UpdatedAt = ret.CreatedAt
	s.returns[ret.ID] = *ret
	return nil
}

func (s *Store) GetReturn(_ context.Context, id uuid.UUID) (*domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getReturnLocked(id)
}

func (s *Store) getReturnLocked(id uuid.UUID) (*domain.Return, error) {
	ret, ok := s.returns[id]
	if !ok {
		return nil, domain.NotFound("return.get", "return", id.String())
	}
	out := ret
	return &out, nil
}

func (s *Store) ListReturnsByUser(_ context.Context, userID uuid.UUID) ([]domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReturnsByUserLocked(userID)
}

func (s *Store) listReturnsByUserLocked(userID uuid.UUID) ([]domain.Return, error) {
	var returns []domain.Return
	for _, r := range s.returns {
		if r.UserID == userID {
			returns = append(returns, r)
		}
	}
	sortReturns(returns)
	return returns, nil
}

func (s *Store) ListReturns(_ context.Context, limit, offset int32) ([]domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReturnsLocked(limit, offset)
}

func (s *Store) listReturnsLocked(limit, offset int32) ([]domain.Return, error) {
	returns := make([]domain.Return, 0, len(s.returns))
	for _, r := range s.returns {
		returns = append(returns, r)
	}
	sortReturns(returns)
	return page(returns, limit, offset), nil
}

func (s *Store) HasActiveReturn(_ context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasActiveReturnLocked(orderNumber)
}

func (s *Store) hasActiveReturnLocked(orderNumber string) (bool, error) {
	for _, r := range s.returns {
		if r.OrderNumber == orderNumber && r.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateReturn(_ context.Context, ret *domain.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateReturnLocked(ret)
}

func (s *Store) updateReturnLocked(ret *domain.Return) error {
	if _, ok := s.returns[ret.ID]; !ok {
		return domain.NotFound("return.update", "return", ret.ID.String())
	}
	ret.UpdatedAt = time.Now()
	s.returns[ret.ID] = *ret
	return nil
}

// --- Sessions ---

func (s *Store) GetUserBySessionToken(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUserBySessionTokenLocked(token)
}

func (s *Store) getUserBySessionTokenLocked(token string) (*domain.User, error) {
	user, ok := s.sessions[token]
	if !ok {
		return nil, domain.Unauthorized("session.get", "invalid or expired session")
	}
	out := user
	return &out, nil
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func sortReturns(returns []domain.Return) {
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].CreatedAt.After(returns[j].CreatedAt)
	})
}

func page[T any](items []T, limit, offset int32) []T {
	if int(offset) >= len(items) {
		return nil
	}
	items = items[offset:]
	if int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}
