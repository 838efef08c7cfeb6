// Package memory provides an in-process implementation of every store the
// engine talks to. It backs the tests and the offline demo.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/shopspring/decimal"
)

type supplierLink struct {
	supplierID   int64
	leadTimeDays *int
}

type supplier struct {
	name   string
	active bool
}

type orderLine struct {
	orderID   int64
	partID    int64
	quantity  decimal.Decimal
	received  decimal.Decimal
	reference string
}

// Store holds host inventory data and engine state behind one mutex.
type Store struct {
	mu sync.RWMutex

	parts       map[int64]domain.Part
	stock       map[int64]decimal.Decimal
	committed   map[int64]decimal.Decimal
	suppliers   map[int64]supplier
	links       map[int64][]supplierLink
	orders      map[int64]*domain.PurchaseOrder
	orderLines  []orderLine
	movements   []domain.StockMovement
	policies    map[int64]*domain.Policy // by policy id
	statistics  []domain.DemandStatistics
	suggestions map[int64]*domain.Suggestion
	runs        map[int64]*domain.CalculationRun

	nextID int64
}

func NewStore() *Store {
	return &Store{
		parts:       make(map[int64]domain.Part),
		stock:       make(map[int64]decimal.Decimal),
		committed:   make(map[int64]decimal.Decimal),
		suppliers:   make(map[int64]supplier),
		links:       make(map[int64][]supplierLink),
		orders:      make(map[int64]*domain.PurchaseOrder),
		policies:    make(map[int64]*domain.Policy),
		suggestions: make(map[int64]*domain.Suggestion),
		runs:        make(map[int64]*domain.CalculationRun),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddPart registers a part and returns its id.
func (s *Store) AddPart(name, ipn string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.parts[id] = domain.Part{ID: id, Name: name, IPN: ipn}
	return id
}

// SetStock replaces the on-hand quantity of a part.
func (s *Store) SetStock(partID int64, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[partID] = qty
}

// SetCommitted replaces the allocated quantity of a part.
func (s *Store) SetCommitted(partID int64, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed[partID] = qty
}

// AddSupplier registers a supplier and returns its id.
func (s *Store) AddSupplier(name string, active bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.suppliers[id] = supplier{name: name, active: active}
	return id
}

// LinkSupplier makes supplierID a source for partID.
func (s *Store) LinkSupplier(partID, supplierID int64, leadTimeDays *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[partID] = append(s.links[partID], supplierLink{supplierID: supplierID, leadTimeDays: leadTimeDays})
}

// AddMovements appends stock history entries.
func (s *Store) AddMovements(movements ...domain.StockMovement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, movements...)
}

// AddInbound creates an order in the given state with one line for partID.
func (s *Store) AddInbound(partID, supplierID int64, state domain.OrderState, qty, received decimal.Decimal) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.orders[id] = &domain.PurchaseOrder{ID: id, SupplierID: supplierID, State: state}
	s.orderLines = append(s.orderLines, orderLine{orderID: id, partID: partID, quantity: qty, received: received})
	return id
}

// PurchaseOrders returns the created orders ordered by id.
func (s *Store) PurchaseOrders() []domain.PurchaseOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PurchaseOrder, 0, len(s.orders))
	for _, po := range s.orders {
		out = append(out, *po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OrderLines returns the quantities ordered on a purchase order.
func (s *Store) OrderLines(orderID int64) []domain.PurchaseOrderLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PurchaseOrderLine
	for _, l := range s.orderLines {
		if l.orderID == orderID {
			out = append(out, domain.PurchaseOrderLine{PartID: l.partID, Quantity: l.quantity, Reference: l.reference})
		}
	}
	return out
}

func (s *Store) GetPart(ctx context.Context, partID int64) (*domain.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	part, ok := s.parts[partID]
	if !ok {
		return nil, domain.NotFoundf("part %d", partID)
	}
	return &part, nil
}

func (s *Store) GetCurrentStock(ctx context.Context, partID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock[partID], nil
}

func (s *Store) GetCommittedQuantity(ctx context.Context, partID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed[partID], nil
}

func (s *Store) GetOpenInboundLines(ctx context.Context, partID int64) ([]domain.InboundLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []domain.InboundLine
	for _, l := range s.orderLines {
		if l.partID != partID {
			continue
		}
		state := s.orders[l.orderID].State
		if !state.Issued() {
			continue
		}
		lines = append(lines, domain.InboundLine{OrderID: l.orderID, Quantity: l.quantity, Received: l.received, OrderState: state})
	}
	return lines, nil
}

func (s *Store) GetSupplierOptions(ctx context.Context, partID int64) ([]domain.SupplierOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	options := make([]domain.SupplierOption, 0, len(s.links[partID]))
	for _, link := range s.links[partID] {
		sup := s.suppliers[link.supplierID]
		options = append(options, domain.SupplierOption{
			SupplierID:   link.supplierID,
			SupplierName: sup.name,
			LeadTimeDays: link.leadTimeDays,
			Active:       sup.active,
			IsSupplier:   true,
		})
	}
	return options, nil
}

func (s *Store) GetRemovalEvents(ctx context.Context, partID int64, since, until time.Time) ([]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []decimal.Decimal
	for _, m := range s.movements {
		if m.PartID == partID && m.Type.IsRemoval() && !m.OccurredAt.Before(since) && !m.OccurredAt.After(until) {
			out = append(out, m.Quantity)
		}
	}
	return out, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderRequest) (*domain.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return nil, domain.Invalidf("purchase order %s has no lines", req.Reference)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[req.SupplierID]; !ok {
		return nil, domain.NotFoundf("supplier %d", req.SupplierID)
	}

	po := &domain.PurchaseOrder{
		ID:          s.id(),
		Reference:   req.Reference,
		SupplierID:  req.SupplierID,
		Description: req.Description,
		State:       domain.OrderDraft,
		CreatedAt:   time.Now().UTC(),
	}
	s.orders[po.ID] = po
	for _, line := range req.Lines {
		s.orderLines = append(s.orderLines, orderLine{
			orderID:   po.ID,
			partID:    line.PartID,
			quantity:  line.Quantity,
			received:  decimal.Zero,
			reference: line.Reference,
		})
	}

	out := *po
	return &out, nil
}

var (
	_ repository.InventoryStore = (*Store)(nil)
	_ repository.HistoryStore   = (*Store)(nil)
	_ repository.OrderCreator   = (*Store)(nil)
)
