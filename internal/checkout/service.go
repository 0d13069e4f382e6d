package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dinehall/ordering/internal/backend"
	"github.com/dinehall/ordering/internal/domain"
	"github.com/google/uuid"
)

// Note attached to every order the gateway opens.
const orderNote = "Customer mobile order"

// Backend is the slice of the restaurant API the flow needs.
type Backend interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*domain.Order, error)
	CreateOrderItem(ctx context.Context, req backend.CreateOrderItemRequest) (*domain.OrderItem, error)
}

// CartSource is the slice of the cart service the flow needs.
type CartSource interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	Subtract(ctx context.Context, customerID int64, lines []domain.CartLine) error
}

// Result reports a finished checkout. Total is the cart total as it stood
// when the submission was journaled.
type Result struct {
	OrderID int64   `json:"order_id"`
	Total   float64 `json:"total"`
	Reused  bool    `json:"reused_existing_order"`
	Items   int     `json:"items_submitted"`
}

// Service translates a populated cart into backend order and order-item
// records, reusing the customer's open order when one exists. Item creation
// calls are sequential, in cart-line order; the journal records per-line
// progress so an interrupted checkout resumes instead of replaying lines the
// backend already accepted.
type Service struct {
	carts   CartSource
	api     Backend
	journal Journal
}

func NewService(carts CartSource, api Backend, journal Journal) *Service {
	return &Service{
		carts:   carts,
		api:     api,
		journal: journal,
	}
}

type cartSnapshot struct {
	Lines       []domain.CartLine `json:"lines"`
	TotalAmount float64           `json:"total_amount"`
	CapturedAt  time.Time         `json:"captured_at"`
}

// errResumeAbandoned signals that an open submission could not be resumed
// (its order went terminal) and the checkout should start over.
var errResumeAbandoned = errors.New("open submission abandoned")

func (s *Service) PlaceOrder(ctx context.Context, customerID, tableID int64) (*Result, error) {
	// An in-progress submission from an earlier failed checkout takes
	// priority over the live cart: resume it rather than double-submit. The
	// check runs before the cart is even looked at, so a customer who
	// emptied their cart after a failed attempt still settles the journal.
	sub, lines, err := s.journal.GetOpenSubmission(ctx, customerID)
	if err != nil && !errors.Is(err, ErrNoOpenSubmission) {
		return nil, fmt.Errorf("failed to check open submissions: %w", err)
	}
	if err == nil {
		result, resumeErr := s.resume(ctx, sub, lines)
		if !errors.Is(resumeErr, errResumeAbandoned) {
			return result, resumeErr
		}
	}

	c, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	active, err := s.resolveActiveOrder(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var orderID int64
	reused := active != nil
	if reused {
		orderID = active.ID
	} else {
		if tableID <= 0 {
			return nil, ErrTableRequired
		}
		created, errCreate := s.api.CreateOrder(ctx, backend.CreateOrderRequest{
			CustomerID: customerID,
			TableID:    tableID,
			StaffID:    nil,
			Notes:      orderNote,
		})
		if errCreate != nil {
			return nil, fmt.Errorf("failed to create order: %w", errCreate)
		}
		orderID = created.ID
	}

	sub, lines, err = s.openSubmission(ctx, c, customerID, orderID, reused)
	if err != nil {
		return nil, err
	}

	return s.submit(ctx, sub, lines, c.Total())
}

// resolveActiveOrder picks the customer's most recently created order whose
// status is non-terminal. The backend does not filter by customer, so the
// whole collection is filtered here.
func (s *Service) resolveActiveOrder(ctx context.Context, customerID int64) (*domain.Order, error) {
	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var active *domain.Order
	for i := range orders {
		o := &orders[i]
		if o.CustomerID != customerID || o.Status.Terminal() {
			continue
		}
		if active == nil || o.CreatedAt.After(active.CreatedAt) {
			active = o
		}
	}
	return active, nil
}

func (s *Service) openSubmission(ctx context.Context, c *domain.Cart, customerID, orderID int64, reused bool) (*Submission, []SubmissionLine, error) {
	snapshot := cartSnapshot{
		Lines:       c.Lines,
		TotalAmount: c.Total(),
		CapturedAt:  time.Now(),
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	sub := &Submission{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		OrderID:    orderID,
		Reused:     reused,
		Snapshot:   snapshotJSON,
		Status:     SubmissionStatusInProgress,
	}
	lines := make([]SubmissionLine, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = SubmissionLine{
			SubmissionID: sub.ID,
			LineIndex:    i,
			MenuItemID:   l.Item.ID,
			Quantity:     l.Quantity,
			Notes:        l.Notes,
		}
	}

	if err := s.journal.CreateSubmission(ctx, sub, lines); err != nil {
		return nil, nil, fmt.Errorf("failed to journal submission: %w", err)
	}
	return sub, lines, nil
}

// resume continues an in-progress submission from its first unsent line. If
// the journaled order has since reached a terminal status the submission is
// marked failed and errResumeAbandoned tells the caller to start over.
func (s *Service) resume(ctx context.Context, sub *Submission, lines []SubmissionLine) (*Result, error) {
	order, err := s.api.GetOrder(ctx, sub.OrderID)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			log.Printf("abandoning submission %s, order %d is gone", sub.ID, sub.OrderID)
			return nil, s.abandon(ctx, sub)
		}
		// A transient failure must not abandon the journal, or the retry
		// would replay lines the backend already accepted.
		return nil, fmt.Errorf("failed to load journaled order: %w", err)
	}
	if order.Status.Terminal() {
		log.Printf("abandoning submission %s, order %d is %s", sub.ID, sub.OrderID, order.Status)
		return nil, s.abandon(ctx, sub)
	}

	var snapshot cartSnapshot
	if err := json.Unmarshal(sub.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	log.Printf("resuming submission %s for order %d", sub.ID, sub.OrderID)
	return s.submit(ctx, sub, lines, snapshot.TotalAmount)
}

func (s *Service) abandon(ctx context.Context, sub *Submission) error {
	if failErr := s.journal.FailSubmission(ctx, sub.ID); failErr != nil {
		return fmt.Errorf("failed to abandon submission: %w", failErr)
	}
	return errResumeAbandoned
}

func (s *Service) submit(ctx context.Context, sub *Submission, lines []SubmissionLine, total float64) (*Result, error) {
	for _, line := range lines {
		if line.Done {
			continue
		}
		item, err := s.api.CreateOrderItem(ctx, backend.CreateOrderItemRequest{
			OrderID:    sub.OrderID,
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Notes:      line.Notes,
		})
		if err != nil {
			// The cart stays as it was; the journal keeps the lines
			// already accepted so a retry picks up from here.
			return nil, fmt.Errorf("failed to submit line %d: %w", line.LineIndex, err)
		}
		if markErr := s.journal.MarkLineDone(ctx, sub.ID, line.LineIndex, item.ID); markErr != nil {
			return nil, fmt.Errorf("failed to journal line %d: %w", line.LineIndex, markErr)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"submission_id": sub.ID,
		"customer_id":   sub.CustomerID,
		"order_id":      sub.OrderID,
		"total_amount":  total,
		"line_count":    len(lines),
		"completed_at":  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := s.journal.CompleteSubmission(ctx, sub.ID, payload); err != nil {
		return nil, fmt.Errorf("failed to complete submission: %w", err)
	}

	// Only the submitted lines leave the cart; lines the customer added
	// after the journaled snapshot were never sent and must survive. A cart
	// that refuses the subtraction must not fail the checkout, or a retry
	// would submit everything again.
	submitted := make([]domain.CartLine, len(lines))
	for i, l := range lines {
		submitted[i] = domain.CartLine{
			Item:     domain.MenuItemRef{ID: l.MenuItemID},
			Quantity: l.Quantity,
			Notes:    l.Notes,
		}
	}
	if err := s.carts.Subtract(ctx, sub.CustomerID, submitted); err != nil {
		log.Printf("failed to remove submitted lines for customer %d: %v", sub.CustomerID, err)
	}

	return &Result{
		OrderID: sub.OrderID,
		Total:   total,
		Reused:  sub.Reused,
		Items:   len(lines),
	}, nil
}
