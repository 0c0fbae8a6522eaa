package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/ordernote"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/watermark"
)

type cartSession interface {
	Lines(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
}

type catalogSource interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Service runs checkout and the order views built on stored notes.
type Service struct {
	orders    orderrepo.Repository
	carts     cartSession
	catalog   catalogSource
	directory payment.Directory
	tracker   *watermark.Tracker
	logger    *log.Logger
}

func New(orders orderrepo.Repository, carts cartSession, catalog catalogSource, directory payment.Directory, tracker *watermark.Tracker, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:    orders,
		carts:     carts,
		catalog:   catalog,
		directory: directory,
		tracker:   tracker,
		logger:    logger,
	}
}

// PaymentChoice is what the customer reported paying with. A nil choice
// at checkout means no online payment was made (cash on delivery).
type PaymentChoice struct {
	Method         string         `json:"method"`
	PayeeID        string         `json:"payeeId"`
	TransactionRef string         `json:"transactionRef"`
	Flow           ordernote.Flow `json:"flow"`
}

type CheckoutInput struct {
	CustomerName string         `json:"customerName"`
	PhoneNumber  string         `json:"phoneNumber"`
	Address      string         `json:"address"`
	Notes        string         `json:"notes"`
	Payment      *PaymentChoice `json:"payment,omitempty"`
}

// CheckoutResult is returned after the order is stored. Intent is set when
// a payee was resolved; otherwise the customer must contact the merchant.
type CheckoutResult struct {
	Order          *domain.Order         `json:"order"`
	Reconciliation domain.Reconciliation `json:"reconciliation"`
	Payment        *ordernote.Annotation `json:"payment,omitempty"`
	Intent         *payment.Intent       `json:"intent,omitempty"`
}

// ValidationError lists per-field checkout problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

// MissingProductsError blocks checkout and carries the priced cart so the
// caller can show which lines need attention.
type MissingProductsError struct {
	Reconciliation domain.Reconciliation
}

func (e *MissingProductsError) Error() string {
	var names []string
	for _, l := range e.Reconciliation.Lines {
		if l.IsMissing {
			names = append(names, l.ProductName)
		}
	}
	return fmt.Sprintf("%s: %s", domain.ErrMissingProducts, strings.Join(names, ", "))
}

func (e *MissingProductsError) Unwrap() error { return domain.ErrMissingProducts }

var (
	whitespace   = regexp.MustCompile(`\s`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

func (in CheckoutInput) normalize() (CheckoutInput, error) {
	out := CheckoutInput{
		CustomerName: strings.TrimSpace(in.CustomerName),
		PhoneNumber:  whitespace.ReplaceAllString(in.PhoneNumber, ""),
		Address:      strings.TrimSpace(in.Address),
		Notes:        strings.TrimSpace(ordernote.StripMarkers(in.Notes)),
		Payment:      in.Payment,
	}
	fields := map[string]string{}
	if out.CustomerName == "" {
		fields["customerName"] = "Name is required"
	}
	switch {
	case out.PhoneNumber == "":
		fields["phoneNumber"] = "Phone number is required"
	case !phonePattern.MatchString(out.PhoneNumber):
		fields["phoneNumber"] = "Please enter a valid 10-digit phone number"
	}
	if out.Address == "" {
		fields["address"] = "Delivery address is required"
	}
	if p := out.Payment; p != nil && p.Flow != "" && p.Flow != ordernote.FlowQR && p.Flow != ordernote.FlowDeepLink {
		fields["payment.flow"] = fmt.Sprintf("unsupported payment flow %q", p.Flow)
	}
	if len(fields) > 0 {
		return out, &ValidationError{Fields: fields}
	}
	return out, nil
}

// Checkout turns the session's cart into an order. The cart is read before
// the catalog so the live price applies, and any line whose product has
// gone blocks the order.
func (s *Service) Checkout(ctx context.Context, sessionID string, in CheckoutInput) (*CheckoutResult, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	rec := cartsvc.Reconcile(lines, domain.Catalog(products))
	if rec.HasMissingLines {
		return nil, &MissingProductsError{Reconciliation: rec}
	}

	var (
		annotation *ordernote.Annotation
		payee      *payment.PayeeEndpoint
	)
	if in.Payment != nil {
		p, err := s.resolvePayee(in.Payment.PayeeID)
		switch {
		case errors.Is(err, domain.ErrPaymentUnavailable):
			s.logger.Printf("order service: checkout without payment annotation reason=%v", err)
		case err != nil:
			return nil, err
		default:
			payee = &p
			a := ordernote.FromPayee(in.Payment.Method, payee, in.Payment.TransactionRef, in.Payment.Flow)
			annotation = &a
		}
	}

	notes := in.Notes
	if annotation != nil {
		notes = ordernote.Encode(*annotation, in.Notes)
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{ProductName: l.ProductName, Quantity: l.Quantity})
	}
	created, err := s.orders.Create(ctx, orderrepo.CreateInput{
		CustomerName: in.CustomerName,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Notes:        notesPtr,
		Items:        items,
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.Printf("order service: clear cart order_id=%d error=%v", created.ID, err)
	}

	res := &CheckoutResult{Order: created, Reconciliation: rec, Payment: annotation}
	if payee != nil {
		intent, err := payment.NewIntent(*payee, created.TotalAmount, s.directory.MerchantName)
		if err != nil {
			s.logger.Printf("order service: build intent order_id=%d error=%v", created.ID, err)
		} else {
			res.Intent = &intent
		}
	}
	s.logger.Printf("order service: checkout order_id=%d total=%d annotated=%t", created.ID, created.TotalAmount, annotation != nil)
	return res, nil
}

// resolvePayee returns the payee for id, or the default payee when id is
// empty. ErrPaymentUnavailable means checkout should degrade, not fail.
func (s *Service) resolvePayee(id string) (payment.PayeeEndpoint, error) {
	if !s.directory.Configured() {
		return payment.PayeeEndpoint{}, domain.ErrPaymentUnavailable
	}
	p, ok := s.directory.Resolve(id)
	if !ok {
		if strings.TrimSpace(id) != "" {
			return payment.PayeeEndpoint{}, fmt.Errorf("%w: unknown payee %q", domain.ErrInvalidInput, id)
		}
		return payment.PayeeEndpoint{}, domain.ErrPaymentUnavailable
	}
	if err := payment.Validate(p); err != nil {
		return payment.PayeeEndpoint{}, fmt.Errorf("%w: payee %s: %w", domain.ErrPaymentUnavailable, p.ID, err)
	}
	return p, nil
}

// PaymentIntent builds the payment URI and instruction for an amount.
func (s *Service) PaymentIntent(payeeID string, amount int64) (payment.Intent, error) {
	p, err := s.resolvePayee(payeeID)
	if err != nil {
		return payment.Intent{}, err
	}
	intent, err := payment.NewIntent(p, amount, s.directory.MerchantName)
	if err != nil {
		return payment.Intent{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return intent, nil
}

// Directory exposes the configured payees.
func (s *Service) Directory() payment.Directory {
	return s.directory
}

// OrderView is an order with its notes split into payment metadata and
// what the customer wrote.
type OrderView struct {
	domain.Order
	Payment   *ordernote.Annotation `json:"payment"`
	UserNotes string                `json:"userNotes"`
}

func viewOf(o domain.Order) OrderView {
	v := OrderView{Order: o, UserNotes: ordernote.ExtractUserNotes(o.NotesText())}
	if a, ok := ordernote.Decode(o.NotesText()); ok {
		v.Payment = &a
	}
	return v
}

func (s *Service) Get(ctx context.Context, id int64) (*OrderView, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(*o)
	return &v, nil
}

// PickupNote renders the text handed to the courier for an order.
func (s *Service) PickupNote(ctx context.Context, id int64) (string, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return PickupNote(s.directory.MerchantName, *o), nil
}

func PickupNote(merchant string, o domain.Order) string {
	items := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, fmt.Sprintf("%s x %d", it.ProductName, it.Quantity))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Order Pickup\n", merchant)
	fmt.Fprintf(&b, "Order ID: #%d\n", o.ID)
	fmt.Fprintf(&b, "Customer Phone: %s\n", o.PhoneNumber)
	fmt.Fprintf(&b, "Delivery Address: %s\n", o.Address)
	fmt.Fprintf(&b, "Items: %s", strings.Join(items, ", "))
	return b.String()
}

// Feed is the admin order list with the count of orders not yet seen.
type Feed struct {
	Orders    []OrderView          `json:"orders"`
	NewCount  int                  `json:"newCount"`
	Watermark *watermark.Watermark `json:"watermark"`
}

// AdminFeed lists all orders newest first.
func (s *Service) AdminFeed(ctx context.Context) (*Feed, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Timestamp > orders[j].Timestamp })

	wm := s.tracker.Get(ctx)
	feed := &Feed{
		Orders:    make([]OrderView, 0, len(orders)),
		NewCount:  watermark.CountNew(records(orders), time.Nanosecond, wm),
		Watermark: wm,
	}
	for _, o := range orders {
		feed.Orders = append(feed.Orders, viewOf(o))
	}
	return feed, nil
}

// MarkSeen moves the watermark to the newest order. It returns nil when
// there are no orders or the watermark could not be stored; storage
// failures are logged by the tracker and not reported.
func (s *Service) MarkSeen(ctx context.Context) (*watermark.Watermark, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok := watermark.Latest(records(orders))
	if !ok {
		return nil, nil
	}
	wm := watermark.For(latest, time.Nanosecond)
	if err := s.tracker.Set(ctx, wm.TimestampMillis, wm.LastOrderID); err != nil {
		return nil, nil
	}
	return &wm, nil
}

func (s *Service) ClearWatermark(ctx context.Context) {
	_ = s.tracker.Clear(ctx)
}

func records(orders []domain.Order) []watermark.Record {
	out := make([]watermark.Record, 0, len(orders))
	for _, o := range orders {
		out = append(out, watermark.Record{ID: strconv.FormatInt(o.ID, 10), Timestamp: o.Timestamp})
	}
	return out
}
