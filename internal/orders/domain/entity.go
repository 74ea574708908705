package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	carts "go-commerce/internal/carts/domain"
	"go-commerce/internal/pricing"
)

const (
	deliveredReason       = "delivery completed"
	paymentApprovedReason = "payment approved"
	itemsCancelledReason  = "all items cancelled"
	itemsDeliveredReason  = "all items delivered"
)

// DeliveryInfo is where and how the order ships
type DeliveryInfo struct {
	RecipientName  string
	Phone          string
	Address        string
	ZipCode        string
	Memo           string
	TrackingNumber string
	DeliveredAt    *time.Time
}

// Validate checks the fields required to ship
func (d DeliveryInfo) Validate() error {
	if strings.TrimSpace(d.RecipientName) == "" ||
		strings.TrimSpace(d.Phone) == "" ||
		strings.TrimSpace(d.Address) == "" {
		return ErrDeliveryInfoRequired
	}
	return nil
}

// OrderItem is a single product line within an order
type OrderItem struct {
	ID         uint
	OrderID    uint
	ProductID  uint
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Status     OrderItemStatus
	UpdatedAt  time.Time
}

// StatusHistory is an append-only audit record of one status transition
type StatusHistory struct {
	ID         uint
	OrderID    uint
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Reason     string
	Memo       string
	CreatedAt  time.Time
}

// IsNew reports whether the record has not been persisted yet
func (h StatusHistory) IsNew() bool {
	return h.ID == 0
}

// Order represents the order aggregate. Its identity (OrderNumber) is fixed
// at checkout; status, payment and amounts change only through the
// transition methods, each of which returns a new Order value.
type Order struct {
	ID            uint
	OrderNumber   string
	UserID        uint
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Amounts       pricing.Amounts
	Delivery      DeliveryInfo
	Payment       *PaymentInfo
	Items         []OrderItem
	History       []StatusHistory
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transition is the outcome of a state change: the next order state and the
// history records appended by it.
type Transition struct {
	Order    Order
	Recorded []StatusHistory
}

// CheckoutInput carries everything needed to turn a cart into an order
type CheckoutInput struct {
	OrderNumber   string
	Cart          carts.Cart
	Delivery      DeliveryInfo
	PaymentMethod PaymentMethod
	Discount      decimal.Decimal
	Policy        pricing.DeliveryPolicy
	Now           time.Time
}

// NewOrderFromCart prices a cart snapshot into a PENDING order. Unit prices
// are the cart's snapshots; the delivery fee comes from the policy.
func NewOrderFromCart(input CheckoutInput) (Order, error) {
	cart := input.Cart
	if cart.UserID == 0 {
		return Order{}, ErrUserIDRequired
	}
	if cart.IsEmpty() {
		return Order{}, ErrEmptyCart
	}
	if !input.PaymentMethod.IsValid() {
		return Order{}, ErrPaymentMethodInvalid
	}
	if err := input.Delivery.Validate(); err != nil {
		return Order{}, err
	}
	if input.Discount.IsNegative() {
		return Order{}, ErrNegativeAmount
	}

	lines := cart.Items()
	items := make([]OrderItem, len(lines))
	priced := make([]pricing.Line, len(lines))
	for i, line := range lines {
		priced[i] = pricing.Line{UnitPrice: line.UnitPrice, Quantity: line.Quantity}
		items[i] = OrderItem{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: priced[i].Subtotal(),
			Status:     OrderItemStatusPending,
			UpdatedAt:  input.Now,
		}
	}

	total := pricing.CalculateTotalAmount(priced)
	if input.Discount.GreaterThan(total) {
		return Order{}, ErrDiscountExceedsTotal
	}
	amounts := pricing.NewAmounts(total, input.Discount, input.Policy.Fee(total))
	payment := NewPaymentInfo(input.PaymentMethod, amounts.Final())

	delivery := input.Delivery
	delivery.TrackingNumber = ""
	delivery.DeliveredAt = nil

	return Order{
		OrderNumber:   input.OrderNumber,
		UserID:        cart.UserID,
		Status:        OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		Amounts:       amounts,
		Delivery:      delivery,
		Payment:       &payment,
		Items:         items,
		CreatedAt:     input.Now,
		UpdatedAt:     input.Now,
	}, nil
}

// NewOrderNumber derives an order number from the checkout time and a
// random suffix
func NewOrderNumber(now time.Time, suffix string) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102150405"), strings.ToUpper(suffix))
}

// CanCancel reports whether the order is PENDING, CONFIRMED or PREPARING
func (o Order) CanCancel() bool {
	return slices.Contains(cancellableStatuses, o.Status)
}

// CanRefund reports whether the order is SHIPPED or DELIVERED
func (o Order) CanRefund() bool {
	return slices.Contains(refundableStatuses, o.Status)
}

// CalculateStatus derives the order status from its item statuses.
// Rules are checked in order and the first match wins:
//  1. no items: PENDING
//  2. every item DELIVERED: DELIVERED
//  3. any item SHIPPED: SHIPPED
//  4. any item PREPARING: PREPARING
//  5. every item CANCELLED: CANCELLED
//  6. otherwise CONFIRMED
func (o Order) CalculateStatus() OrderStatus {
	if len(o.Items) == 0 {
		return OrderStatusPending
	}
	if o.allItems(OrderItemStatusDelivered) {
		return OrderStatusDelivered
	}
	if o.anyItem(OrderItemStatusShipped) {
		return OrderStatusShipped
	}
	if o.anyItem(OrderItemStatusPreparing) {
		return OrderStatusPreparing
	}
	if o.allItems(OrderItemStatusCancelled) {
		return OrderStatusCancelled
	}
	return OrderStatusConfirmed
}

// RecalculateStatus sets the status derived from the items. It is an
// internal recompute and records no history.
func (o Order) RecalculateStatus(now time.Time) Order {
	next := o.clone()
	if derived := next.CalculateStatus(); derived != next.Status {
		next.Status = derived
		next.UpdatedAt = now
	}
	return next
}

// ChangeStatus performs an explicit business transition and appends one
// history record. Cancellation has its own operation.
func (o Order) ChangeStatus(to OrderStatus, reason, memo string, now time.Time) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, ErrInvalidStatus
	}
	if to == OrderStatusCancelled {
		return Transition{}, ErrCancelViaCancel
	}
	next, record, err := o.clone().changeStatus(to, reason, memo, now)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Order: next, Recorded: []StatusHistory{record}}, nil
}

func (o Order) changeStatus(to OrderStatus, reason, memo string, now time.Time) (Order, StatusHistory, error) {
	if !o.Status.CanTransitionTo(to) {
		return o, StatusHistory{}, NewIllegalTransition(o.Status, to)
	}

	record := StatusHistory{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   to,
		Reason:     strings.TrimSpace(reason),
		Memo:       strings.TrimSpace(memo),
		CreatedAt:  now,
	}
	o.History = append(o.History, record)
	o.Status = to
	o.UpdatedAt = now
	return o, record, nil
}

// Cancel cancels every item, moves the order to CANCELLED with one history
// record and cancels the payment. Cancelling an already cancelled order is
// an error.
func (o Order) Cancel(reason string, now time.Time) (Transition, error) {
	if !o.CanCancel() {
		return Transition{}, NewNotCancellable(o.Status)
	}

	next := o.clone()
	for i := range next.Items {
		next.Items[i].Status = OrderItemStatusCancelled
		next.Items[i].UpdatedAt = now
	}

	next, record, err := next.changeStatus(OrderStatusCancelled, reason, "", now)
	if err != nil {
		return Transition{}, err
	}

	if next.Payment != nil {
		cancelled := next.Payment.MarkAsCancelled(strings.TrimSpace(reason), now)
		next.Payment = &cancelled
	}

	return Transition{Order: next, Recorded: []StatusHistory{record}}, nil
}

// MarkAsDelivered records the tracking number and delivery time and moves
// the order to DELIVERED
func (o Order) MarkAsDelivered(trackingNumber string, now time.Time) (Transition, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Transition{}, ErrTrackingNumberRequired
	}

	next := o.clone()
	next.Delivery.TrackingNumber = trackingNumber
	next.Delivery.DeliveredAt = timePtr(now)

	next, record, err := next.changeStatus(OrderStatusDelivered, deliveredReason, trackingNumber, now)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Order: next, Recorded: []StatusHistory{record}}, nil
}

// UpdateItemStatus changes one line's fulfillment status and re-derives the
// order status from all lines. A derived CANCELLED or DELIVERED goes through
// the history-recording path like Cancel and MarkAsDelivered; any other
// derived status must be the current one or an allowed transition from it.
func (o Order) UpdateItemStatus(itemID uint, status OrderItemStatus, now time.Time) (Transition, error) {
	if !status.IsValid() {
		return Transition{}, ErrInvalidItemStatus
	}
	if o.Status.IsTerminal() {
		return Transition{}, NewOrderFinished(o.Status)
	}
	idx := slices.IndexFunc(o.Items, func(item OrderItem) bool { return item.ID == itemID })
	if itemID == 0 || idx < 0 {
		return Transition{}, NewOrderItemNotFound(itemID)
	}

	next := o.clone()
	next.Items[idx].Status = status
	next.Items[idx].UpdatedAt = now
	next.UpdatedAt = now

	switch derived := next.CalculateStatus(); {
	case derived == o.Status:
		return Transition{Order: next}, nil
	case derived == OrderStatusCancelled:
		return next.Cancel(itemsCancelledReason, now)
	case derived == OrderStatusDelivered:
		next.Delivery.DeliveredAt = timePtr(now)
		delivered, record, err := next.changeStatus(OrderStatusDelivered, itemsDeliveredReason, "", now)
		if err != nil {
			return Transition{}, err
		}
		return Transition{Order: delivered, Recorded: []StatusHistory{record}}, nil
	case !o.Status.CanTransitionTo(derived):
		return Transition{}, NewIllegalTransition(o.Status, derived)
	}
	return Transition{Order: next.RecalculateStatus(now)}, nil
}

// WithDiscount replaces the discount; the final amount follows
func (o Order) WithDiscount(discount decimal.Decimal, now time.Time) (Order, error) {
	if discount.IsNegative() {
		return o, ErrNegativeAmount
	}
	if discount.GreaterThan(o.Amounts.Total()) {
		return o, ErrDiscountExceedsTotal
	}
	if o.Status.IsTerminal() {
		return o, NewOrderFinished(o.Status)
	}
	next := o.clone()
	next.Amounts = next.Amounts.WithDiscount(discount)
	return next.amountsChanged(now), nil
}

// WithDeliveryFee replaces the delivery fee; the final amount follows
func (o Order) WithDeliveryFee(fee decimal.Decimal, now time.Time) (Order, error) {
	if fee.IsNegative() {
		return o, ErrNegativeAmount
	}
	if o.Status.IsTerminal() {
		return o, NewOrderFinished(o.Status)
	}
	next := o.clone()
	next.Amounts = next.Amounts.WithDeliveryFee(fee)
	return next.amountsChanged(now), nil
}

// amountsChanged keeps an unsettled payment's amount equal to the final amount
func (o Order) amountsChanged(now time.Time) Order {
	if o.Payment != nil && !o.Payment.IsApproved() {
		o.Payment.Amount = o.Amounts.Final()
	}
	o.UpdatedAt = now
	return o
}

// ApprovePayment applies the provider's approval. A PENDING order becomes
// CONFIRMED through the history-recording path.
func (o Order) ApprovePayment(payload ProviderPayload, now time.Time) (Transition, error) {
	if payload.PaymentKey == "" {
		return Transition{}, ErrPaymentKeyRequired
	}
	next := o.withPayment(func(p PaymentInfo) PaymentInfo { return p.Approve(payload, now) }, now)
	return next.confirmIfPending(now)
}

// MarkPaymentCancelled records a provider-side cancellation
func (o Order) MarkPaymentCancelled(reason string, now time.Time) Transition {
	next := o.withPayment(func(p PaymentInfo) PaymentInfo { return p.MarkAsCancelled(reason, now) }, now)
	return Transition{Order: next}
}

// MarkPaymentRefunded records a refund; only SHIPPED or DELIVERED orders
// can be refunded
func (o Order) MarkPaymentRefunded(now time.Time) (Transition, error) {
	if !o.CanRefund() {
		return Transition{}, NewNotRefundable(o.Status)
	}
	next := o.withPayment(func(p PaymentInfo) PaymentInfo { return p.MarkAsRefunded(now) }, now)
	return Transition{Order: next}, nil
}

// MarkPaymentFailed records an aborted payment
func (o Order) MarkPaymentFailed(now time.Time) Transition {
	next := o.withPayment(func(p PaymentInfo) PaymentInfo { return p.MarkAsFailed() }, now)
	return Transition{Order: next}
}

// ReconcilePayment applies any provider push, dispatching on its status.
// A refund goes through MarkPaymentRefunded and its shipping gate.
func (o Order) ReconcilePayment(payload ProviderPayload, now time.Time) (Transition, error) {
	if err := payload.Validate(); err != nil {
		return Transition{}, err
	}
	if payload.Refunded {
		return o.MarkPaymentRefunded(now)
	}
	switch payload.Status {
	case PaymentStatusDone:
		return o.ApprovePayment(payload, now)
	case PaymentStatusAborted:
		return o.MarkPaymentFailed(now), nil
	}

	current := o.paymentOrNew()
	applied, err := current.Apply(payload, now)
	if err != nil {
		return Transition{}, err
	}
	next := o.clone()
	next.Payment = &applied
	next.UpdatedAt = now
	return Transition{Order: next}, nil
}

func (o Order) confirmIfPending(now time.Time) (Transition, error) {
	if o.Status != OrderStatusPending {
		return Transition{Order: o}, nil
	}
	next, record, err := o.changeStatus(OrderStatusConfirmed, paymentApprovedReason, "", now)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Order: next, Recorded: []StatusHistory{record}}, nil
}

func (o Order) withPayment(apply func(PaymentInfo) PaymentInfo, now time.Time) Order {
	next := o.clone()
	updated := apply(next.paymentOrNew())
	next.Payment = &updated
	next.UpdatedAt = now
	return next
}

func (o Order) paymentOrNew() PaymentInfo {
	if o.Payment != nil {
		return *o.Payment
	}
	return NewPaymentInfo(o.PaymentMethod, o.Amounts.Final())
}

// NewHistory returns the records not yet persisted
func (o Order) NewHistory() []StatusHistory {
	var out []StatusHistory
	for _, h := range o.History {
		if h.IsNew() {
			out = append(out, h)
		}
	}
	return out
}

func (o Order) allItems(status OrderItemStatus) bool {
	for _, item := range o.Items {
		if item.Status != status {
			return false
		}
	}
	return true
}

func (o Order) anyItem(status OrderItemStatus) bool {
	return slices.ContainsFunc(o.Items, func(item OrderItem) bool { return item.Status == status })
}

func (o Order) clone() Order {
	o.Items = slices.Clone(o.Items)
	o.History = slices.Clone(o.History)
	o.Payment = o.Payment.clone()
	o.Delivery.DeliveredAt = clonePtr(o.Delivery.DeliveredAt)
	return o
}
