package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the payment provider's own status values
type PaymentStatus string

const (
	PaymentStatusReady             PaymentStatus = "READY"
	PaymentStatusInProgress        PaymentStatus = "IN_PROGRESS"
	PaymentStatusWaitingForDeposit PaymentStatus = "WAITING_FOR_DEPOSIT"
	PaymentStatusDone              PaymentStatus = "DONE"
	PaymentStatusCanceled          PaymentStatus = "CANCELED"
	PaymentStatusPartialCanceled   PaymentStatus = "PARTIAL_CANCELED"
	PaymentStatusAborted           PaymentStatus = "ABORTED"
	PaymentStatusExpired           PaymentStatus = "EXPIRED"
)

// IsValid reports whether the status is a known provider value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusReady, PaymentStatusInProgress, PaymentStatusWaitingForDeposit, PaymentStatusDone,
		PaymentStatusCanceled, PaymentStatusPartialCanceled, PaymentStatusAborted, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodVirtualAccount PaymentMethod = "VIRTUAL_ACCOUNT"
	PaymentMethodTransfer       PaymentMethod = "TRANSFER"
	PaymentMethodMobilePhone    PaymentMethod = "MOBILE_PHONE"
	PaymentMethodEasyPay        PaymentMethod = "EASY_PAY"
)

// IsValid reports whether the method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodVirtualAccount, PaymentMethodTransfer,
		PaymentMethodMobilePhone, PaymentMethodEasyPay:
		return true
	}
	return false
}

const refundReason = "refunded"

// ProviderPayload is what the payment provider reports in a callback
type ProviderPayload struct {
	PaymentKey    string
	TransactionID string
	Method        PaymentMethod
	Amount        decimal.Decimal
	Status        PaymentStatus
	Reason        string
	// Refunded marks a CANCELED push that reverses a settled payment
	Refunded bool
}

// Validate checks the status and that only a CANCELED push is a refund
func (p ProviderPayload) Validate() error {
	if !p.Status.IsValid() {
		return ErrInvalidPaymentStatus
	}
	if p.Refunded && p.Status != PaymentStatusCanceled {
		return ErrRefundStatus
	}
	return nil
}

// PaymentInfo is the order's copy of the provider-side payment state.
// The provider is authoritative: transitions overwrite without checking the
// prior status.
type PaymentInfo struct {
	Status        PaymentStatus
	Method        PaymentMethod
	Amount        decimal.Decimal
	PaymentKey    string
	TransactionID string
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string
	// RefundedAt separates a refund from a plain cancellation; the provider
	// reports both as CANCELED.
	RefundedAt *time.Time
}

// NewPaymentInfo creates a payment awaiting the provider
func NewPaymentInfo(method PaymentMethod, amount decimal.Decimal) PaymentInfo {
	return PaymentInfo{
		Status: PaymentStatusReady,
		Method: method,
		Amount: amount,
	}
}

// Approve records a successful payment and stamps approvedAt and paidAt
func (p PaymentInfo) Approve(payload ProviderPayload, now time.Time) PaymentInfo {
	p.PaymentKey = payload.PaymentKey
	p.TransactionID = payload.TransactionID
	if payload.Method != "" {
		p.Method = payload.Method
	}
	if !payload.Amount.IsZero() {
		p.Amount = payload.Amount
	}
	p.Status = PaymentStatusDone
	p.ApprovedAt = timePtr(now)
	p.PaidAt = timePtr(now)
	return p
}

// MarkAsCancelled moves the payment to CANCELED with a reason
func (p PaymentInfo) MarkAsCancelled(reason string, now time.Time) PaymentInfo {
	p.Status = PaymentStatusCanceled
	p.CancelledAt = timePtr(now)
	p.CancelReason = reason
	return p
}

// MarkAsRefunded maps a refund onto CANCELED and records when it happened
func (p PaymentInfo) MarkAsRefunded(now time.Time) PaymentInfo {
	p = p.MarkAsCancelled(refundReason, now)
	p.RefundedAt = timePtr(now)
	return p
}

// MarkAsFailed moves the payment to ABORTED
func (p PaymentInfo) MarkAsFailed() PaymentInfo {
	p.Status = PaymentStatusAborted
	return p
}

// Apply dispatches a provider push to the matching transition
func (p PaymentInfo) Apply(payload ProviderPayload, now time.Time) (PaymentInfo, error) {
	switch payload.Status {
	case PaymentStatusDone:
		if payload.PaymentKey == "" {
			return p, ErrPaymentKeyRequired
		}
		return p.Approve(payload, now), nil
	case PaymentStatusCanceled:
		return p.MarkAsCancelled(payload.Reason, now), nil
	case PaymentStatusAborted:
		return p.MarkAsFailed(), nil
	case PaymentStatusReady, PaymentStatusInProgress, PaymentStatusWaitingForDeposit,
		PaymentStatusPartialCanceled, PaymentStatusExpired:
		if payload.PaymentKey != "" {
			p.PaymentKey = payload.PaymentKey
		}
		p.Status = payload.Status
		return p, nil
	}
	return p, ErrInvalidPaymentStatus
}

// IsApproved is true only while the payment is DONE and was approved.
// A stale approvedAt does not count once the status has moved on.
func (p PaymentInfo) IsApproved() bool {
	return p.ApprovedAt != nil && p.Status == PaymentStatusDone
}

// IsRefunded reports whether the cancellation came from a refund
func (p PaymentInfo) IsRefunded() bool {
	return p.Status == PaymentStatusCanceled && p.RefundedAt != nil
}

func (p *PaymentInfo) clone() *PaymentInfo {
	if p == nil {
		return nil
	}
	c := *p
	c.ApprovedAt = clonePtr(p.ApprovedAt)
	c.PaidAt = clonePtr(p.PaidAt)
	c.CancelledAt = clonePtr(p.CancelledAt)
	c.RefundedAt = clonePtr(p.RefundedAt)
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
