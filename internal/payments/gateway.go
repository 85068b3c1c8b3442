// Package payments is the boundary to the payment provider that actually
// moves escrowed funds.
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Gateway holds funds for a task and later pays them out or returns them.
// Settling takes the persisted hold so any instance can settle it, and
// repeating a settlement that already happened with the same outcome is a no-op.
type Gateway interface {
	Hold(ctx context.Context, taskID, payerID string, amount decimal.Decimal) (string, error)
	Release(ctx context.Context, h HoldRef, payeeID string) error
	Refund(ctx context.Context, h HoldRef, payerID string) error
}

// HoldRef is a hold as recorded on the escrow payment.
type HoldRef struct {
	Ref     string
	TaskID  string
	PayerID string
	Amount  decimal.Decimal
}

var (
	ErrUnknownHold = errors.New("unknown hold reference")
	ErrSettled     = errors.New("hold already settled")
)

type holdState int

const (
	holdActive holdState = iota
	holdReleased
	holdRefunded
)

type hold struct {
	taskID  string
	payerID string
	amount  decimal.Decimal
	state   holdState
	settled string
}

// Ledger is an in-process Gateway that records fund movements. It stands in
// for a real provider and keeps the same hold/settle contract.
type Ledger struct {
	mu    sync.Mutex
	holds map[string]*hold
	log   *logrus.Entry
}

func NewLedger(log *logrus.Entry) *Ledger {
	return &Ledger{holds: make(map[string]*hold), log: log}
}

func (l *Ledger) Hold(_ context.Context, taskID, payerID string, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("hold amount must be positive, got %s", amount)
	}
	ref := "hold_" + uuid.NewString()

	l.mu.Lock()
	l.holds[ref] = &hold{taskID: taskID, payerID: payerID, amount: amount}
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{"ref": ref, "task_id": taskID, "payer_id": payerID, "amount": amount.StringFixed(2)}).
		Info("funds held")
	return ref, nil
}

func (l *Ledger) Release(_ context.Context, ref HoldRef, payeeID string) error {
	h, moved, err := l.settle(ref, holdReleased, payeeID)
	if err != nil || !moved {
		return err
	}
	l.log.WithFields(logrus.Fields{"ref": ref.Ref, "task_id": h.taskID, "payee_id": payeeID, "amount": h.amount.StringFixed(2)}).
		Info("funds released")
	return nil
}

func (l *Ledger) Refund(_ context.Context, ref HoldRef, payerID string) error {
	h, moved, err := l.settle(ref, holdRefunded, payerID)
	if err != nil || !moved {
		return err
	}
	l.log.WithFields(logrus.Fields{"ref": ref.Ref, "task_id": h.taskID, "payer_id": payerID, "amount": h.amount.StringFixed(2)}).
		Info("funds refunded")
	return nil
}

// settle moves an active hold to state to. A hold this process has not seen
// is adopted from ref. moved is false when the same settlement already
// happened; a different earlier settlement is ErrSettled.
func (l *Ledger) settle(ref HoldRef, to holdState, party string) (hold, bool, error) {
	if ref.Ref == "" {
		return hold{}, false, fmt.Errorf("%w: empty reference", ErrUnknownHold)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holds[ref.Ref]
	if !ok {
		h = &hold{taskID: ref.TaskID, payerID: ref.PayerID, amount: ref.Amount}
		l.holds[ref.Ref] = h
	}
	if h.state != holdActive {
		if h.state == to && h.settled == party {
			return *h, false, nil
		}
		return hold{}, false, fmt.Errorf("%w: %s", ErrSettled, ref.Ref)
	}
	h.state = to
	h.settled = party
	return *h, true, nil
}

// Restore re-registers an active hold known from persisted escrow state,
// so holds survive a process restart.
func (l *Ledger) Restore(ref, taskID, payerID string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.holds[ref]; ok {
		return
	}
	l.holds[ref] = &hold{taskID: taskID, payerID: payerID, amount: amount}
}

// Balance returns the total still held for payerID.
func (l *Ledger) Balance(payerID string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, h := range l.holds {
		if h.payerID == payerID && h.state == holdActive {
			total = total.Add(h.amount)
		}
	}
	return total
}

var _ Gateway = (*Ledger)(nil)
