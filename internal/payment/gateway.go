package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var ErrDeclined = errors.New("payment declined")

type ChargeStatus string

const (
	ChargeStatusSuccess ChargeStatus = "SUCCESS"
	ChargeStatusFailed  ChargeStatus = "FAILED"
)

type Refusal string

const (
	RefusalNone             Refusal = ""
	RefusalInsufficientFund Refusal = "insufficient_funds"
	RefusalCardExpired      Refusal = "card_expired"
	RefusalCardDeclined     Refusal = "card_declined"
	RefusalFraudSuspected   Refusal = "fraud_suspected"
	RefusalLimitExceeded    Refusal = "limit_exceeded"
	RefusalUnknown          Refusal = "unknown reason"
)

var knownRefusals = []Refusal{
	RefusalInsufficientFund,
	RefusalCardExpired,
	RefusalCardDeclined,
	RefusalFraudSuspected,
	RefusalLimitExceeded,
}

type ChargeRequest struct {
	OrderID    string
	Amount     float64
	CardNumber string
	CardName   string
}

type ChargeResult struct {
	Status        ChargeStatus
	TransactionID string
	Refusal       Refusal
}

// Gateway charges a card. Implementations make a single attempt and never retry.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type GetResponseStatus interface {
	GetStatus() (ChargeStatus, Refusal)
}

// RandomStatus approves roughly 95% of charges.
type RandomStatus struct{}

func (RandomStatus) GetStatus() (ChargeStatus, Refusal) {
	return calcStatus(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

func calcStatus(randomInt int) (ChargeStatus, Refusal) {
	if randomInt < 95 {
		return ChargeStatusSuccess, RefusalNone
	}
	reason := randomInt - 95
	if reason == 0 || reason > len(knownRefusals) {
		return ChargeStatusFailed, RefusalUnknown
	}
	return ChargeStatusFailed, knownRefusals[reason-1]
}

// AlwaysApprove is a status source for demos and tests.
type AlwaysApprove struct{}

func (AlwaysApprove) GetStatus() (ChargeStatus, Refusal) {
	return ChargeStatusSuccess, RefusalNone
}

// SimulatedGateway stands in for a real payment provider: it waits for delay
// and then asks status for the outcome.
type SimulatedGateway struct {
	delay  time.Duration
	status GetResponseStatus
}

func NewSimulatedGateway(delay time.Duration, status GetResponseStatus) *SimulatedGateway {
	return &SimulatedGateway{delay: delay, status: status}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ChargeResult{}, fmt.Errorf("charge interrupted: %w", ctx.Err())
		}
	}

	status, refusal := g.status.GetStatus()
	result := ChargeResult{
		Status:        status,
		TransactionID: "TXN-" + uuid.NewString(),
		Refusal:       refusal,
	}
	if status != ChargeStatusSuccess {
		return result, fmt.Errorf("%w: %s", ErrDeclined, refusal)
	}
	return result, nil
}
