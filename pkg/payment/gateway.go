package payment

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"railbook/pkg/models"
)

// Transaction is the gateway's receipt for a successful charge.
type Transaction struct {
	ID          string    `json:"id"`
	AmountMinor int64     `json:"amount_minor"`
	Method      string    `json:"method"`
	ChargedAt   time.Time `json:"charged_at"`
}

// Gateway charges a card. The production system would talk to a PSP here;
// this storefront only ever runs the simulator below.
type Gateway interface {
	Charge(card models.CardDetails, amountMinor int64) (Transaction, error)
}

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	cvvRe        = regexp.MustCompile(`^\d{3,4}$`)
)

type simulated struct {
	latency time.Duration
}

// NewSimulated returns the deterministic demo gateway: valid cards are
// charged, card numbers ending in 0000 are declined.
func NewSimulated(latency time.Duration) Gateway {
	return &simulated{latency: latency}
}

func (g *simulated) Charge(card models.CardDetails, amountMinor int64) (Transaction, error) {
	if err := validate(card, amountMinor); err != nil {
		return Transaction{}, err
	}

	if g.latency > 0 {
		time.Sleep(g.latency)
	}

	if strings.HasSuffix(card.Number, "0000") {
		return Transaction{}, fmt.Errorf("%w: insufficient funds", models.ErrPaymentDeclined)
	}

	return Transaction{
		ID:          uuid.NewString(),
		AmountMinor: amountMinor,
		Method:      card.Method,
		ChargedAt:   time.Now(),
	}, nil
}

func validate(card models.CardDetails, amountMinor int64) error {
	if amountMinor <= 0 {
		return fmt.Errorf("%w: non-positive amount", models.ErrInvalidInput)
	}
	if !cardNumberRe.MatchString(card.Number) {
		return fmt.Errorf("%w: card number must be 16 digits", models.ErrInvalidInput)
	}
	if strings.TrimSpace(card.Holder) == "" {
		return fmt.Errorf("%w: missing card holder", models.ErrInvalidInput)
	}
	if !cvvRe.MatchString(card.CVV) {
		return fmt.Errorf("%w: bad cvv", models.ErrInvalidInput)
	}
	exp, err := time.Parse("01/06", card.Expiry)
	if err != nil {
		return fmt.Errorf("%w: expiry must be MM/YY", models.ErrInvalidInput)
	}
	// Valid through the end of the expiry month.
	if exp.AddDate(0, 1, 0).Before(time.Now()) {
		return fmt.Errorf("%w: card expired", models.ErrInvalidInput)
	}
	return nil
}
