package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reasons attached to budget-changed events.
const (
	ReasonPaidAmount     = "paid_amount"
	ReasonClaimCancelled = "claim_cancelled"
	ReasonExternalGift   = "external_gift"
	ReasonGoal           = "goal"
)

// BudgetChangedMessage tells the worker that the budgets of a user for one
// year may have moved. It carries no figures; the worker recomputes them.
type BudgetChangedMessage struct {
	UserID    string    `json:"user_id"`
	Year      int       `json:"year"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetChangedMessage(userID string, year int, reason string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		UserID:    userID,
		Year:      year,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetChangedMessageFromJSON decodes and validates a message body.
func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("message without user_id")
	}
	if msg.Year <= 0 {
		return nil, fmt.Errorf("message with invalid year %d", msg.Year)
	}
	return &msg, nil
}
