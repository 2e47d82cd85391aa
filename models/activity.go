package models

import "time"

type ActivityAction string

const (
	ActionView     ActivityAction = "view"
	ActionCart     ActivityAction = "cart"
	ActionPurchase ActivityAction = "purchase"
)

func (a ActivityAction) Valid() bool {
	switch a {
	case ActionView, ActionCart, ActionPurchase:
		return true
	default:
		return false
	}
}

// UserActivity is one append-only row of the activity log.
type UserActivity struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	ProductID string         `json:"productId"`
	Action    ActivityAction `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
}

type LogActivityRequest struct {
	UserID    string         `json:"userId" binding:"required"`
	ProductID string         `json:"productId" binding:"required"`
	Action    ActivityAction `json:"action" binding:"required"`
}
