// Package models provides shared types for negotia run output and external
// tools. These types mirror the report JSON and the store schema and are
// stable for use by scripts consuming `negotia report --json`.
package models

import "time"

// SessionResult is the scored outcome of one concluded negotiation.
type SessionResult struct {
	SessionID   string    `json:"session_id"`
	SellerID    string    `json:"seller_id"`
	BuyerID     string    `json:"buyer_id"`
	Status      string    `json:"status"`
	SellerScore float64   `json:"seller_score"`
	BuyerScore  float64   `json:"buyer_score"`
	Gap         float64   `json:"gap"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// SwarmSummary aggregates scores across every session that reached agreement.
type SwarmSummary struct {
	RunID       string  `json:"run_id,omitempty"`
	AgreedCount int     `json:"agreed_count"`
	FailedCount int     `json:"failed_count"`
	AvgSeller   float64 `json:"avg_seller"`
	AvgBuyer    float64 `json:"avg_buyer"`
}

// TranscriptTurn is one persisted message of a session transcript.
type TranscriptTurn struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
