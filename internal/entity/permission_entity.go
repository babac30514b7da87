package entity

import "time"

type PermissionStatus string

const (
	PermissionPending  PermissionStatus = "pending"
	PermissionApproved PermissionStatus = "approved"
	PermissionDenied   PermissionStatus = "denied"
)

type PermissionDirection string

const (
	PermissionSent     PermissionDirection = "sent"
	PermissionReceived PermissionDirection = "received"
)

// PermissionRequest gates direct-chat creation when the target user
// restricts who may contact them. Approval materializes a ChatRoom.
type PermissionRequest struct {
	Id           string              `json:"id"`
	Status       PermissionStatus    `json:"status"`
	Direction    PermissionDirection `json:"direction"`
	Participants []User              `json:"participants"`
	Message      string              `json:"message,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}
