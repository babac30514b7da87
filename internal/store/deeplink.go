package store

import "ripple/internal/entity"

// Route maps a push payload to the view the app should navigate to.
// This table is user-facing navigation behavior; keep it exact.
func Route(payload entity.PushPayload) string {
	data := payload.Data
	switch entity.ParseNotificationType(data.Type) {
	case entity.NotificationMessage, entity.NotificationChatCreated,
		entity.NotificationGroupInvite, entity.NotificationGroupUpdate:
		if data.ChatRoomId != "" {
			return "/messages/" + data.ChatRoomId
		}
		return "/messages"
	case entity.NotificationLike, entity.NotificationComment, entity.NotificationShare:
		if data.PostId != "" {
			return "/post/" + data.PostId
		}
		return "/notifications"
	case entity.NotificationFollow:
		if data.SenderId != "" {
			return "/user/" + data.SenderId
		}
		return "/notifications"
	case entity.NotificationAdmin, entity.NotificationUnknown:
		return "/notifications"
	}
	return "/notifications"
}
