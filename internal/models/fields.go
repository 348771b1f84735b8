package models

import (
	"strings"
	"time"
)

// Collections
const (
	CollectionUsers         = "users"
	CollectionPosts         = "posts"
	CollectionComments      = "comments"
	CollectionStories       = "stories"
	CollectionConversations = "conversations"
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
)

// Document field names
const (
	FieldEmail           = "email"
	FieldUsername        = "username"
	FieldDisplayName     = "displayName"
	FieldPhotoURL        = "photoUrl"
	FieldBio             = "bio"
	FieldFollowers       = "followers"
	FieldFollowing       = "following"
	FieldSavedPosts      = "savedPosts"
	FieldCreatedAt       = "createdAt"
	FieldUserRef         = "userRef"
	FieldUser            = "user"
	FieldImages          = "images"
	FieldCaption         = "caption"
	FieldLikes           = "likes"
	FieldComment         = "comment"
	FieldUserID          = "userId"
	FieldName            = "name"
	FieldImage           = "image"
	FieldUserPhoto       = "userPhoto"
	FieldParticipants    = "participants"
	FieldParticipantData = "participantData"
	FieldLastMessage     = "lastMessage"
	FieldLastMessageTime = "lastMessageTime"
	FieldUnreadCount     = "unreadCount"
	FieldText            = "text"
	FieldSenderID        = "senderId"
	FieldTimestamp       = "timestamp"
	FieldType            = "type"
	FieldFromUserID      = "fromUserId"
	FieldFromUsername    = "fromUsername"
	FieldFromUserPhoto   = "fromUserPhoto"
	FieldToUserID        = "toUserId"
	FieldPostID          = "postId"
	FieldPostImage       = "postImage"
	FieldCommentText     = "commentText"
	FieldRead            = "read"
)

// The helpers below read loosely typed document data. Missing or mistyped fields yield zero values.

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func timeField(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

func boolField(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func mapField(data map[string]any, key string) map[string]any {
	m, _ := data[key].(map[string]any)
	return m
}

// EmailPrefix returns the part of an email address before the @.
func EmailPrefix(email string) string {
	prefix, _, _ := strings.Cut(email, "@")
	return prefix
}

// FirstNonEmpty returns the first non-blank value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
