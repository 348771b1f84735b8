// Package mutations issues user actions against the stores. Every action works out
// the state the user should see, writes, and reports failures as coded errors.
// Nothing is rolled back: a failed follow-up write leaves the primary write in place.
package mutations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/jonboulle/clockwork"
)

// Profile field limits
const (
	MaxDisplayName = 50
	MaxUsername    = 30
	MaxBio         = 150
)

// Session is the signed-in principal as the mutator needs it
type Session interface {
	Current() (platform.Principal, bool)
	Refresh(ctx context.Context, p platform.Principal) error
}

// Deps groups what a Mutator writes to
type Deps struct {
	Session       Session
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Stories       repositories.StoryRepository
	Conversations repositories.ConversationRepository
	Notifications repositories.NotificationRepository
	Objects       platform.ObjectStore
	Credentials   platform.CredentialService
	Clock         clockwork.Clock
	Logger        logger.Logger
}

type Mutator struct {
	Deps
}

func New(deps Deps) *Mutator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	deps.Logger = deps.Logger.WithComponent("mutations")
	return &Mutator{Deps: deps}
}

func (m *Mutator) principal() (platform.Principal, error) {
	p, ok := m.Session.Current()
	if !ok {
		return platform.Principal{}, apperrors.Unauthenticated("Sign in to continue")
	}
	return p, nil
}

// senderName is how the principal appears on notifications they cause
func senderName(p platform.Principal) string {
	return models.FirstNonEmpty(p.DisplayName, models.EmailPrefix(p.Email), "Someone")
}

// snapshot is the author block copied into posts and comments
func snapshot(p platform.Principal) models.UserSnapshot {
	return models.UserSnapshot{
		Username: models.FirstNonEmpty(p.DisplayName, models.EmailPrefix(p.Email), "User"),
		PhotoURL: p.PhotoURL,
	}
}

func (m *Mutator) backend(err error, msg string, args ...any) error {
	m.Logger.Error(msg, append(args, "error", err)...)
	return apperrors.Backend(err, msg)
}

// uploadFailed passes validation errors through and reports the rest as backend failures
func (m *Mutator) uploadFailed(err error, msg string, args ...any) error {
	if apperrors.IsValidation(err) {
		return err
	}
	return m.backend(err, msg, args...)
}

func (m *Mutator) partial(err error, msg string, args ...any) error {
	m.Logger.Warn(msg, append(args, "error", err)...)
	return apperrors.Partial(err, msg)
}

// notify writes a notification unless it would target its own sender
func (m *Mutator) notify(ctx context.Context, n models.Notification) error {
	if n.ToUserID == "" || n.ToUserID == n.FromUserID {
		return nil
	}
	_, err := m.Notifications.CreateNotification(ctx, n)
	return err
}

// LikeState is the like button as the user should see it
type LikeState struct {
	Liked bool   `json:"liked"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

// ToggleLike flips the principal's like on post. liked is the state before the tap.
// Liking someone else's post also notifies its owner.
func (m *Mutator) ToggleLike(ctx context.Context, post models.Post, liked bool) (LikeState, error) {
	p, err := m.principal()
	if err != nil {
		return LikeState{}, err
	}
	count := derive.Count(post.Likes)
	member := derive.IsMember(post.Likes, p.UID)
	switch {
	case !liked && !member:
		count++
	case liked && member:
		count--
	}
	state := LikeState{Liked: !liked, Count: count, Label: derive.LikesLabel(count)}

	if err := m.Posts.SetLike(ctx, post.ID, p.UID, !liked); err != nil {
		return state, m.backend(err, "Failed to update like", "post_id", post.ID)
	}
	if liked {
		return state, nil
	}
	err = m.notify(ctx, models.Notification{
		Type:          models.NotificationLike,
		FromUserID:    p.UID,
		FromUsername:  senderName(p),
		FromUserPhoto: p.PhotoURL,
		ToUserID:      post.UserRef,
		PostID:        post.ID,
		PostImage:     post.CoverImage(),
	})
	if err != nil {
		return state, m.partial(err, "Liked, but the owner could not be notified", "post_id", post.ID)
	}
	return state, nil
}

// ToggleSave adds or removes postID from the principal's saved posts. saved is the state before the tap.
func (m *Mutator) ToggleSave(ctx context.Context, postID string, saved bool) (bool, error) {
	p, err := m.principal()
	if err != nil {
		return saved, err
	}
	if err := m.Users.SetSaved(ctx, p.UID, postID, !saved); err != nil {
		return !saved, m.backend(err, "Failed to save post", "post_id", postID)
	}
	return !saved, nil
}

// FollowState is the follow button and follower count as the user should see them
type FollowState struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

// ToggleFollow follows or unfollows target. following is the state before the tap.
// The target's followers are written first, then the principal's following.
func (m *Mutator) ToggleFollow(ctx context.Context, target models.User, following bool) (FollowState, error) {
	p, err := m.principal()
	if err != nil {
		return FollowState{}, err
	}
	if target.ID == p.UID {
		return FollowState{}, apperrors.Validation("You cannot follow yourself")
	}
	followers := derive.Count(target.Followers)
	member := derive.IsMember(target.Followers, p.UID)
	switch {
	case !following && !member:
		followers++
	case following && member:
		followers--
	}
	state := FollowState{Following: !following, Followers: followers}

	if err := m.Users.SetFollower(ctx, target.ID, p.UID, !following); err != nil {
		return state, m.backend(err, "Failed to update follow status", "user_id", target.ID)
	}
	if err := m.Users.SetFollowing(ctx, p.UID, target.ID, !following); err != nil {
		return state, m.partial(err, "Follow saved, but your following list was not updated", "user_id", target.ID)
	}
	if following {
		return state, nil
	}
	err = m.notify(ctx, models.Notification{
		Type:          models.NotificationFollow,
		FromUserID:    p.UID,
		FromUsername:  senderName(p),
		FromUserPhoto: p.PhotoURL,
		ToUserID:      target.ID,
	})
	if err != nil {
		return state, m.partial(err, "Followed, but the user could not be notified", "user_id", target.ID)
	}
	return state, nil
}

// AddComment comments on post and notifies its owner
func (m *Mutator) AddComment(ctx context.Context, post models.Post, text string) (models.Comment, error) {
	p, err := m.principal()
	if err != nil {
		return models.Comment{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, apperrors.Validation("Comment cannot be empty")
	}
	author := snapshot(p)
	comment := models.Comment{PostID: post.ID, UserRef: p.UID, Author: author, Text: text, CreatedAt: m.Clock.Now()}

	id, err := m.Comments.CreateComment(ctx, post.ID, models.NewCommentData(p.UID, author, text))
	if err != nil {
		return comment, m.backend(err, "Failed to add comment", "post_id", post.ID)
	}
	comment.ID = id

	err = m.notify(ctx, models.Notification{
		Type:          models.NotificationComment,
		FromUserID:    p.UID,
		FromUsername:  senderName(p),
		FromUserPhoto: p.PhotoURL,
		ToUserID:      post.UserRef,
		PostID:        post.ID,
		PostImage:     post.CoverImage(),
		CommentText:   text,
	})
	if err != nil {
		return comment, m.partial(err, "Commented, but the owner could not be notified", "post_id", post.ID)
	}
	return comment, nil
}

// OpenConversation returns the conversation between the principal and other, creating it on first use
func (m *Mutator) OpenConversation(ctx context.Context, other models.User) (models.Conversation, error) {
	p, err := m.principal()
	if err != nil {
		return models.Conversation{}, err
	}
	if other.ID == "" || other.ID == p.UID {
		return models.Conversation{}, apperrors.Validation("Pick someone else to message")
	}
	existing, ok, err := m.Conversations.FindBetween(ctx, p.UID, other.ID)
	if err != nil {
		return models.Conversation{}, m.backend(err, "Failed to start conversation", "user_id", other.ID)
	}
	if ok {
		return existing, nil
	}

	mine := snapshot(p)
	data := models.NewConversationData(p.UID, mine, other.ID, models.UserSnapshot{Username: other.Username, PhotoURL: other.PhotoURL})
	id, err := m.Conversations.CreateConversation(ctx, data)
	if err != nil {
		return models.Conversation{}, m.backend(err, "Failed to start conversation", "user_id", other.ID)
	}
	return models.Conversation{
		ID:           id,
		Participants: []string{p.UID, other.ID},
		ParticipantData: map[string]models.UserSnapshot{
			p.UID:    mine,
			other.ID: {Username: other.Username, PhotoURL: other.PhotoURL},
		},
		LastMessageTime: m.Clock.Now(),
	}, nil
}

// SendMessage appends a message, then stamps the conversation preview
func (m *Mutator) SendMessage(ctx context.Context, conversationID, text string) (models.Message, error) {
	p, err := m.principal()
	if err != nil {
		return models.Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apperrors.Validation("Message cannot be empty")
	}
	msg := models.Message{Text: text, SenderID: p.UID, Timestamp: m.Clock.Now()}

	id, err := m.Conversations.AddMessage(ctx, conversationID, models.NewMessageData(p.UID, text))
	if err != nil {
		return msg, m.backend(err, "Failed to send message", "conversation_id", conversationID)
	}
	msg.ID = id
	if err := m.Conversations.SetLastMessage(ctx, conversationID, text); err != nil {
		return msg, m.partial(err, "Message sent, but the conversation preview was not updated", "conversation_id", conversationID)
	}
	return msg, nil
}

// CreatePost uploads every file, then publishes the post
func (m *Mutator) CreatePost(ctx context.Context, files []platform.MediaFile, caption string) (models.Post, error) {
	p, err := m.principal()
	if err != nil {
		return models.Post{}, err
	}
	if len(files) == 0 {
		return models.Post{}, apperrors.Validation("Pick at least one image")
	}
	caption = strings.TrimSpace(caption)

	stamp := m.Clock.Now().UnixMilli()
	images := make([]string, 0, len(files))
	for i, f := range files {
		obj, err := m.upload(ctx, fmt.Sprintf("posts/%s/%d_%d.jpg", p.UID, stamp, i), f)
		if err != nil {
			return models.Post{}, m.uploadFailed(err, "Failed to upload image", "index", i)
		}
		images = append(images, obj.URL)
	}

	author := snapshot(p)
	id, err := m.Posts.CreatePost(ctx, models.NewPostData(p.UID, author, images, caption))
	if err != nil {
		return models.Post{}, m.backend(err, "Failed to publish post")
	}
	return models.Post{
		ID:        id,
		UserRef:   p.UID,
		Author:    author,
		Images:    images,
		Caption:   caption,
		Likes:     []string{},
		CreatedAt: m.Clock.Now(),
	}, nil
}

// EditCaption replaces the caption of a post the principal owns
func (m *Mutator) EditCaption(ctx context.Context, post models.Post, caption string) (models.Post, error) {
	p, err := m.principal()
	if err != nil {
		return post, err
	}
	if post.UserRef != p.UID {
		return post, apperrors.Forbidden("Only the owner can edit this post")
	}
	post.Caption = strings.TrimSpace(caption)
	if err := m.Posts.UpdateCaption(ctx, post.ID, post.Caption); err != nil {
		return post, m.backend(err, "Failed to update caption", "post_id", post.ID)
	}
	return post, nil
}

// DeletePost removes the images of a post the principal owns, then the post and its comments
func (m *Mutator) DeletePost(ctx context.Context, post models.Post) error {
	p, err := m.principal()
	if err != nil {
		return err
	}
	if post.UserRef != p.UID {
		return apperrors.Forbidden("Only the owner can delete this post")
	}
	for _, img := range post.Images {
		if err := m.Objects.Delete(ctx, img); err != nil && !errors.Is(err, platform.ErrNotFound) {
			return m.backend(err, "Failed to delete post images", "post_id", post.ID)
		}
	}
	if err := m.Posts.DeletePost(ctx, post.ID); err != nil {
		return m.backend(err, "Failed to delete post", "post_id", post.ID)
	}
	return nil
}

// CreateStory uploads file to stories/{uid}/{millis}.jpg and publishes a story pointing at it
func (m *Mutator) CreateStory(ctx context.Context, file platform.MediaFile) (models.Story, error) {
	p, err := m.principal()
	if err != nil {
		return models.Story{}, err
	}
	obj, err := m.upload(ctx, fmt.Sprintf("stories/%s/%d.jpg", p.UID, m.Clock.Now().UnixMilli()), file)
	if err != nil {
		return models.Story{}, m.uploadFailed(err, "Failed to upload story. Please try again.")
	}
	url, err := m.Objects.URL(ctx, obj.Path)
	if err != nil {
		return models.Story{}, m.backend(err, "Failed to upload story. Please try again.")
	}

	name := models.FirstNonEmpty(p.DisplayName, models.EmailPrefix(p.Email), "User")
	id, err := m.Stories.CreateStory(ctx, models.NewStoryData(p.UID, name, url, p.PhotoURL))
	if err != nil {
		return models.Story{}, m.backend(err, "Failed to upload story. Please try again.")
	}
	return models.Story{ID: id, UserID: p.UID, Name: name, Image: url, UserPhoto: p.PhotoURL, CreatedAt: m.Clock.Now()}, nil
}

// UpdateProfile validates req, renames the principal, then writes the profile document
func (m *Mutator) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (platform.Principal, error) {
	p, err := m.principal()
	if err != nil {
		return p, err
	}
	req = req.Trimmed()
	displayName, username, bio := req.DisplayName, req.Username, req.Bio
	switch {
	case displayName == "":
		return p, apperrors.Validation("Display name cannot be empty")
	case utf8.RuneCountInString(displayName) > MaxDisplayName:
		return p, apperrors.Validation(fmt.Sprintf("Display name must be at most %d characters", MaxDisplayName))
	case utf8.RuneCountInString(username) > MaxUsername:
		return p, apperrors.Validation(fmt.Sprintf("Username must be at most %d characters", MaxUsername))
	case utf8.RuneCountInString(bio) > MaxBio:
		return p, apperrors.Validation(fmt.Sprintf("Bio must be at most %d characters", MaxBio))
	}

	updated, err := m.Credentials.UpdateProfile(ctx, p.UID, platform.ProfileUpdate{DisplayName: &displayName})
	if err != nil {
		return p, m.backend(err, "Failed to update profile. Please try again.")
	}
	m.refresh(ctx, updated)
	if err := m.Users.UpdateProfile(ctx, p.UID, displayName, username, bio); err != nil {
		return updated, m.partial(err, "Name changed, but the profile was not saved")
	}
	return updated, nil
}

// ChangeProfilePhoto uploads file to profilePictures/{uid}.jpg and points the principal and profile at it
func (m *Mutator) ChangeProfilePhoto(ctx context.Context, file platform.MediaFile) (platform.Principal, error) {
	p, err := m.principal()
	if err != nil {
		return p, err
	}
	obj, err := m.upload(ctx, fmt.Sprintf("profilePictures/%s.jpg", p.UID), file)
	if err != nil {
		return p, m.uploadFailed(err, "Failed to update profile picture")
	}
	updated, err := m.Credentials.UpdateProfile(ctx, p.UID, platform.ProfileUpdate{PhotoURL: &obj.URL})
	if err != nil {
		return p, m.backend(err, "Failed to update profile picture")
	}
	m.refresh(ctx, updated)
	if err := m.Users.SetPhoto(ctx, p.UID, obj.URL); err != nil {
		return updated, m.partial(err, "Photo uploaded, but the profile was not updated")
	}
	return updated, nil
}

// MarkNotificationRead marks one of the signed-in user's notifications read
func (m *Mutator) MarkNotificationRead(ctx context.Context, id string) error {
	me, err := m.principal()
	if err != nil {
		return err
	}
	n, ok, err := m.Notifications.GetNotification(ctx, id)
	if err != nil {
		return m.backend(err, "Failed to mark notification read", "notification_id", id)
	}
	if !ok {
		return apperrors.Validation("This notification is no longer available")
	}
	if n.ToUserID != me.UID {
		return apperrors.Forbidden("You can only mark your own notifications read")
	}
	if err := m.Notifications.MarkAsRead(ctx, id); err != nil {
		return m.backend(err, "Failed to mark notification read", "notification_id", id)
	}
	return nil
}

// MarkAllNotificationsRead marks the unread ones among notifications read. Notifications addressed
// to someone else are skipped.
func (m *Mutator) MarkAllNotificationsRead(ctx context.Context, notifications []models.Notification) error {
	me, err := m.principal()
	if err != nil {
		return err
	}
	mine := make([]models.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n.ToUserID == me.UID {
			mine = append(mine, n)
		}
	}
	ids := derive.UnreadIDs(mine)
	if err := m.Notifications.MarkAllAsRead(ctx, ids); err != nil {
		return m.backend(err, "Failed to mark notifications read", "count", len(ids))
	}
	return nil
}

func (m *Mutator) upload(ctx context.Context, path string, file platform.MediaFile) (platform.Object, error) {
	if file.Open == nil {
		return platform.Object{}, apperrors.Validation("Pick an image first")
	}
	r, err := file.Open()
	if err != nil {
		return platform.Object{}, err
	}
	defer r.Close()
	contentType := file.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return m.Objects.Upload(ctx, path, r, contentType)
}

func (m *Mutator) refresh(ctx context.Context, p platform.Principal) {
	if err := m.Session.Refresh(ctx, p); err != nil {
		m.Logger.Warn("Failed to refresh session", "uid", p.UID, "error", err)
	}
}
