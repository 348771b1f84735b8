package screens

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/media"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentsScreen(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	pid := f.post(t, bob, "sunset")
	f.comment(t, pid, bob, "first")
	f.signIn(t, ann)

	s, err := OpenComments(f.ctx, f.deps, pid)
	require.NoError(t, err)
	defer s.Close()

	st := eventually(t, s, func(st CommentsState) bool { return !st.Loading && len(st.Comments) == 1 })
	assert.True(t, st.Exists)
	assert.Equal(t, "sunset", st.Post.Caption)
	assert.False(t, st.Comments[0].Mine)

	f.clock.Advance(1)
	res, err := s.Do(f.ctx, "comment", params(t, textParams{Text: "  nice  "}))
	require.NoError(t, err)
	assert.Equal(t, "nice", res.(models.Comment).Text)

	st = eventually(t, s, func(st CommentsState) bool { return len(st.Comments) == 2 })
	assert.Equal(t, "first", st.Comments[0].Text)
	assert.Equal(t, "nice", st.Comments[1].Text)
	assert.True(t, st.Comments[1].Mine)

	ns, err := f.store.GetAll(f.ctx, f.deps.Notifications.InboxQuery(bob.UID))
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotificationComment, models.NotificationFromDocument(ns[0]).Type)

	_, err = s.Do(f.ctx, "comment", params(t, textParams{Text: "   "}))
	assert.True(t, apperrors.IsValidation(err))

	res, err = s.Do(f.ctx, "like", nil)
	require.NoError(t, err)
	assert.True(t, res.(mutations.LikeState).Liked)
}

func TestUserProfileFollowAndMessage(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	f.post(t, bob, "one")
	f.signIn(t, ann)

	s, err := OpenUserProfile(f.ctx, f.deps, bob.UID)
	require.NoError(t, err)
	defer s.Close()

	st := eventually(t, s, func(st ProfileState) bool { return !st.Loading })
	assert.Equal(t, "bob", st.Handle)
	assert.Equal(t, 1, st.PostCount)
	assert.False(t, st.IsMe)
	assert.False(t, st.Following)

	res, err := s.Do(f.ctx, "follow", nil)
	require.NoError(t, err)
	assert.Equal(t, mutations.FollowState{Following: true, Followers: 1}, res)
	st = eventually(t, s, func(st ProfileState) bool { return len(st.User.Followers) == 1 })
	assert.True(t, st.Following)
	assert.Equal(t, 1, st.Followers)

	me, _, err := f.deps.Users.GetUser(f.ctx, ann.UID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.UID}, me.Following)

	first, err := s.Do(f.ctx, "message", nil)
	require.NoError(t, err)
	second, err := s.Do(f.ctx, "message", nil)
	require.NoError(t, err)
	chat := first.(RouteResult).Params.(navigation.ChatRoute)
	assert.Equal(t, bob.UID, chat.OtherUserID)
	assert.Equal(t, chat, second.(RouteResult).Params)

	f.post(t, bob, "two")
	_, err = s.Do(f.ctx, "refresh", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.State().(ProfileState).PostCount)
}

func TestUserProfileRejectsSelfFollow(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	s, err := OpenUserProfile(f.ctx, f.deps, ann.UID)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.State().(ProfileState).IsMe)
	_, err = s.Do(f.ctx, "follow", nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestChatAndMessages(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	f.signIn(t, ann)

	c, err := f.deps.Mutator.OpenConversation(f.ctx, models.User{ID: bob.UID, Username: "bob"})
	require.NoError(t, err)

	inbox, err := OpenMessages(f.ctx, f.deps)
	require.NoError(t, err)
	defer inbox.Close()

	chat, err := OpenChat(f.ctx, f.deps, navigation.ChatRoute{ConversationID: c.ID, OtherUserID: bob.UID})
	require.NoError(t, err)
	defer chat.Close()
	assert.Equal(t, "bob", chat.State().(ChatState).Name)

	_, err = chat.Do(f.ctx, "send", params(t, textParams{Text: "hi bob"}))
	require.NoError(t, err)

	cs := eventually(t, chat, func(st ChatState) bool { return len(st.Messages) == 1 })
	assert.True(t, cs.Messages[0].Mine)
	assert.Equal(t, "hi bob", cs.Messages[0].Text)

	ms := eventually(t, inbox, func(st MessagesState) bool {
		return len(st.Conversations) == 1 && st.Conversations[0].LastMessage == "hi bob"
	})
	assert.Equal(t, bob.UID, ms.Conversations[0].OtherUserID)
	assert.Equal(t, "bob", ms.Conversations[0].Other.Username)

	res, err := inbox.Do(f.ctx, "open", params(t, map[string]string{"conversation_id": c.ID}))
	require.NoError(t, err)
	assert.Equal(t, navigation.ChatRoute{ConversationID: c.ID, OtherUserID: bob.UID}, res.(RouteResult).Params)

	_, err = chat.Do(f.ctx, "send", params(t, textParams{Text: " "}))
	assert.True(t, apperrors.IsValidation(err))
}

func TestChatForbidsOutsiders(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	cat := f.account(t, "cat@x.io", "cat")

	id, err := f.deps.Conversations.CreateConversation(f.ctx,
		models.NewConversationData(bob.UID, models.UserSnapshot{Username: "bob"}, cat.UID, models.UserSnapshot{Username: "cat"}))
	require.NoError(t, err)

	f.signIn(t, ann)
	_, err = OpenChat(f.ctx, f.deps, navigation.ChatRoute{ConversationID: id, OtherUserID: bob.UID})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestChatRejectsUnknownConversation(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	cat := f.account(t, "cat@x.io", "cat")
	f.signIn(t, ann)

	_, err := OpenChat(f.ctx, f.deps, navigation.ChatRoute{ConversationID: "made-up", OtherUserID: bob.UID})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "This conversation is no longer available", apperrors.GetMessage(err))

	c, err := f.deps.Mutator.OpenConversation(f.ctx, models.User{ID: bob.UID, Username: "bob"})
	require.NoError(t, err)
	_, err = OpenChat(f.ctx, f.deps, navigation.ChatRoute{ConversationID: c.ID, OtherUserID: cat.UID})
	assert.True(t, apperrors.IsValidation(err))
}

func TestNotificationsOpenAndMarkAll(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	pid := f.post(t, ann, "mine")

	like, err := f.deps.Notifications.CreateNotification(f.ctx, models.Notification{
		Type: models.NotificationLike, FromUserID: bob.UID, FromUsername: "bob", ToUserID: ann.UID, PostID: pid,
	})
	require.NoError(t, err)
	f.clock.Advance(1)
	follow, err := f.deps.Notifications.CreateNotification(f.ctx, models.Notification{
		Type: models.NotificationFollow, FromUserID: bob.UID, FromUsername: "bob", ToUserID: ann.UID,
	})
	require.NoError(t, err)
	f.signIn(t, ann)

	s, err := OpenNotifications(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()

	st := eventually(t, s, func(st NotificationsState) bool { return len(st.Notifications) == 2 })
	assert.Equal(t, 2, st.Unread)
	assert.Equal(t, follow, st.Notifications[0].ID)
	assert.Equal(t, "started following you.", st.Notifications[0].Text)

	res, err := s.Do(f.ctx, "open", params(t, map[string]string{"id": like}))
	require.NoError(t, err)
	assert.Equal(t, navigation.CommentsRoute{PostID: pid}, res.(RouteResult).Params)
	eventually(t, s, func(st NotificationsState) bool { return st.Unread == 1 })

	res, err = s.Do(f.ctx, "open", params(t, map[string]string{"id": follow}))
	require.NoError(t, err)
	assert.Equal(t, navigation.UserProfileRoute{UserID: bob.UID}, res.(RouteResult).Params)

	_, err = s.Do(f.ctx, "mark_all_read", nil)
	require.NoError(t, err)
	eventually(t, s, func(st NotificationsState) bool { return st.Unread == 0 })
}

func TestFollowersListSkipsMissingUsers(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	require.NoError(t, f.store.Update(f.ctx, repositories.UserPath(bob.UID),
		platform.Update{Field: models.FieldFollowers, Value: platform.ArrayUnion(ann.UID, "ghost")}))
	f.signIn(t, ann)

	s, err := OpenFollowersList(f.ctx, f.deps, navigation.FollowersListRoute{UserID: bob.UID, Type: navigation.ListFollowers})
	require.NoError(t, err)
	defer s.Close()

	st := s.State().(FollowersListState)
	require.Len(t, st.Users, 1)
	assert.Equal(t, ann.UID, st.Users[0].ID)

	following, err := OpenFollowersList(f.ctx, f.deps, navigation.FollowersListRoute{UserID: bob.UID, Type: navigation.ListFollowing})
	require.NoError(t, err)
	defer following.Close()
	assert.Empty(t, following.State().(FollowersListState).Users)
}

func TestSettingsPostsAndSaved(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	mine := f.post(t, ann, "mine")
	theirs := f.post(t, bob, "theirs")
	require.NoError(t, f.store.Update(f.ctx, repositories.UserPath(ann.UID),
		platform.Update{Field: models.FieldSavedPosts, Value: platform.ArrayUnion(theirs, "deleted")}))
	f.signIn(t, ann)

	s, err := OpenSettings(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()

	st := s.State().(SettingsState)
	require.Len(t, st.Posts, 1)
	require.Len(t, st.SavedPosts, 1)
	assert.Equal(t, theirs, st.SavedPosts[0].ID)

	res, err := s.Do(f.ctx, "edit_caption", params(t, map[string]string{"post_id": mine, "caption": "  new  "}))
	require.NoError(t, err)
	assert.Equal(t, "new", res.(models.Post).Caption)

	_, err = s.Do(f.ctx, "delete_post", params(t, postParams{PostID: theirs}))
	assert.True(t, apperrors.IsForbidden(err))

	_, err = s.Do(f.ctx, "delete_post", params(t, postParams{PostID: mine}))
	require.NoError(t, err)
	assert.Empty(t, s.State().(SettingsState).Posts)
	_, ok, err := f.deps.Posts.GetPost(f.ctx, mine)
	require.NoError(t, err)
	assert.False(t, ok)

	res, err = s.Do(f.ctx, "change_photo", params(t, pickParams{Name: "cat.png"}))
	require.NoError(t, err)
	assert.NotEmpty(t, res.(platform.Principal).PhotoURL)
	assert.True(t, f.objects.Exists("profilePictures/"+ann.UID+".jpg"))

	_, err = s.Do(f.ctx, "logout", nil)
	require.NoError(t, err)
	_, signedIn := f.session.Current()
	assert.False(t, signedIn)
}

func TestSearchScreen(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.account(t, "bob@x.io", "bob")
	f.post(t, ann, "one")
	f.post(t, ann, "two")
	f.signIn(t, ann)

	s, err := OpenSearch(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()

	st := s.State().(SearchState)
	assert.Len(t, st.Recent, 2)
	assert.Equal(t, ann.UID, st.Recent[0].UserID)

	res, err := s.Do(f.ctx, "search", params(t, textParams{Text: "BO"}))
	require.NoError(t, err)
	found := res.(SearchState)
	assert.True(t, found.Searching)
	require.Len(t, found.Results, 1)
	assert.Equal(t, "bob", found.Results[0].Username)

	res, err = s.Do(f.ctx, "search", params(t, textParams{Text: ""}))
	require.NoError(t, err)
	assert.False(t, res.(SearchState).Searching)
	assert.Empty(t, res.(SearchState).Results)
}

func TestCreateStoryPickAndShare(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	s, err := OpenCreateStory(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Do(f.ctx, "share", nil)
	assert.True(t, apperrors.IsValidation(err))
	_, err = s.Do(f.ctx, "pick", params(t, pickParams{Name: "missing.png"}))
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.Do(f.ctx, "pick", params(t, pickParams{Name: "cat.png"}))
	require.NoError(t, err)
	assert.Equal(t, "cat.png", s.State().(CreateStoryState).Picked)

	res, err := s.Do(f.ctx, "share", nil)
	require.NoError(t, err)
	story := res.(models.Story)
	assert.Equal(t, ann.UID, story.UserID)
	assert.NotEmpty(t, story.Image)

	st := s.State().(CreateStoryState)
	assert.Empty(t, st.Picked)
	require.NotNil(t, st.Shared)
	assert.Equal(t, story.ID, st.Shared.ID)

	_, ok, err := f.deps.Stories.GetStory(f.ctx, story.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateStoryCapture(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	t.Run("camera permission denied", func(t *testing.T) {
		s, err := OpenCreateStory(f.ctx, f.deps)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Do(f.ctx, "capture", nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "Permission to access your camera is required", apperrors.GetMessage(err))
		assert.Empty(t, s.State().(CreateStoryState).Picked)
	})

	t.Run("captured photo is shared", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, media.CameraDir), 0o755))
		deps := f.deps
		deps.Media = media.NewLibrary(dir)

		s, err := OpenCreateStory(f.ctx, deps)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Do(f.ctx, "capture", nil)
		assert.Equal(t, "Take a photo first", apperrors.GetMessage(err))

		require.NoError(t, os.WriteFile(filepath.Join(dir, media.CameraDir, "shot.png"), pngBytes, 0o644))
		res, err := s.Do(f.ctx, "capture", nil)
		require.NoError(t, err)
		assert.Equal(t, "shot.png", res.(CreateStoryState).Picked)

		res, err = s.Do(f.ctx, "share", nil)
		require.NoError(t, err)
		assert.Equal(t, ann.UID, res.(models.Story).UserID)
	})
}

func TestEditProfileSave(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	s, err := OpenEditProfile(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "ann", s.State().(EditProfileState).Username)

	_, err = s.Do(f.ctx, "save", params(t, models.UpdateProfileRequest{DisplayName: "   "}))
	assert.True(t, apperrors.IsValidation(err))

	res, err := s.Do(f.ctx, "save", params(t, models.UpdateProfileRequest{DisplayName: "Ann B", Bio: "hello"}))
	require.NoError(t, err)
	st := res.(EditProfileState)
	assert.True(t, st.Saved)
	assert.Equal(t, "Ann B", st.Username)

	u, _, err := f.deps.Users.GetUser(f.ctx, ann.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.DisplayName)
	assert.Equal(t, "hello", u.Bio)

	p, _ := f.session.Current()
	assert.Equal(t, "Ann B", p.DisplayName)
}

func TestEditProfileStoresTrimmedFields(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	s, err := OpenEditProfile(f.ctx, f.deps)
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Do(f.ctx, "save", params(t, models.UpdateProfileRequest{DisplayName: " Ann B ", Username: "  annb ", Bio: "  hello there \n"}))
	require.NoError(t, err)
	st := res.(EditProfileState)
	assert.Equal(t, "annb", st.Username)
	assert.Equal(t, "hello there", st.Bio)
	assert.Equal(t, st, s.State())

	u, _, err := f.deps.Users.GetUser(f.ctx, ann.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.DisplayName)
	assert.Equal(t, "annb", u.Username)
	assert.Equal(t, "hello there", u.Bio)
}
