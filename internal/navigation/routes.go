package navigation

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

// Destination names a screen
type Destination string

const (
	Welcome       Destination = "Welcome"
	Login         Destination = "Login"
	Register      Destination = "Register"
	Main          Destination = "Main"
	Search        Destination = "Search"
	Settings      Destination = "Settings"
	Comments      Destination = "Comments"
	UserProfile   Destination = "UserProfile"
	Messages      Destination = "Messages"
	Chat          Destination = "Chat"
	Notifications Destination = "Notifications"
	CreateStory   Destination = "CreateStory"
	EditProfile   Destination = "EditProfile"
	FollowersList Destination = "FollowersList"
)

// AuthState is whether a principal is signed in
type AuthState int

const (
	Unauthenticated AuthState = iota
	Authenticated
)

func (s AuthState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

var destinations = map[Destination]AuthState{
	Welcome:       Unauthenticated,
	Login:         Unauthenticated,
	Register:      Unauthenticated,
	Main:          Authenticated,
	Search:        Authenticated,
	Settings:      Authenticated,
	Comments:      Authenticated,
	UserProfile:   Authenticated,
	Messages:      Authenticated,
	Chat:          Authenticated,
	Notifications: Authenticated,
	CreateStory:   Authenticated,
	EditProfile:   Authenticated,
	FollowersList: Authenticated,
}

// State is the auth state a destination belongs to
func (d Destination) State() (AuthState, bool) {
	s, ok := destinations[d]
	return s, ok
}

// Route is a destination plus its parameters
type Route interface {
	Destination() Destination
	Validate() error
}

type plainRoute struct {
	dest Destination
}

// To is the route to a destination that takes no parameters
func To(d Destination) Route {
	return plainRoute{dest: d}
}

func (r plainRoute) Destination() Destination { return r.dest }
func (r plainRoute) Validate() error          { return nil }

func (r plainRoute) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Destination Destination `json:"destination"`
	}{r.dest})
}

type CommentsRoute struct {
	PostID string `json:"id"`
}

func (CommentsRoute) Destination() Destination { return Comments }

func (r CommentsRoute) Validate() error {
	return checkID(Comments, "post id", r.PostID)
}

type UserProfileRoute struct {
	UserID string `json:"userId"`
}

func (UserProfileRoute) Destination() Destination { return UserProfile }

func (r UserProfileRoute) Validate() error {
	return checkID(UserProfile, "user id", r.UserID)
}

type ChatRoute struct {
	ConversationID string `json:"conversationId"`
	OtherUserID    string `json:"otherUserId"`
}

func (ChatRoute) Destination() Destination { return Chat }

func (r ChatRoute) Validate() error {
	if r.ConversationID == "" || r.OtherUserID == "" {
		return apperrors.Validation("Chat needs a conversation id and the other user's id")
	}
	if err := checkID(Chat, "conversation id", r.ConversationID); err != nil {
		return err
	}
	return checkID(Chat, "user id", r.OtherUserID)
}

// ListType picks which side of a follow graph FollowersList shows
type ListType string

const (
	ListFollowers ListType = "followers"
	ListFollowing ListType = "following"
)

type FollowersListRoute struct {
	UserID string   `json:"userId"`
	Type   ListType `json:"type"`
}

func (FollowersListRoute) Destination() Destination { return FollowersList }

func (r FollowersListRoute) Validate() error {
	if err := checkID(FollowersList, "user id", r.UserID); err != nil {
		return err
	}
	if r.Type != ListFollowers && r.Type != ListFollowing {
		return apperrors.Validation(`FollowersList type must be "followers" or "following"`)
	}
	return nil
}

// checkID rejects ids that are empty or would not name a single document
func checkID(dest Destination, what, id string) error {
	switch {
	case id == "":
		return apperrors.Validation(fmt.Sprintf("%s needs a %s", dest, what))
	case strings.Contains(id, "/"), id == ".", id == "..":
		return apperrors.Validation(fmt.Sprintf("%s has an invalid %s", dest, what))
	}
	return nil
}

// Decode builds the typed route for a destination from its JSON parameters
func Decode(dest Destination, params json.RawMessage) (Route, error) {
	var r Route
	switch dest {
	case Comments:
		var c CommentsRoute
		if err := unmarshal(params, &c); err != nil {
			return nil, err
		}
		r = c
	case UserProfile:
		var u UserProfileRoute
		if err := unmarshal(params, &u); err != nil {
			return nil, err
		}
		r = u
	case Chat:
		var c ChatRoute
		if err := unmarshal(params, &c); err != nil {
			return nil, err
		}
		r = c
	case FollowersList:
		var f FollowersListRoute
		if err := unmarshal(params, &f); err != nil {
			return nil, err
		}
		r = f
	default:
		if _, ok := dest.State(); !ok {
			return nil, apperrors.Validation(fmt.Sprintf("Unknown destination %q", dest))
		}
		r = To(dest)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, "Invalid route parameters")
	}
	return nil
}
