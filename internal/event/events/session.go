package events

import (
	"slices"

	"github.com/dshills/assetbus/internal/event"
)

// Session event names.
const (
	// NameSessionStarted is emitted when a logged-in user starts a session.
	NameSessionStarted event.Name = "session-started"

	// NameShareLink is emitted when a user copies a share link.
	NameShareLink event.Name = "share-link"

	// NameCloseBanner is emitted when a user closes the header banner
	// showing the number of selected items.
	NameCloseBanner event.Name = "close-banner"
)

// UserSession identifies the signed-in user.
type UserSession struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// ShareLinkCopied is the payload of share-link.
type ShareLinkCopied struct {
	// Email is the email address of the sharing user.
	Email string `json:"email"`

	// DisplayName is the sharing user's full name.
	DisplayName string `json:"displayName"`

	// ShareLinkURL is the copied link.
	ShareLinkURL string `json:"shareLinkUrl"`

	// SharedAssets holds the IDs of the shared assets.
	SharedAssets []string `json:"sharedAssetsArr"`

	// ShareLinkExpiryDate is the link's expiry date as displayed.
	ShareLinkExpiryDate string `json:"shareLinkExpiryDate"`
}

// BannerClosed is the empty payload of close-banner.
type BannerClosed struct{}

// Typed session events.
// Clone implements event.Cloner.
func (s ShareLinkCopied) Clone() any {
	s.SharedAssets = slices.Clone(s.SharedAssets)
	return s
}

var (
	SessionStarted = event.NewKind[UserSession](NameSessionStarted)
	ShareLink      = event.NewKind[ShareLinkCopied](NameShareLink)
	CloseBanner    = event.NewKind[BannerClosed](NameCloseBanner)
)
