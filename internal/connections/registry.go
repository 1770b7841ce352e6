// Package connections manages third-party platform links: the platform
// registry, OAuth authorization tracking, and the merged connection listing.
package connections

import (
	"fmt"

	"github.com/getemily/emily-api/internal/models"
)

// Icon is the variant type for platform icons: either a named glyph from the
// built-in icon set or an external image URL.
type Icon interface {
	// Render returns the client-side rendering reference for the icon.
	Render() string
}

// GlyphIcon references a named glyph in the bundled icon set.
type GlyphIcon struct {
	Name string
}

// Render returns a glyph reference.
func (g GlyphIcon) Render() string {
	return "glyph:" + g.Name
}

// URLIcon references an externally hosted icon image.
type URLIcon struct {
	URL string
}

// Render returns the image URL.
func (u URLIcon) Render() string {
	return u.URL
}

// AuthKind is a connect method a platform supports.
type AuthKind string

const (
	// AuthOAuth connects through the OAuth gateway.
	AuthOAuth AuthKind = "oauth"
	// AuthToken connects with a long-lived access token.
	AuthToken AuthKind = "token"
	// AuthCredentials connects with site credentials.
	AuthCredentials AuthKind = "credentials"
)

// PlatformSpec describes one platform in the fixed registry.
type PlatformSpec struct {
	ID           models.Platform
	DisplayName  string
	Icon         Icon
	AuthKinds    []AuthKind
	AuthorizeURL string
	Scopes       []string
}

// SupportsAuth reports whether the platform allows the given connect method.
func (p PlatformSpec) SupportsAuth(kind AuthKind) bool {
	for _, k := range p.AuthKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// registry is the fixed set of connectable platforms.
var registry = map[models.Platform]PlatformSpec{
	models.PlatformFacebook: {
		ID:           models.PlatformFacebook,
		DisplayName:  "Facebook",
		Icon:         GlyphIcon{Name: "facebook"},
		AuthKinds:    []AuthKind{AuthOAuth, AuthToken},
		AuthorizeURL: "https://www.facebook.com/v19.0/dialog/oauth",
		Scopes:       []string{"pages_manage_posts", "pages_read_engagement"},
	},
	models.PlatformInstagram: {
		ID:           models.PlatformInstagram,
		DisplayName:  "Instagram",
		Icon:         GlyphIcon{Name: "instagram"},
		AuthKinds:    []AuthKind{AuthOAuth, AuthToken},
		AuthorizeURL: "https://www.facebook.com/v19.0/dialog/oauth",
		Scopes:       []string{"instagram_basic", "instagram_content_publish"},
	},
	models.PlatformLinkedIn: {
		ID:           models.PlatformLinkedIn,
		DisplayName:  "LinkedIn",
		Icon:         GlyphIcon{Name: "linkedin"},
		AuthKinds:    []AuthKind{AuthOAuth, AuthToken},
		AuthorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
		Scopes:       []string{"w_member_social", "r_organization_social"},
	},
	models.PlatformGoogle: {
		ID:           models.PlatformGoogle,
		DisplayName:  "Google Business Profile",
		Icon:         GlyphIcon{Name: "google"},
		AuthKinds:    []AuthKind{AuthOAuth},
		AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		Scopes:       []string{"https://www.googleapis.com/auth/business.manage"},
	},
	models.PlatformYouTube: {
		ID:           models.PlatformYouTube,
		DisplayName:  "YouTube",
		Icon:         GlyphIcon{Name: "youtube"},
		AuthKinds:    []AuthKind{AuthOAuth},
		AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
	},
	models.PlatformTwitter: {
		ID:           models.PlatformTwitter,
		DisplayName:  "X (Twitter)",
		Icon:         URLIcon{URL: "https://abs.twimg.com/favicons/twitter.3.ico"},
		AuthKinds:    []AuthKind{AuthOAuth, AuthToken},
		AuthorizeURL: "https://twitter.com/i/oauth2/authorize",
		Scopes:       []string{"tweet.write", "users.read", "offline.access"},
	},
	models.PlatformWordPress: {
		ID:          models.PlatformWordPress,
		DisplayName: "WordPress",
		Icon:        GlyphIcon{Name: "wordpress"},
		AuthKinds:   []AuthKind{AuthCredentials},
	},
}

// LookupPlatform resolves a raw platform identifier against the registry
// after normalization.
func LookupPlatform(raw string) (PlatformSpec, error) {
	id := models.NormalizePlatform(raw)
	spec, ok := registry[id]
	if !ok {
		return PlatformSpec{}, fmt.Errorf("%w: %s", models.ErrUnknownPlatform, raw)
	}
	return spec, nil
}

// AllPlatforms returns every registry entry in a stable order.
func AllPlatforms() []PlatformSpec {
	order := []models.Platform{
		models.PlatformFacebook,
		models.PlatformInstagram,
		models.PlatformLinkedIn,
		models.PlatformGoogle,
		models.PlatformYouTube,
		models.PlatformTwitter,
		models.PlatformWordPress,
	}
	specs := make([]PlatformSpec, 0, len(order))
	for _, id := range order {
		specs = append(specs, registry[id])
	}
	return specs
}
