package asset

import (
	"fmt"
	"path"
	"strings"
	"time"

	"streamlet/internal/services"
	"streamlet/internal/store"
)

// Collection is the document collection holding committed media assets.
const Collection = "assets"

// Visibility controls who may discover an asset.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility normalizes a visibility value, defaulting to public.
func ParseVisibility(value string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "public":
		return VisibilityPublic, nil
	case "private":
		return VisibilityPrivate, nil
	default:
		return "", services.Wrap(services.ErrValidation, "asset", "parse_visibility", fmt.Sprintf("unknown visibility %q", value), nil)
	}
}

// MediaAsset is a committed, queryable media record. A MediaAsset exists only
// if its referenced object was successfully transferred; reservations alone
// never produce one.
type MediaAsset struct {
	ID          string
	OwnerID     string
	Title       string
	Visibility  Visibility
	ObjectPath  string
	PlayableURL string
	PosterURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MediaObjectPath is where an asset's payload lands in the object store.
func MediaObjectPath(ownerID, assetID, ext string) string {
	return fmt.Sprintf("media/%s/%s.%s", ownerID, assetID, NormalizeExt(ext))
}

// PosterObjectPath is where an asset's derived poster lands.
func PosterObjectPath(ownerID, assetID string) string {
	return fmt.Sprintf("posters/%s/%s.jpg", ownerID, assetID)
}

// NormalizeExt lowercases a file extension and falls back to mp4.
func NormalizeExt(ext string) string {
	cleaned := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if cleaned == "" {
		return "mp4"
	}
	return cleaned
}

// ExtFromName extracts a normalized extension from a file name.
func ExtFromName(name string) string {
	return NormalizeExt(path.Ext(name))
}

// Fields encodes the asset as document fields.
func (a MediaAsset) Fields() map[string]any {
	return map[string]any{
		"ownerId":     a.OwnerID,
		"title":       a.Title,
		"visibility":  string(a.Visibility),
		"objectPath":  a.ObjectPath,
		"playableUrl": a.PlayableURL,
		"posterUrl":   a.PosterURL,
		"createdAt":   store.FormatTime(a.CreatedAt),
		"updatedAt":   store.FormatTime(a.UpdatedAt),
	}
}

// FromDocument validates and decodes a stored asset document. Payloads are
// checked here at the store boundary rather than trusted downstream.
func FromDocument(doc store.Document) (MediaAsset, error) {
	a := MediaAsset{ID: doc.ID}
	if a.ID == "" {
		return MediaAsset{}, invalid("missing document id")
	}

	var ok bool
	if a.OwnerID, ok = store.StringField(doc.Fields, "ownerId"); !ok || a.OwnerID == "" {
		return MediaAsset{}, invalid("missing ownerId")
	}
	if a.Title, ok = store.StringField(doc.Fields, "title"); !ok {
		return MediaAsset{}, invalid("missing title")
	}
	rawVisibility, ok := store.StringField(doc.Fields, "visibility")
	if !ok {
		return MediaAsset{}, invalid("missing visibility")
	}
	visibility, err := ParseVisibility(rawVisibility)
	if err != nil {
		return MediaAsset{}, err
	}
	a.Visibility = visibility

	if a.ObjectPath, ok = store.StringField(doc.Fields, "objectPath"); !ok || a.ObjectPath == "" {
		return MediaAsset{}, invalid("missing objectPath")
	}
	if a.PlayableURL, ok = store.StringField(doc.Fields, "playableUrl"); !ok || a.PlayableURL == "" {
		return MediaAsset{}, invalid("missing playableUrl")
	}
	if a.PosterURL, ok = store.StringField(doc.Fields, "posterUrl"); !ok {
		return MediaAsset{}, invalid("missing posterUrl")
	}
	if a.CreatedAt, ok = store.TimeField(doc.Fields, "createdAt"); !ok {
		return MediaAsset{}, invalid("missing createdAt")
	}
	if a.UpdatedAt, ok = store.TimeField(doc.Fields, "updatedAt"); !ok {
		return MediaAsset{}, invalid("missing updatedAt")
	}
	return a, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "asset", "decode", message, nil)
}
