package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"streamlet/internal/asset"
	"streamlet/internal/feed"
	"streamlet/internal/posts"
)

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// detectContentType maps a media file to a content type by extension,
// defaulting to video/mp4 for extension-less files.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "video/mp4"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "video/" + asset.NormalizeExt(ext)
}

type assetJSON struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Visibility  string `json:"visibility"`
	ObjectPath  string `json:"objectPath"`
	PlayableURL string `json:"playableUrl"`
	PosterURL   string `json:"posterUrl"`
	CreatedAt   string `json:"createdAt"`
}

func assetView(a asset.MediaAsset) assetJSON {
	return assetJSON{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Title:       a.Title,
		Visibility:  string(a.Visibility),
		ObjectPath:  a.ObjectPath,
		PlayableURL: a.PlayableURL,
		PosterURL:   a.PosterURL,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

type resumeJSON struct {
	AssetID          string  `json:"assetId"`
	Title            string  `json:"title"`
	PositionSeconds  float64 `json:"positionSeconds"`
	FractionComplete float64 `json:"fractionComplete"`
	UpdatedAt        string  `json:"updatedAt"`
}

func resumeView(e feed.ResumeEntry) resumeJSON {
	return resumeJSON{
		AssetID:          e.AssetID,
		Title:            e.Title,
		PositionSeconds:  e.PositionSeconds,
		FractionComplete: e.FractionComplete,
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}
}

type postJSON struct {
	ID         string `json:"id"`
	ChannelID  string `json:"channelId"`
	Content    string `json:"content"`
	Visibility string `json:"visibility"`
	CreatedAt  string `json:"createdAt"`
}

func postView(p posts.Post) postJSON {
	return postJSON{
		ID:         p.ID,
		ChannelID:  p.ChannelID,
		Content:    p.Content,
		Visibility: string(p.Visibility),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

func formatFraction(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
