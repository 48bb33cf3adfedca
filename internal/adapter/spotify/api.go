package spotify

import (
	"strings"
	"time"
)

type image struct {
	URL string `json:"url"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type artistObject struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	Genres       []string     `json:"genres"`
	Popularity   *int         `json:"popularity"`
	Images       []image      `json:"images"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type albumObject struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	URI                  string         `json:"uri"`
	ReleaseDate          string         `json:"release_date"`
	ReleaseDatePrecision string         `json:"release_date_precision"`
	TotalTracks          int            `json:"total_tracks"`
	Images               []image        `json:"images"`
	Artists              []artistObject `json:"artists"`
	ExternalURLs         externalURLs   `json:"external_urls"`
	Tracks               *trackPage     `json:"tracks"`
}

type trackObject struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	URI          string         `json:"uri"`
	DurationMS   int64          `json:"duration_ms"`
	TrackNumber  int            `json:"track_number"`
	IsLocal      bool           `json:"is_local"`
	Artists      []artistObject `json:"artists"`
	Album        *albumObject   `json:"album"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

type trackPage struct {
	Items []trackObject `json:"items"`
	Next  string        `json:"next"`
}

type playlistItem struct {
	Track *trackObject `json:"track"`
}

type playlistPage struct {
	Items []playlistItem `json:"items"`
	Next  string         `json:"next"`
}

type playlistObject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description"`
	Owner       struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Images       []image       `json:"images"`
	ExternalURLs externalURLs  `json:"external_urls"`
	Tracks       *playlistPage `json:"tracks"`
}

type searchResponse struct {
	Tracks    *struct{ Items []*trackObject }    `json:"tracks"`
	Albums    *struct{ Items []*albumObject }    `json:"albums"`
	Artists   *struct{ Items []*artistObject }   `json:"artists"`
	Playlists *struct{ Items []*playlistObject } `json:"playlists"`
}

func firstImage(images []image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func artistNames(artists []artistObject) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// releaseDate parses the album date at its declared precision.
func releaseDate(raw, precision string) time.Time {
	layout := "2006-01-02"
	switch precision {
	case "year":
		layout = "2006"
	case "month":
		layout = "2006-01"
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
