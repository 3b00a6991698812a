// Package linkmeta resolves external video links: it extracts the video
// identifier from the supported URL shapes and optionally scrapes the page's
// Open Graph tags to fill in display metadata. Extraction must succeed before
// a remote track is playable; metadata is best-effort decoration.
package linkmeta

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sonata/internal/httputil"
	"sonata/internal/media"
)

// ErrUnrecognized is returned for URLs that match none of the supported
// link shapes.
var ErrUnrecognized = errors.New("unrecognized video link format")

var (
	watchRe = regexp.MustCompile(`v=([a-zA-Z0-9_-]+)`)
	shortRe = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]+)`)
	embedRe = regexp.MustCompile(`embed/([a-zA-Z0-9_-]+)`)
)

// ExtractVideoID pulls the video identifier out of a link. Supported shapes:
//
//	https://www.youtube.com/watch?v=VIDEO_ID
//	https://youtu.be/VIDEO_ID
//	https://www.youtube.com/embed/VIDEO_ID
func ExtractVideoID(rawURL string) (string, error) {
	var re *regexp.Regexp
	switch {
	case strings.Contains(rawURL, "youtube.com/watch"):
		re = watchRe
	case strings.Contains(rawURL, "youtu.be/"):
		re = shortRe
	case strings.Contains(rawURL, "youtube.com/embed/"):
		re = embedRe
	default:
		return "", ErrUnrecognized
	}
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return "", ErrUnrecognized
	}
	return m[1], nil
}

// NewTrack builds a RemoteLink track from a link, scraping page metadata when
// a client is provided. Metadata failures leave placeholder fields; only ID
// extraction is required to succeed.
func NewTrack(rawURL string, client *http.Client) (media.Track, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return media.Track{}, err
	}

	track := media.Track{
		Kind:         media.RemoteLink,
		VideoID:      videoID,
		Title:        "External video",
		ChannelTitle: "Remote link",
	}

	if client != nil {
		if meta, err := FetchMetadata(client, track.WatchURL()); err == nil {
			if meta.Title != "" {
				track.Title = meta.Title
			}
			if meta.Channel != "" {
				track.ChannelTitle = meta.Channel
			}
			track.ThumbnailURL = meta.ThumbnailURL
			track.Description = meta.Description
		}
	}

	return track, nil
}

// Metadata is what a video page advertises about itself.
type Metadata struct {
	Title        string
	Channel      string
	ThumbnailURL string
	Description  string
}

// FetchMetadata scrapes Open Graph tags from a video page.
func FetchMetadata(client *http.Client, pageURL string) (Metadata, error) {
	var meta Metadata

	resp, err := httputil.Get(client, pageURL)
	if err != nil {
		return meta, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return meta, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return meta, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	meta.Title = ogContent(doc, "og:title")
	meta.Channel = ogContent(doc, "og:site_name")
	meta.ThumbnailURL = ogContent(doc, "og:image")
	meta.Description = ogContent(doc, "og:description")
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return meta, nil
}

func ogContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(content)
}
