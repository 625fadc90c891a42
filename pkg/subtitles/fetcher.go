// Package subtitles pulls video metadata and timestamped transcripts via
// yt-dlp. The binary is a runtime collaborator; everything it returns is
// parsed defensively.
package subtitles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// ErrNoSubtitles is returned when no track exists in any preferred language.
var ErrNoSubtitles = errors.New("no subtitle track available")

// Fetcher shells out to yt-dlp and downloads subtitle tracks over HTTP.
type Fetcher struct {
	BinPath    string
	HTTPClient *http.Client
	Langs      []string
}

// NewFetcher builds a fetcher with the given language preference order.
func NewFetcher(langs []string) *Fetcher {
	return &Fetcher{
		BinPath:    "yt-dlp",
		HTTPClient: http.DefaultClient,
		Langs:      langs,
	}
}

// videoInfo is the subset of yt-dlp's --dump-single-json output we read.
type videoInfo struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Channel           string                 `json:"channel"`
	Uploader          string                 `json:"uploader"`
	UploadDate        string                 `json:"upload_date"`
	WebpageURL        string                 `json:"webpage_url"`
	Subtitles         map[string][]subFormat `json:"subtitles"`
	AutomaticCaptions map[string][]subFormat `json:"automatic_captions"`
}

type subFormat struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// Fetch returns the video metadata and its transcript segments. Manual
// subtitle tracks win over automatic captions; languages are tried in the
// configured preference order.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string) (*models.VideoMetadata, []models.Segment, error) {
	info, err := f.dump(ctx, videoURL)
	if err != nil {
		return nil, nil, err
	}

	meta := &models.VideoMetadata{
		ID:         info.ID,
		Title:      info.Title,
		Channel:    info.Channel,
		UploadDate: NormalizeUploadDate(info.UploadDate),
		WebpageURL: info.WebpageURL,
	}
	if meta.Channel == "" {
		meta.Channel = info.Uploader
	}
	if meta.WebpageURL == "" {
		meta.WebpageURL = videoURL
	}

	track := pickTrack(info.Subtitles, f.Langs)
	if track == "" {
		track = pickTrack(info.AutomaticCaptions, f.Langs)
	}
	if track == "" {
		return meta, nil, ErrNoSubtitles
	}

	body, err := f.download(ctx, track)
	if err != nil {
		return meta, nil, err
	}
	segments := ParseVTT(string(body))
	if len(segments) == 0 {
		return meta, nil, ErrNoSubtitles
	}
	return meta, segments, nil
}

func (f *Fetcher) dump(ctx context.Context, videoURL string) (*videoInfo, error) {
	cmd := exec.CommandContext(ctx, f.BinPath, "--dump-single-json", "--skip-download", videoURL)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp dump: %w", err)
	}
	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return &info, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("subtitle request: %w", err)
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subtitle download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subtitle download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// pickTrack chooses the VTT URL for the first preferred language present in
// the track map, falling back to any extension when no VTT format exists.
func pickTrack(tracks map[string][]subFormat, langs []string) string {
	for _, lang := range langs {
		formats, ok := tracks[lang]
		if !ok || len(formats) == 0 {
			continue
		}
		for _, fm := range formats {
			if fm.Ext == "vtt" && fm.URL != "" {
				return fm.URL
			}
		}
		if formats[0].URL != "" {
			return formats[0].URL
		}
	}
	return ""
}

// NormalizeUploadDate converts yt-dlp's YYYYMMDD form to YYYY-MM-DD.
// Anything else passes through unchanged.
func NormalizeUploadDate(d string) string {
	if len(d) == 8 && !strings.Contains(d, "-") {
		return d[:4] + "-" + d[4:6] + "-" + d[6:]
	}
	return d
}
