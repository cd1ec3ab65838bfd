// ABOUTME: YouTube summarizer session
// ABOUTME: Sends a video URL and keeps the returned summary

package workspace

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/validate"
)

// VideoInput is the summarizer's form.
type VideoInput struct {
	URL string
}

// Metric is a display value the service may send as a number or a string ("45.2K").
type Metric string

func (m *Metric) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = Metric(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = Metric(n.String())
	return nil
}

// VideoSummary is the service's summary of one video.
type VideoSummary struct {
	Title     string `json:"title"`
	Duration  Metric `json:"duration"`
	ViewCount Metric `json:"view_count"`
	LikeCount Metric `json:"like_count"`
	Summary   struct {
		KeyPoints  []string `json:"key_points"`
		MainTopics []string `json:"main_topics"`
		Conclusion string   `json:"conclusion"`
	} `json:"summary"`
}

// VideoSummarizer is the session for agent.YouTubeSummarizer.
type VideoSummarizer struct {
	*SingleShot[VideoInput, VideoSummary]
}

func newVideoSummarizer(caller Caller, logger *slog.Logger) Session {
	return &VideoSummarizer{newSingleShot(agent.YouTubeSummarizer, caller, logger, validateVideo, summarizeVideo)}
}

func validateVideo(in VideoInput) error {
	return validate.HTTPURL("youtube_url", in.URL)
}

func summarizeVideo(ctx context.Context, c Caller, in VideoInput) (VideoSummary, error) {
	var out VideoSummary
	err := c.SendJSON(ctx, &remote.Request{
		Path: "/api/summarize-youtube/",
		JSON: map[string]string{"youtube_url": strings.TrimSpace(in.URL)},
	}, &out)
	return out, err
}

// Views renders the view count with a unit suffix when the service sent a plain number.
func (v VideoSummary) Views() string {
	return compact(string(v.ViewCount))
}

// Likes renders the like count like Views.
func (v VideoSummary) Likes() string {
	return compact(string(v.LikeCount))
}

func compact(s string) string {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	switch {
	case n >= 1e6:
		return strconv.FormatFloat(n/1e6, 'f', 1, 64) + "M"
	case n >= 1e3:
		return strconv.FormatFloat(n/1e3, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}
