// Package extract implements the content extractor (C10): after the
// agentic loop terminates, it scans tool replies for search/scrape/youtube
// output and derives deduplicated client-visible supplementary data. None
// of this is ever fed back into the model-visible conversation.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nexuscore/gateway/internal/links"
	"github.com/nexuscore/gateway/internal/sse"
	"github.com/nexuscore/gateway/pkg/models"
)

var youtubePattern = regexp.MustCompile(`(?i)(?:youtube\.com/watch\?v=|youtu\.be/)[\w-]+`)

// sourceLike is the shape search/scrape tools emit for each hit; fields are
// read best-effort, missing ones simply stay empty.
type sourceLike struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Image   string `json:"image"`
}

type toolPayload struct {
	Sources []sourceLike `json:"sources"`
	Images  []string     `json:"images"`
	Media   []string     `json:"media"`
	URL     string       `json:"url"`
	Title   string       `json:"title"`
	Snippet string       `json:"snippet"`
}

// toolNamePattern matches the tool-name classes whose replies are mined for
// extractable content, per the spec's "search/scrape/youtube" scope.
var extractableTools = map[string]bool{
	"web_search": true, "search": true, "page_scrape": true, "scrape": true,
	"web_fetch": true, "youtube": true, "youtube_transcript": true, "youtube_metadata": true,
}

// FromConversation scans every tool-role message in msgs and derives
// deduplicated sources, images, and video links. toolNameByCallID maps each
// ToolResult's ToolCallID back to the tool name that produced it, since
// Message itself only carries the call id.
func FromConversation(msgs []models.Message, toolNameByCallID map[string]string) sse.ExtractedContent {
	var (
		sources       []sse.ExtractedSource
		seenSources   = map[string]bool{}
		images        []string
		seenImages    = map[string]bool{}
		youtubeVideos []string
		seenYoutube   = map[string]bool{}
		otherVideos   []string
		seenOther     = map[string]bool{}
		media         []string
		seenMedia     = map[string]bool{}
	)

	addSource := func(s sourceLike) {
		if s.URL == "" {
			return
		}
		norm := links.NormalizeURL(s.URL)
		if seenSources[norm] {
			return
		}
		seenSources[norm] = true
		sources = append(sources, sse.ExtractedSource{URL: norm, Title: s.Title, Snippet: s.Snippet})
	}
	addImage := func(u string) {
		norm := links.NormalizeURL(u)
		if norm == "" || seenImages[norm] {
			return
		}
		seenImages[norm] = true
		images = append(images, norm)
	}
	addVideo := func(u string) {
		norm := links.NormalizeURL(u)
		if norm == "" {
			return
		}
		if youtubePattern.MatchString(norm) {
			if !seenYoutube[norm] {
				seenYoutube[norm] = true
				youtubeVideos = append(youtubeVideos, norm)
			}
			return
		}
		if !seenOther[norm] {
			seenOther[norm] = true
			otherVideos = append(otherVideos, norm)
		}
	}
	addMedia := func(u string) {
		norm := links.NormalizeURL(u)
		if norm == "" || seenMedia[norm] {
			return
		}
		seenMedia[norm] = true
		media = append(media, norm)
	}

	for _, msg := range msgs {
		if msg.Role != models.RoleTool {
			continue
		}
		toolName := toolNameByCallID[msg.ToolCallID]
		if !extractableTools[strings.ToLower(toolName)] {
			continue
		}

		var payload toolPayload
		if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
			continue
		}

		if payload.URL != "" {
			addSource(sourceLike{URL: payload.URL, Title: payload.Title, Snippet: payload.Snippet})
		}
		for _, s := range payload.Sources {
			addSource(s)
			if s.Image != "" {
				addImage(s.Image)
			}
		}
		for _, img := range payload.Images {
			addImage(img)
		}
		for _, link := range links.ExtractLinksFromMessage(msg.Content, 50) {
			if strings.Contains(strings.ToLower(toolName), "youtube") || youtubePattern.MatchString(link) {
				addVideo(link)
			}
		}
		for _, m := range payload.Media {
			addMedia(m)
		}
	}

	return sse.ExtractedContent{
		Sources:       sources,
		Images:        images,
		YoutubeVideos: youtubeVideos,
		OtherVideos:   otherVideos,
		Media:         media,
	}
}
