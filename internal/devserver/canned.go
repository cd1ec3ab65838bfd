// ABOUTME: Canned agent payloads returned by the development service
// ABOUTME: Results are derived from the request so different inputs give different, stable answers

package devserver

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

type videoSummary struct {
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	ViewCount int    `json:"view_count"`
	LikeCount int    `json:"like_count"`
	Summary   struct {
		KeyPoints  []string `json:"key_points"`
		MainTopics []string `json:"main_topics"`
		Conclusion string   `json:"conclusion"`
	} `json:"summary"`
}

// videoID extracts the id from watch?v= and youtu.be/ URLs.
func videoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return strings.Trim(u.Path, "/")
}

func cannedVideo(raw string) videoSummary {
	id := videoID(raw)
	if id == "" {
		id = "unknown"
	}
	seed := 0
	for _, r := range id {
		seed = seed*31 + int(r)
	}
	if seed < 0 {
		seed = -seed
	}

	var v videoSummary
	v.Title = fmt.Sprintf("Building AI Applications (%s)", id)
	v.Duration = fmt.Sprintf("%d:%02d", 5+seed%40, seed%60)
	v.ViewCount = 1000 + seed%900000
	v.LikeCount = v.ViewCount / 37
	v.Summary.KeyPoints = []string{
		"Introduction to modern AI development frameworks",
		"Setting up the project and its dependencies",
		"Building the first AI-powered component",
		"Best practices for production deployment",
	}
	v.Summary.MainTopics = []string{"Integration", "AI Libraries", "Architecture", "Production Tips"}
	v.Summary.Conclusion = "A **practical guide** to adding AI capabilities to an application, from setup to deployment."
	return v
}

func cannedAnswer(filename string, pages int, question string) string {
	return fmt.Sprintf("Based on **%s** (%d pages), here is what I found about _%s_:\n\n"+
		"- The main concept is explained with practical examples\n"+
		"- Several implementation strategies are described\n"+
		"- The author lists best practices for reliable results\n\n"+
		"Ask a follow-up question to go deeper on any point.", filename, pages, question)
}

type keywordMatch struct {
	Matched  int      `json:"matched"`
	Total    int      `json:"total"`
	Keywords []string `json:"keywords"`
}

type resumeMatch struct {
	OverallMatch    int            `json:"overall_match"`
	Strengths       []string       `json:"strengths"`
	Gaps            []string       `json:"gaps"`
	Recommendations []string       `json:"recommendations"`
	KeywordMatch    keywordMatch   `json:"keyword_match"`
	SectionScores   map[string]int `json:"section_scores"`
}

// maxKeywords bounds how many job description terms are scored.
const maxKeywords = 10

// jobKeywords picks the distinct longer words of a job description in first-seen order.
func jobKeywords(description string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range strings.FieldsFunc(description, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		w := strings.ToLower(word)
		if len(w) < 4 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// cannedResumeMatch scores the resume by which job keywords appear in its raw bytes.
func cannedResumeMatch(resume []byte, jobDescription string) resumeMatch {
	text := strings.ToLower(string(resume))
	keywords := jobKeywords(jobDescription)

	var matched, missing []string
	for _, k := range keywords {
		if strings.Contains(text, k) {
			matched = append(matched, k)
		} else {
			missing = append(missing, k)
		}
	}
	sort.Strings(matched)

	overall := 40
	if len(keywords) > 0 {
		overall += 60 * len(matched) / len(keywords)
	}

	m := resumeMatch{
		OverallMatch: overall,
		KeywordMatch: keywordMatch{Matched: len(matched), Total: len(keywords), Keywords: matched},
		SectionScores: map[string]int{
			"experience": min(100, overall+7),
			"skills":     overall,
			"education":  max(0, overall-8),
		},
	}
	for _, k := range matched {
		m.Strengths = append(m.Strengths, fmt.Sprintf("Mentions %s", k))
	}
	for _, k := range missing {
		m.Gaps = append(m.Gaps, fmt.Sprintf("No mention of %s", k))
	}
	m.Recommendations = []string{"Lead with the experience most relevant to this role"}
	if len(missing) > 0 {
		m.Recommendations = append(m.Recommendations, fmt.Sprintf("Address %s if you have experience with it", missing[0]))
	}
	return m
}
