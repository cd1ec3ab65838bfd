// ABOUTME: Resume matcher session
// ABOUTME: Uploads a resume with a job description and keeps the returned match report

package workspace

import (
	"context"
	"log/slog"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/validate"
)

// MaxResumeBytes bounds the size of an uploaded resume.
const MaxResumeBytes = 5 << 20

// ResumePattern lists the accepted resume file types.
var ResumePattern = validate.MustFilePattern("*.{pdf,doc,docx}")

// ResumeInput is the matcher's form.
type ResumeInput struct {
	ResumePath     string
	JobDescription string
}

// KeywordMatch reports how many of the job's keywords the resume covers.
type KeywordMatch struct {
	Matched  int      `json:"matched"`
	Total    int      `json:"total"`
	Keywords []string `json:"keywords"`
}

// ResumeMatch is the service's report for one resume against one job description.
type ResumeMatch struct {
	OverallMatch    float64            `json:"overall_match"`
	Strengths       []string           `json:"strengths"`
	Gaps            []string           `json:"gaps"`
	Recommendations []string           `json:"recommendations"`
	KeywordMatch    KeywordMatch       `json:"keyword_match"`
	SectionScores   map[string]float64 `json:"section_scores"`
}

// Rating labels the overall match score.
func (m ResumeMatch) Rating() string {
	switch {
	case m.OverallMatch >= 70:
		return "Strong Match"
	case m.OverallMatch >= 50:
		return "Good Match"
	default:
		return "Needs Improvement"
	}
}

// ResumeMatcher is the session for agent.ResumeMatcher.
type ResumeMatcher struct {
	*SingleShot[ResumeInput, ResumeMatch]
}

func newResumeMatcher(caller Caller, logger *slog.Logger) Session {
	return &ResumeMatcher{newSingleShot(agent.ResumeMatcher, caller, logger, validateResume, matchResume)}
}

func validateResume(in ResumeInput) error {
	if err := ResumePattern.File("resume_file", in.ResumePath, MaxResumeBytes); err != nil {
		return err
	}
	return validate.Required("job_description", in.JobDescription)
}

func matchResume(ctx context.Context, c Caller, in ResumeInput) (ResumeMatch, error) {
	form := remote.NewForm().
		FilePath("resume_file", in.ResumePath).
		Field("job_description", in.JobDescription)

	var out ResumeMatch
	err := c.SendJSON(ctx, &remote.Request{Path: "/api/resume-matcher/", Form: form}, &out)
	return out, err
}
