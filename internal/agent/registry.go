// ABOUTME: Static catalogue of agent descriptors shown in the workspace
// ABOUTME: Lookup by id, catalogue order listing and availability filtering

package agent

// Kind selects how an agent session exchanges messages with the service.
type Kind int

const (
	// KindSingleShot sessions submit one input and replace their result.
	KindSingleShot Kind = iota
	// KindConversational sessions append each exchange to a log.
	KindConversational
)

func (k Kind) String() string {
	switch k {
	case KindSingleShot:
		return "single-shot"
	case KindConversational:
		return "conversational"
	default:
		return "unknown"
	}
}

// Agent ids of the default catalogue.
const (
	YouTubeSummarizer = "youtube-summarizer"
	PDFQA             = "pdf-qa"
	ResumeMatcher     = "resume-matcher"
	ResearchAssistant = "research-assistant"
	CodeExplainer     = "code-explainer"
	Translator        = "translator"
	VideoChapters     = "video-chapters"
)

// Descriptor is the immutable catalogue entry for one agent.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Available   bool
	Kind        Kind
}

// Registry is a read-only catalogue. It is safe for concurrent use.
type Registry struct {
	order []Descriptor
	byID  map[string]int
}

// NewRegistry builds a catalogue from descriptors, keeping their order.
// A later descriptor with a repeated id is ignored.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{byID: make(map[string]int, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := r.byID[d.ID]; dup {
			continue
		}
		r.byID[d.ID] = len(r.order)
		r.order = append(r.order, d)
	}
	return r
}

// Default returns the workspace's built-in catalogue.
func Default() *Registry {
	return NewRegistry(
		Descriptor{ID: YouTubeSummarizer, Name: "YouTube Summarizer", Description: "Extract key insights from any YouTube video", Available: true, Kind: KindSingleShot},
		Descriptor{ID: PDFQA, Name: "Ask from PDF", Description: "Query any PDF document instantly", Available: true, Kind: KindConversational},
		Descriptor{ID: ResumeMatcher, Name: "Resume Matcher", Description: "Match resumes with job descriptions", Available: true, Kind: KindSingleShot},
		Descriptor{ID: ResearchAssistant, Name: "Research Assistant", Description: "AI-powered research and analysis", Kind: KindConversational},
		Descriptor{ID: CodeExplainer, Name: "Code Explainer", Description: "Understand complex code instantly", Kind: KindSingleShot},
		Descriptor{ID: Translator, Name: "Document Translator", Description: "Translate documents across languages", Kind: KindSingleShot},
		Descriptor{ID: VideoChapters, Name: "Video Chapter Generator", Description: "Auto-generate video chapters", Kind: KindSingleShot},
	)
}

// Describe returns the descriptor for id.
func (r *Registry) Describe(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.order[i], true
}

// List returns every descriptor in catalogue order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the descriptors that can be opened, in catalogue order.
func (r *Registry) Available() []Descriptor {
	var out []Descriptor
	for _, d := range r.order {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}
