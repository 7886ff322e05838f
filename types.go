package mandrill

// InfoResponse from POST /templates/info.json
type InfoResponse struct {
	Code string `json:"code"`

	// Text is nil when the template has no plain-text part.
	Text *string `json:"text"`

	Name        string `json:"name,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Subject     string `json:"subject,omitempty"`
	PublishName string `json:"publish_name,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// RenderResponse from POST /templates/render.json
type RenderResponse struct {
	HTML string `json:"html"`
}

// FixState is the terminal state a successful Fix reached.
type FixState int

const (
	// FixUnchanged means no pattern matched and no update was sent.
	FixUnchanged FixState = iota + 1

	// FixDone means the sanitized template was published.
	FixDone

	// FixPending means patterns matched but the update was skipped (dry run).
	FixPending
)

func (s FixState) String() string {
	switch s {
	case FixUnchanged:
		return "unchanged"
	case FixDone:
		return "done"
	case FixPending:
		return "pending"
	default:
		return "unknown"
	}
}

// FixResult reports the outcome of Client.Fix.
type FixResult struct {
	Target    string    `json:"target"`
	State     FixState  `json:"-"`
	Detection Detection `json:"detection"`

	// Code and Text hold the sanitized bodies when State is FixDone or FixPending.
	Code string  `json:"code,omitempty"`
	Text *string `json:"text,omitempty"`
}

// Changed reports whether Fix found anything to strip.
func (r *FixResult) Changed() bool {
	return r.State == FixDone || r.State == FixPending
}
