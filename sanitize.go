package mandrill

import (
	"fmt"
	"regexp"
	"strings"
)

// Vendor boilerplate patterns. Compiled once; never modified.
var (
	// MergeTagPattern matches vendor merge tags such as *|MC_PREVIEW_TEXT|*.
	MergeTagPattern = regexp.MustCompile(`\*\|MC_[A-Z_]+\|\*`)

	// TrackedLinkPattern matches the protocol prefix the vendor wraps around {{link}}.
	TrackedLinkPattern = regexp.MustCompile(`http://\{\{link\}\}`)
)

const trackedLinkReplacement = "{{link}}"

// SanitizePolicy decides which matches make Fix publish an update. Both
// patterns are always stripped once an update is triggered; replacing a
// pattern that does not occur is a no-op.
type SanitizePolicy string

const (
	// SanitizeAny triggers on either pattern in either body.
	SanitizeAny SanitizePolicy = "any"

	// SanitizeMergeTag triggers only on a merge tag. A template whose only
	// artifact is a tracked link is left alone.
	SanitizeMergeTag SanitizePolicy = "merge-tag"
)

// ParseSanitizePolicy validates a policy name. Empty selects SanitizeAny.
func ParseSanitizePolicy(s string) (SanitizePolicy, error) {
	switch p := SanitizePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SanitizeAny, SanitizeMergeTag:
		return p, nil
	case "":
		return SanitizeAny, nil
	default:
		return "", &ValidationError{Field: "SanitizePolicy", Message: fmt.Sprintf("unknown policy %q (want any or merge-tag)", s)}
	}
}

// Detection records which patterns matched the original content.
type Detection struct {
	MergeTag    bool `json:"merge_tag"`
	TrackedLink bool `json:"tracked_link"`
}

// Any reports whether either pattern matched.
func (d Detection) Any() bool {
	return d.MergeTag || d.TrackedLink
}

// Detect checks code and, when present, text for either pattern. It must run
// on the content as fetched: replacements are idempotent and cannot be used
// to tell whether anything changed.
func Detect(code string, text *string) Detection {
	d := Detection{
		MergeTag:    MergeTagPattern.MatchString(code),
		TrackedLink: TrackedLinkPattern.MatchString(code),
	}
	if text != nil {
		d.MergeTag = d.MergeTag || MergeTagPattern.MatchString(*text)
		d.TrackedLink = d.TrackedLink || TrackedLinkPattern.MatchString(*text)
	}
	return d
}

// Sanitizer strips boilerplate once its Policy is triggered.
type Sanitizer struct {
	Policy SanitizePolicy
}

// NewSanitizer returns a Sanitizer for policy, defaulting to SanitizeAny.
func NewSanitizer(policy SanitizePolicy) Sanitizer {
	if policy == "" {
		policy = SanitizeAny
	}
	return Sanitizer{Policy: policy}
}

// Triggered reports whether d warrants an update under the policy.
func (z Sanitizer) Triggered(d Detection) bool {
	if z.Policy == SanitizeMergeTag {
		return d.MergeTag
	}
	return d.Any()
}

// Sanitize strips both patterns from s when d triggers the policy and
// returns s untouched otherwise.
func (z Sanitizer) Sanitize(s string, d Detection) string {
	if !z.Triggered(d) {
		return s
	}
	return SanitizeString(s)
}

// SanitizeText applies Sanitize to an optional body, preserving nil.
func (z Sanitizer) SanitizeText(text *string, d Detection) *string {
	if text == nil {
		return nil
	}
	out := z.Sanitize(*text, d)
	return &out
}

// SanitizeString strips both patterns from s unconditionally. Removing one
// occurrence can join the text around it into a new one (for example
// "http://http://{{link}}"), so replacement repeats until neither pattern
// matches. Every pass shortens s, so the loop terminates.
func SanitizeString(s string) string {
	for {
		next := MergeTagPattern.ReplaceAllLiteralString(s, "")
		next = TrackedLinkPattern.ReplaceAllLiteralString(next, trackedLinkReplacement)
		if next == s {
			return s
		}
		s = next
	}
}
