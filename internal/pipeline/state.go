package pipeline

// State is a step of the audio generation job.
type State string

const (
	StateScheduled           State = "scheduled"
	StateFetchingPost        State = "fetching_post"
	StateNotFound            State = "not_found"
	StateSynthesizingBody    State = "synthesizing_body"
	StateSynthesizingSummary State = "synthesizing_summary"
	StateUploadingBody       State = "uploading_body"
	StateUploadingSummary    State = "uploading_summary"
	StatePersisting          State = "persisting"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)

// Post generation steps.
const (
	StateGeneratingContent State = "generating_content"
	StatePublishing        State = "publishing"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateNotFound
}

// Variant names one narrated rendition of a post.
type Variant string

const (
	VariantRawMarkdown Variant = "raw_markdown"
	VariantSummary     Variant = "summary"
)

// AudioFileName is the object name an audio rendition is uploaded under.
func AudioFileName(postID string, variant Variant) string {
	return postID + "_" + string(variant) + ".mp3"
}
