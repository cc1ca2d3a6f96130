package domain

// Mode selects what part of the source media is acquired.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeAudio Mode = "audio"
	ModeClip  Mode = "clip"
)

// ParseMode maps a request type string to a Mode.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeFull, ModeAudio, ModeClip:
		return Mode(raw), true
	default:
		return "", false
	}
}

// ClientRequest is the JSON body posted by the browser extension.
// CurrentTime present forces clip semantics regardless of Type.
type ClientRequest struct {
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
}

// AcquisitionRequest is a validated download request.
type AcquisitionRequest struct {
	SourceURL    string
	Mode         Mode
	AnchorTime   float64
	LeadSeconds  float64
	TrailSeconds float64
	OutputDir    string
}

// PostStep names the post-processing applied after download.
type PostStep string

const (
	PostStepNone         PostStep = "none"
	PostStepExtractAudio PostStep = "extract-audio"
)

// TimeRange bounds a clip in seconds from the start of the media.
type TimeRange struct {
	Start float64
	End   float64
}

// AcquisitionSpec is the concrete, immutable download plan built by the
// planner. OutputPath is collision-free at plan time; OutputTemplate is what
// the downloader receives (they differ for audio, where the tool appends the
// container extension itself).
type AcquisitionSpec struct {
	SourceURL      string
	Title          string
	FormatSelector string
	OutputPath     string
	OutputTemplate string
	Section        *TimeRange
	PostStep       PostStep
}

// JobState is the lifecycle classification of one download job.
type JobState string

const (
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateCancelled JobState = "cancelled"
	JobStateFailed    JobState = "failed"
)

// MediaInfo is the result of a metadata-only probe of the remote source.
type MediaInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Settings is the flat JSON settings document shared with the CEP panel.
// The string-typed numbers mirror what the panel writes.
type Settings struct {
	Resolution         string `json:"resolution"`
	DownloadPath       string `json:"downloadPath"`
	DownloadMP3        bool   `json:"downloadMP3"`
	SecondsBefore      string `json:"secondsBefore"`
	SecondsAfter       string `json:"secondsAfter"`
	NotificationVolume int    `json:"notificationVolume"`
	NotificationSound  string `json:"notificationSound"`
}
