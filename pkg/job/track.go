package job

import (
	"net/url"
	"strings"
)

type TrackKind string

const (
	TrackAudio    TrackKind = "audio"
	TrackSubtitle TrackKind = "subtitle"
)

// Track is an external audio or subtitle source attached to a job.
type Track struct {
	Kind       TrackKind
	JobID      string
	Language   string
	SourcePath string
}

func (t Track) Validate() error {
	if strings.TrimSpace(t.Language) == "" {
		return Errorf(ErrValidation, "%s track for job %s: missing language", t.Kind, t.JobID)
	}
	if strings.TrimSpace(t.SourcePath) == "" {
		return Errorf(ErrValidation, "%s track %s for job %s: missing file_path", t.Kind, t.Language, t.JobID)
	}
	if strings.ContainsAny(t.Language, `/\`) {
		return Errorf(ErrValidation, "%s track for job %s: invalid language %q", t.Kind, t.JobID, t.Language)
	}
	return nil
}

// ValidateTracks checks every descriptor and returns the first failure.
func ValidateTracks(tracks []Track) error {
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Locator addresses an object or prefix in a bucket.
type Locator struct {
	Bucket string
	Key    string
}

func (l Locator) String() string {
	if l.Key == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseLocator parses an s3://bucket/key URL. The key has no leading or trailing slash.
func ParseLocator(raw string) (Locator, error) {
	if !strings.HasPrefix(raw, "s3://") {
		return Locator{}, Errorf(ErrValidation, "invalid or missing s3 locator %q", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Locator{}, Errorf(ErrValidation, "invalid s3 locator %q: %v", raw, err)
	}
	if u.Host == "" {
		return Locator{}, Errorf(ErrValidation, "s3 locator %q has no bucket", raw)
	}

	return Locator{
		Bucket: u.Host,
		Key:    strings.Trim(u.Path, "/"),
	}, nil
}

// IsRemote reports whether a source path points into object storage.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "s3://")
}
