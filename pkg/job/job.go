package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Descriptor is an accepted job request. It is never modified after Decode.
type Descriptor struct {
	JobID             string `json:"job_id"`
	ContentID         string `json:"content_id"`
	ClientID          string `json:"client_id"`
	InputCredential   string `json:"s3_input_id"`
	OutputCredential  string `json:"s3_output_id"`
	IsPaid            bool   `json:"is_paid"`
	UploadToS3        bool   `json:"upload_to_s3"`
	Source            string `json:"s3_source"`
	Destination       string `json:"s3_destination"`
	AlreadyTranscoded bool   `json:"already_transcoded"`
}

// wire form, pointers tell missing fields apart from zero values
type descriptorWire struct {
	JobID             *string `json:"job_id"`
	ContentID         *string `json:"content_id"`
	ClientID          *string `json:"client_id"`
	InputCredential   *string `json:"s3_input_id"`
	OutputCredential  *string `json:"s3_output_id"`
	IsPaid            *bool   `json:"is_paid"`
	UploadToS3        *bool   `json:"upload_to_s3"`
	Source            *string `json:"s3_source"`
	Destination       *string `json:"s3_destination"`
	AlreadyTranscoded *bool   `json:"already_transcoded"`
}

// Decode reads exactly one descriptor. Unknown and missing fields are rejected.
func Decode(r io.Reader) (Descriptor, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var w descriptorWire
	if err := dec.Decode(&w); err != nil {
		return Descriptor{}, Errorf(ErrValidation, "malformed job descriptor: %v", err)
	}

	var missing []string
	str := func(name string, v *string) string {
		if v == nil {
			missing = append(missing, name)
			return ""
		}
		return strings.TrimSpace(*v)
	}
	flag := func(name string, v *bool) bool {
		if v == nil {
			missing = append(missing, name)
			return false
		}
		return *v
	}

	d := Descriptor{
		JobID:             str("job_id", w.JobID),
		ContentID:         str("content_id", w.ContentID),
		ClientID:          str("client_id", w.ClientID),
		InputCredential:   str("s3_input_id", w.InputCredential),
		OutputCredential:  str("s3_output_id", w.OutputCredential),
		IsPaid:            flag("is_paid", w.IsPaid),
		UploadToS3:        flag("upload_to_s3", w.UploadToS3),
		Source:            str("s3_source", w.Source),
		Destination:       str("s3_destination", w.Destination),
		AlreadyTranscoded: flag("already_transcoded", w.AlreadyTranscoded),
	}

	if len(missing) > 0 {
		return Descriptor{}, Errorf(ErrValidation, "missing fields: %s", strings.Join(missing, ", "))
	}

	return d, d.Validate()
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(data []byte) (Descriptor, error) {
	return Decode(bytes.NewReader(data))
}

func (d Descriptor) Validate() error {
	if d.JobID == "" {
		return Errorf(ErrValidation, "job_id is required")
	}
	if strings.ContainsAny(d.JobID, `/\`) || d.JobID == "." || d.JobID == ".." {
		return Errorf(ErrValidation, "job_id %q is not usable as a directory name", d.JobID)
	}
	if d.Source == "" {
		return Errorf(ErrValidation, "job %s: s3_source is required", d.JobID)
	}
	if d.UploadToS3 {
		if _, err := ParseLocator(d.Destination); err != nil {
			return fmt.Errorf("job %s: %w", d.JobID, err)
		}
	}
	return nil
}

// OutputCredentialID falls back to the input credential when no output one is set.
func (d Descriptor) OutputCredentialID() string {
	if d.OutputCredential != "" {
		return d.OutputCredential
	}
	return d.InputCredential
}

// Mode names the packaging mode selected by IsPaid.
func (d Descriptor) Mode() string {
	if d.IsPaid {
		return "encrypted"
	}
	return "plain"
}
