package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResponseType discriminates the payload shape of a response node.
type ResponseType string

const (
	ResponseText         ResponseType = "text"
	ResponseImage        ResponseType = "image"
	ResponseImageCaption ResponseType = "image_caption"
	ResponseVideo        ResponseType = "video"
	ResponseVideoCaption ResponseType = "video_caption"
	ResponseAudio        ResponseType = "audio"
	ResponseFile         ResponseType = "file"
)

// Valid reports whether the response type is known.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseText, ResponseImage, ResponseImageCaption,
		ResponseVideo, ResponseVideoCaption, ResponseAudio, ResponseFile:
		return true
	default:
		return false
	}
}

// ResponseConfig is a tagged union keyed by Type. Only the fields declared by
// the active variant may be set; Validate rejects stale fields so the
// execution runtime can never read, say, a caption on a plain text response.
//
// Variants:
//
//	text                    -> Content
//	image, video, audio     -> MediaURL
//	image_caption,
//	video_caption           -> MediaURL + Caption
//	file                    -> MediaURL + FileName
type ResponseConfig struct {
	Type     ResponseType `json:"responseType"       validate:"required"`
	Content  string       `json:"content,omitempty"`
	MediaURL string       `json:"mediaUrl,omitempty"`
	Caption  string       `json:"caption,omitempty"`
	FileName string       `json:"fileName,omitempty"`
}

func (c ResponseConfig) ConfigKind() NodeKind { return KindResponse }

func (c ResponseConfig) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown response type %q", ErrInvalidNodeConfig, c.Type)
	}

	required, allowed := responseFields(c.Type)

	set := map[string]string{
		"content":  c.Content,
		"mediaUrl": c.MediaURL,
		"caption":  c.Caption,
		"fileName": c.FileName,
	}

	for _, field := range required {
		if set[field] == "" {
			return fmt.Errorf("%w: response type %q requires %s", ErrInvalidNodeConfig, c.Type, field)
		}
	}

	for field, value := range set {
		if value != "" && !allowed[field] {
			return fmt.Errorf("%w: response type %q does not carry %s", ErrInvalidNodeConfig, c.Type, field)
		}
	}

	return nil
}

func (c ResponseConfig) Clone() NodeConfig { return c }

// responseFields returns the required fields and the full allowed field set
// of a response variant. Caption is optional on captioned media.
func responseFields(t ResponseType) ([]string, map[string]bool) {
	switch t {
	case ResponseText:
		return []string{"content"}, map[string]bool{"content": true}
	case ResponseImage, ResponseVideo, ResponseAudio:
		return []string{"mediaUrl"}, map[string]bool{"mediaUrl": true}
	case ResponseImageCaption, ResponseVideoCaption:
		return []string{"mediaUrl"}, map[string]bool{"mediaUrl": true, "caption": true}
	case ResponseFile:
		return []string{"mediaUrl"}, map[string]bool{"mediaUrl": true, "fileName": true}
	default:
		return nil, map[string]bool{}
	}
}

// mergeResponseConfig applies a partial update to a response config. When the
// partial payload switches the responseType, the merge starts from a zero
// value: fields of the previous variant are discarded in the same atomic
// update, never retained alongside the new type.
func mergeResponseConfig(existing ResponseConfig, partial json.RawMessage) (NodeConfig, error) {
	var tag struct {
		Type *ResponseType `json:"responseType"`
	}

	if err := json.Unmarshal(partial, &tag); err != nil {
		return nil, fmt.Errorf("%w: malformed response config: %v", ErrInvalidNodeConfig, err)
	}

	base := existing
	if tag.Type != nil && *tag.Type != existing.Type {
		base = ResponseConfig{Type: *tag.Type}
	}

	decoder := json.NewDecoder(bytes.NewReader(partial))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&base); err != nil {
		return nil, fmt.Errorf("%w: config does not match kind %q: %v",
			ErrInvalidNodeConfig, KindResponse, err)
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}

	return base, nil
}
