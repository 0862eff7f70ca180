package tally

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stranger-beers/ingestion/pkg/utils"
)

var (
	// ErrMalformedPayload is returned when the body is not a JSON object.
	ErrMalformedPayload = errors.New("invalid JSON payload")
	// ErrMissingFormID is returned when data.formId is absent or empty.
	ErrMissingFormID = errors.New("missing formId in payload")
)

// Option is one choice of a MULTIPLE_CHOICE, DROPDOWN or MULTI_SELECT question.
type Option struct {
	ID   Value  `json:"id"`
	Text string `json:"text"`
}

// Field is one submitted question/answer pair.
type Field struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Value   Value    `json:"value"`
	Type    string   `json:"type,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Data is the submission body under the "data" key.
type Data struct {
	FormID       string  `json:"formId"`
	SubmissionID string  `json:"submissionId,omitempty"`
	ResponseID   string  `json:"responseId,omitempty"`
	Fields       []Field `json:"fields"`
}

// Payload is a decoded webhook body. Raw keeps the exact bytes received.
type Payload struct {
	Data     Data            `json:"data"`
	Raw      json.RawMessage `json:"-"`
	BodyHash string          `json:"-"`
}

// Submission returns submissionId, falling back to responseId.
func (d Data) Submission() *string {
	if s := strings.TrimSpace(d.SubmissionID); s != "" {
		return &s
	}
	if s := strings.TrimSpace(d.ResponseID); s != "" {
		return &s
	}
	return nil
}

// Decode parses a raw webhook body. The body must be verified before it is trusted,
// but decoding never alters the bytes kept in Raw.
func Decode(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	p.Data.FormID = strings.TrimSpace(p.Data.FormID)
	if p.Data.FormID == "" {
		return nil, ErrMissingFormID
	}
	p.Raw = append(json.RawMessage(nil), body...)
	p.BodyHash = utils.SHA256Hex(body)
	return &p, nil
}
