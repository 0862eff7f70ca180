package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranger-beers/ingestion/pkg/utils"
)

func TestQueueFor(t *testing.T) {
	key, err := queueFor(JobTypeEmergencyAlert)
	require.NoError(t, err)
	assert.Equal(t, QueueEmergencies, key)

	key, err = queueFor(JobTypePayloadArchive)
	require.NoError(t, err)
	assert.Equal(t, QueueArchive, key)

	_, err = queueFor("recording_upload")
	assert.Error(t, err)
}

func TestArchivePayloadKeepsBodyBytes(t *testing.T) {
	body := []byte("{\n  \"data\": {\n    \"formId\": \"wMz1\",\n    \"fields\": [{\"key\": \"note\", \"value\": \"a<b & c>d\"}]\n  }\n}\n")
	p := PayloadArchivePayload{FormKind: "signup", BodyHash: utils.SHA256Hex(body), Body: body, ReceivedAt: time.Unix(0, 0).UTC()}

	// Same two-level encoding as enqueue: payload inside the job envelope.
	payload, err := json.Marshal(p)
	require.NoError(t, err)
	raw, err := json.Marshal(Job{ID: "j1", Type: JobTypePayloadArchive, Payload: payload})
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal(raw, &job))
	var back PayloadArchivePayload
	require.NoError(t, json.Unmarshal(job.Payload, &back))
	assert.Equal(t, body, back.Body)
	assert.Equal(t, p.BodyHash, utils.SHA256Hex(back.Body))
}
