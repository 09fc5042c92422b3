package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

func TestJobMessage(t *testing.T) {
	job, err := connector.NewJob(uuid.New(), connector.ModelPartner, connector.JobImportRecord,
		connector.JobArgs{ExternalID: 42}, 3)
	require.NoError(t, err)
	job.Start()
	job.Fail("Please check the data")

	msg, err := jobMessage(job)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, job.ID.String(), msg.MessageId)
	assert.Equal(t, "connector.job.failed", msg.Type)
	assert.Equal(t, job.BackendID.String(), msg.Headers["backend_id"])

	var event JobEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, job.ID.String(), event.JobID)
	assert.Equal(t, connector.ModelPartner, event.Model)
	assert.Equal(t, "import_record", event.Method)
	assert.Equal(t, int64(42), event.ExternalID)
	assert.Equal(t, "failed", event.Status)
	assert.Equal(t, 1, event.Attempts)
	assert.Equal(t, "Please check the data", event.Error)
	assert.NotNil(t, event.DoneAt)
}

func TestAMQPNotifier_Closed(t *testing.T) {
	n := &AMQPNotifier{closed: true}
	job, err := connector.NewJob(uuid.New(), connector.ModelPartner, connector.JobImportRecord, connector.JobArgs{}, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, n.Notify(context.Background(), job), ErrNotifierClosed)
	assert.NoError(t, n.Close())
}
