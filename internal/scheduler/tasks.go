package scheduler

import (
	"encoding/json"

	"elecrm_backend/internal/leadevents"

	"github.com/hibiken/asynq"
)

const TaskSpitfireLeadExport = "spitfire.lead.export"

const TaskRecordingArchive = "recordings.archive"

type LeadExportPayload struct {
	Lead leadevents.CombinedLead `json:"lead"`
}

type RecordingArchivePayload struct {
	CallSid      string `json:"callSid"`
	RecordingURL string `json:"recordingUrl"`
	Duration     int    `json:"duration"`
}

func NewLeadExportTask(payload LeadExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSpitfireLeadExport, data), nil
}

func ParseLeadExportPayload(task *asynq.Task) (LeadExportPayload, error) {
	var payload LeadExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadExportPayload{}, err
	}
	return payload, nil
}

func NewRecordingArchiveTask(payload RecordingArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordingArchive, data), nil
}

func ParseRecordingArchivePayload(task *asynq.Task) (RecordingArchivePayload, error) {
	var payload RecordingArchivePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecordingArchivePayload{}, err
	}
	return payload, nil
}
