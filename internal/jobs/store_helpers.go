package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, user_id, status, dataset_name, csv_file_name, sample_count, model_type, progress_stage, progress_percent, progress_message, error_message, result_json, completed_at, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		userID          string
		statusStr       string
		datasetName     sql.NullString
		csvFileName     sql.NullString
		sampleCount     sql.NullInt64
		modelType       sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		errorMessage    sql.NullString
		resultJSON      sql.NullString
		completedRaw    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&statusStr,
		&datasetName,
		&csvFileName,
		&sampleCount,
		&modelType,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&resultJSON,
		&completedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		UserID:          userID,
		Status:          Status(statusStr),
		DatasetName:     datasetName.String,
		CSVFileName:     csvFileName.String,
		SampleCount:     sampleCount.Int64,
		ModelType:       modelType.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		ResultJSON:      resultJSON.String,
	}

	if completed, err := parseTimeString(completedRaw.String); err == nil {
		job.CompletedAt = &completed
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
