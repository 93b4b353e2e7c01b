package ingest

// Stage is the ordinal position of an ingestion run.
type Stage int

const (
	StageStarted Stage = iota
	StageExtracting
	StageRecognizing
	StageRecordCreated
	StageChunking
	StageEmbedding
	StagePersisting
)

func (s Stage) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StageExtracting:
		return "extracting"
	case StageRecognizing:
		return "recognizing"
	case StageRecordCreated:
		return "record_created"
	case StageChunking:
		return "chunking"
	case StageEmbedding:
		return "embedding"
	case StagePersisting:
		return "persisting"
	default:
		return "unknown"
	}
}

// ProgressEvent is a transient progress report. Percent is monotonically
// non-decreasing within one ingestion run.
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressSink consumes progress events synchronously. A misbehaving sink
// never aborts ingestion.
type ProgressSink interface {
	OnProgress(ev ProgressEvent)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(ev ProgressEvent)

func (f SinkFunc) OnProgress(ev ProgressEvent) { f(ev) }
