package domain

import (
	"context"
	"time"
)

// StationStatus is the wire shape of one station observation: one line of the
// cleaner's JSONL output, one Kafka message body. Field names are the open-data
// canonical keys. DueDate stays a raw string on the wire; typing it is the
// mapper's job, not the normalizer's.
type StationStatus struct {
	StationCode    string `json:"station_code"`
	Name           string `json:"name"`
	IsInstalled    *bool  `json:"is_installed"`
	Capacity       *int32 `json:"capacity"`
	DocksAvailable *int32 `json:"numdocksavailable"`
	BikesAvailable *int32 `json:"numbikesavailable"`
	Mechanical     *int32 `json:"mechanical"`
	Ebike          *int32 `json:"ebike"`
	IsReturning    *bool  `json:"is_returning"`
	DueDate        string `json:"due_date"`
	Commune        string `json:"commune"`
	CodeInsee      string `json:"code_insee"`
	Geo            string `json:"geo"`
}

// InboundMessage represents an unprocessed message from the station topic.
type InboundMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// StationStatusRecord is the canonical typed observation persisted by the
// consumer. Nil pointers mean "unknown": the source was silent or unreadable,
// which must never be stored as 0 or false. (StationCode, DueDate) identifies
// one observation; re-delivery overwrites, never duplicates.
type StationStatusRecord struct {
	StationCode     string
	StationName     *string
	Commune         *string
	Capacity        *int32
	DocksAvailable  *int32
	BikesAvailable  *int32
	BikesMechanical *int32
	BikesEbike      *int32
	IsInstalled     *bool
	IsReturning     *bool
	DueDate         time.Time
	CodeInsee       string
	Geo             string
}
