package events

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ClassEvent reports the outcome of converting one class directory.
type ClassEvent struct {
	Dataset string
	Class   string
	Label   int
	Packets int
	Flows   int
	Train   int
	Val     int
	Test    int
	Time    time.Time
}

// Encode serializes an event as a protobuf Struct. The time is carried as a
// nested {seconds, nanos} struct taken from a protobuf Timestamp.
func Encode(ev ClassEvent) ([]byte, error) {
	ts := timestamppb.New(ev.Time)
	msg, err := structpb.NewStruct(map[string]any{
		"dataset": ev.Dataset,
		"class":   ev.Class,
		"label":   ev.Label,
		"packets": ev.Packets,
		"flows":   ev.Flows,
		"train":   ev.Train,
		"val":     ev.Val,
		"test":    ev.Test,
		"time": map[string]any{
			"seconds": ts.GetSeconds(),
			"nanos":   ts.GetNanos(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build event struct: %w", err)
	}
	return proto.Marshal(msg)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (ClassEvent, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return ClassEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	f := msg.GetFields()

	ev := ClassEvent{
		Dataset: f["dataset"].GetStringValue(),
		Class:   f["class"].GetStringValue(),
		Label:   int(f["label"].GetNumberValue()),
		Packets: int(f["packets"].GetNumberValue()),
		Flows:   int(f["flows"].GetNumberValue()),
		Train:   int(f["train"].GetNumberValue()),
		Val:     int(f["val"].GetNumberValue()),
		Test:    int(f["test"].GetNumberValue()),
	}
	if ev.Class == "" {
		return ClassEvent{}, fmt.Errorf("event has no class")
	}

	tf := f["time"].GetStructValue().GetFields()
	ts := &timestamppb.Timestamp{
		Seconds: int64(tf["seconds"].GetNumberValue()),
		Nanos:   int32(tf["nanos"].GetNumberValue()),
	}
	if err := ts.CheckValid(); err != nil {
		return ClassEvent{}, fmt.Errorf("invalid event time: %w", err)
	}
	ev.Time = ts.AsTime()
	return ev, nil
}
