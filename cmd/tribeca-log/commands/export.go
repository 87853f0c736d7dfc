package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tribeca/tribeca-go/pkg/log"
)

// record is the flat export form of an event.
type record struct {
	Timestamp    string `json:"timestamp"`
	ConnectionID string `json:"connection_id,omitempty"`
	Direction    string `json:"direction"`
	Layer        string `json:"layer"`
	Category     string `json:"category"`
	Topic        string `json:"topic,omitempty"`
	Type         string `json:"type"`
	Size         int    `json:"size,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

func toRecord(event log.Event) record {
	r := record{
		Timestamp:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		ConnectionID: event.ConnectionID,
		Direction:    event.Direction.String(),
		Layer:        event.Layer.String(),
		Category:     event.Category.String(),
		Topic:        event.Topic,
		Type:         eventType(event),
	}
	switch {
	case event.Frame != nil:
		r.Size = event.Frame.Size
	case event.Envelope != nil:
		r.Size = event.Envelope.PayloadSize
		if event.Envelope.Payload != nil {
			r.Detail = fmt.Sprintf("%v", event.Envelope.Payload)
		}
	case event.StateChange != nil:
		r.Detail = event.StateChange.OldState + " -> " + event.StateChange.NewState
		if event.StateChange.Reason != "" {
			r.Detail += " (" + event.StateChange.Reason + ")"
		}
	case event.Error != nil:
		r.Detail = event.Error.Message
	}
	return r
}

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "layer", "category", "topic", "type", "size", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		r := toRecord(event)
		row := []string{r.Timestamp, r.ConnectionID, r.Direction, r.Layer, r.Category, r.Topic, r.Type, strconv.Itoa(r.Size), r.Detail}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}
