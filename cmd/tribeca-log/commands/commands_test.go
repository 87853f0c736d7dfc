package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp:    testTime,
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Topic:        "qp",
			Envelope:     &log.EnvelopeEvent{Kind: wire.KindSubscribe, Topic: "qp"},
		},
		{
			Timestamp:    testTime.Add(10 * time.Millisecond),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Topic:        "qp",
			Envelope:     &log.EnvelopeEvent{Kind: wire.KindSnapshot, Topic: "qp", PayloadSize: 12, Payload: "x"},
		},
		{
			Timestamp:    testTime.Add(20 * time.Millisecond),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			RemoteAddr:   "ws://desk:3000/ws",
			Frame:        &log.FrameEvent{Size: 4, Data: []byte{0xa1, 0x01, 0x02, 0x03}},
		},
		{
			Timestamp:    testTime.Add(2 * time.Second),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Layer:        log.LayerMessaging,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: "CONNECTED",
				NewState: "DISCONNECTED",
				Reason:   "keep-alive timeout",
			},
		},
		{
			Timestamp: testTime.Add(3 * time.Second),
			Layer:     log.LayerMessaging,
			Category:  log.CategoryError,
			Topic:     "md",
			Error:     &log.ErrorEventData{Layer: log.LayerMessaging, Message: "boom", Context: "onUpdate callback"},
		},
	}
}

func TestFormatEnvelopeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.133456Z",
		"[conn:abc12345]",
		"IN ",
		"WIRE Snapshot qp",
		"Payload: 12 bytes",
		"Value: x",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatFrameAndState(t *testing.T) {
	var buf bytes.Buffer
	events := sampleEvents()
	formatEvent(&buf, events[2])
	formatEvent(&buf, events[3])
	output := buf.String()

	if !strings.Contains(output, "Data: a1010203") {
		t.Errorf("expected frame hex, got:\n%s", output)
	}
	if !strings.Contains(output, "CONNECTED -> DISCONNECTED") {
		t.Errorf("expected state transition, got:\n%s", output)
	}
	if !strings.Contains(output, "Reason: keep-alive timeout") {
		t.Errorf("expected reason, got:\n%s", output)
	}
}

func TestFormatControlUsesCtrlLabel(t *testing.T) {
	code := 1001
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Timestamp:  testTime,
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgClose, CloseCode: &code},
	})
	output := buf.String()

	if !strings.Contains(output, "[conn:-]") || !strings.Contains(output, "CTRL CLOSE") {
		t.Errorf("unexpected header:\n%s", output)
	}
	if !strings.Contains(output, "Code: 1001") {
		t.Errorf("expected close code:\n%s", output)
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	layer := log.LayerTransport
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[conn:"); got != 1 {
		t.Errorf("expected 1 transport event, got %d:\n%s", got, buf.String())
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{Topic: "qp"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[conn:"); got != 2 {
		t.Errorf("expected 2 qp events, got %d", got)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	if err := RunView(filepath.Join(t.TempDir(), "nope.mlog"), ViewFilter{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("MESSAGING"); err != nil || l != log.LayerMessaging {
		t.Errorf("ParseLayerFlag(MESSAGING) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if c, err := ParseCategoryFlag("State"); err != nil || c != log.CategoryState {
		t.Errorf("ParseCategoryFlag(State) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := collectStats(path)
	if err != nil {
		t.Fatalf("collectStats failed: %v", err)
	}
	if stats.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d", stats.TotalEvents)
	}
	qp := stats.Topics["qp"]
	if qp == nil || qp.Subscribes != 1 || qp.Snapshots != 1 {
		t.Errorf("qp stats = %+v", qp)
	}
	if len(stats.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(stats.Connections))
	}
	for _, c := range stats.Connections {
		if c.Events != 4 || c.Remote != "ws://desk:3000/ws" || c.Reason != "keep-alive timeout" {
			t.Errorf("connection stats = %+v", c)
		}
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Total Events: 5", "MESSAGING:", "Topics:", "Errors: 1", "Last reason: keep-alive timeout"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.mlog")

	n, err := RunFilter(path, FilterOptions{Output: out, Topic: "qp"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("filtered %d events, want 2", n)
	}

	stats, err := collectStats(out)
	if err != nil {
		t.Fatalf("collectStats failed: %v", err)
	}
	if stats.TotalEvents != 2 || stats.EventsByDirection[log.DirectionOut] != 1 {
		t.Errorf("unexpected filtered stats: %+v", stats.EventsByDirection)
	}
}

func TestBuildFilterErrors(t *testing.T) {
	bad := []FilterOptions{
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "physical"},
		{Direction: "sideways"},
		{Category: "misc"},
	}
	for _, opts := range bad {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("BuildFilter(%+v) should fail", opts)
		}
	}
	if _, err := RunFilter("in.mlog", FilterOptions{}); err == nil {
		t.Error("RunFilter without output should fail")
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var records []record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[0].Type != "Subscribe" || records[0].Topic != "qp" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[4].Detail != "boom" {
		t.Errorf("error record detail = %q", records[4].Detail)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,connection_id") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error for unknown format")
	}
}
