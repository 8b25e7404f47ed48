package maintflow

import (
	"errors"
	"testing"
	"time"
)

func sampleRecord(rul float64) Record {
	return Record{
		Timestamp:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local),
		Temperature: 450,
		Vibration:   1.2,
		Torque:      40,
		RUL:         rul,
		Status:      Classify(rul, DefaultThresholds()).Status,
	}
}

func TestNewCallbackSink(t *testing.T) {
	var received []Record
	sink := NewCallbackSink("cb", func(batch []Record) error {
		received = append(received, batch...)
		return nil
	})

	input := sampleRecord(42)
	if err := sink.WriteBatch([]*Record{&input}); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 batch entry, got %d", len(received))
	}
	if received[0] != input {
		t.Fatalf("mismatched record payload: %+v vs %+v", received[0], input)
	}
	if received[0].Status != StatusPlanned {
		t.Fatalf("expected PLANNED, got %s", received[0].Status)
	}
	if sink.Name() != "cb" {
		t.Fatalf("unexpected name %q", sink.Name())
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	r := sampleRecord(10)
	if err := sink.WriteBatch([]*Record{&r}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %q", sink.Name())
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := sampleRecord(75)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sink.WriteBatch([]*Record{&input})
	}()

	var batch []Record
	select {
	case batch = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel batch")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(batch) != 1 || batch[0].Status != StatusNormal {
		t.Fatalf("unexpected batch data: %+v", batch)
	}

	closeFn()
	if err := sink.WriteBatch([]*Record{&input}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
