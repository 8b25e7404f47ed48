package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// DefaultSubject carries ledger append requests.
const DefaultSubject = "maint.ledger.append"

// wireRecord is the JSON shape of a record on the bus. Every field is a
// pointer so an absent key is told apart from a zero value. JSON has no NaN,
// so a non-finite RUL travels as the string "NaN", "+Inf" or "-Inf".
type wireRecord struct {
	Timestamp   *time.Time      `json:"timestamp"`
	Temperature *float64        `json:"temperature"`
	Vibration   *float64        `json:"vibration"`
	Torque      *float64        `json:"torque"`
	RUL         json.RawMessage `json:"rul"`
	Status      *string         `json:"status"`
}

type reply struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	codeMissingField = "missing_field"
	codeInvalid      = "invalid_record"
	codeIO           = "io"
)

func encode(rec domain.PredictionRecord) ([]byte, error) {
	status := string(rec.Status)
	w := wireRecord{
		Timestamp:   &rec.Timestamp,
		Temperature: &rec.Temperature,
		Vibration:   &rec.Vibration,
		Torque:      &rec.Torque,
		Status:      &status,
	}
	var err error
	if math.IsNaN(rec.RUL) || math.IsInf(rec.RUL, 0) {
		w.RUL, err = json.Marshal(strconv.FormatFloat(rec.RUL, 'f', -1, 64))
	} else {
		w.RUL, err = json.Marshal(rec.RUL)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// decode rejects a payload lacking any of the six columns with
// ledger.ErrMissingField naming the first absent one.
func decode(data []byte) (domain.PredictionRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", ledger.ErrInvalidRecord, err)
	}
	for _, f := range []struct {
		col     string
		present bool
	}{
		{ledger.ColTimestamp, w.Timestamp != nil},
		{ledger.ColTemperature, w.Temperature != nil},
		{ledger.ColVibration, w.Vibration != nil},
		{ledger.ColTorque, w.Torque != nil},
		{ledger.ColRUL, len(w.RUL) > 0 && string(w.RUL) != "null"},
		{ledger.ColStatus, w.Status != nil},
	} {
		if !f.present {
			return domain.PredictionRecord{}, fmt.Errorf("%w: %s", ledger.ErrMissingField, f.col)
		}
	}
	rul, err := decodeRUL(w.RUL)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %s: %v", ledger.ErrInvalidRecord, ledger.ColRUL, err)
	}
	return domain.PredictionRecord{
		Timestamp:   *w.Timestamp,
		Temperature: *w.Temperature,
		Vibration:   *w.Vibration,
		Torque:      *w.Torque,
		RUL:         rul,
		Status:      domain.Status(*w.Status),
	}, nil
}

func decodeRUL(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN", "+Inf", "-Inf", "Inf":
			return strconv.ParseFloat(s, 64)
		}
		return 0, fmt.Errorf("unexpected marker %q", s)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// LedgerClient forwards appends to a LedgerService over NATS request/reply so
// several watchers can share one ledger writer.
type LedgerClient struct {
	Conn    *nats.Conn
	subject string
	timeout time.Duration
}

func NewLedgerClient(url, subject string, timeout time.Duration) (*LedgerClient, error) {
	conn, err := nats.Connect(url, nats.Name("aegis-maint ledger client"))
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &LedgerClient{Conn: conn, subject: subject, timeout: timeout}, nil
}

func (c *LedgerClient) Append(rec domain.PredictionRecord) error {
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	msg, err := c.Conn.Request(c.subject, data, c.timeout)
	if err != nil {
		return fmt.Errorf("ledger request: %w", err)
	}
	return replyErr(msg.Data)
}

func (c *LedgerClient) Close() {
	if c.Conn != nil {
		c.Conn.Drain()
		c.Conn.Close()
	}
}

func replyErr(data []byte) error {
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("ledger reply: %w", err)
	}
	if r.OK {
		return nil
	}
	switch r.Code {
	case codeMissingField:
		return fmt.Errorf("%w (remote: %s)", ledger.ErrMissingField, r.Error)
	case codeInvalid:
		return fmt.Errorf("%w (remote: %s)", ledger.ErrInvalidRecord, r.Error)
	}
	return errors.New("ledger remote: " + r.Error)
}

// LedgerService is the single writer behind LedgerClient.
type LedgerService struct {
	Conn   *nats.Conn
	ledger ports.LedgerAppender
	obs    ports.Observability
}

func NewLedgerService(url string, l ports.LedgerAppender, obs ports.Observability) (*LedgerService, error) {
	conn, err := nats.Connect(url, nats.Name("aegis-maint ledger service"))
	if err != nil {
		return nil, err
	}
	return &LedgerService{Conn: conn, ledger: l, obs: obs}, nil
}

// Serve subscribes on subject; a queue group keeps one responder per request
// when several services are started by mistake.
func (s *LedgerService) Serve(subject string) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return s.Conn.QueueSubscribe(subject, "ledger-writers", func(msg *nats.Msg) {
		if err := msg.Respond(s.Handle(msg.Data)); err != nil && s.obs != nil {
			s.obs.LogError("ledger reply failed", err)
		}
	})
}

// Handle applies one request and returns the encoded reply. Nothing is
// written unless the payload carries all six columns and passes validation.
func (s *LedgerService) Handle(data []byte) []byte {
	r := reply{OK: true}
	rec, err := decode(data)
	if err == nil {
		err = s.ledger.Append(rec)
	}
	if err != nil {
		r = reply{Code: codeIO, Error: err.Error()}
		switch {
		case errors.Is(err, ledger.ErrMissingField):
			r.Code = codeMissingField
		case errors.Is(err, ledger.ErrInvalidRecord):
			r.Code = codeInvalid
		}
	}
	if s.obs != nil {
		if r.OK {
			s.obs.IncCounter(observability.RecordsAppended, 1)
		} else {
			s.obs.LogError("ledger append rejected", errors.New(r.Error), ports.Field{Key: "code", Value: r.Code})
		}
	}
	out, _ := json.Marshal(r)
	return out
}

func (s *LedgerService) Close() {
	if s.Conn != nil {
		s.Conn.Drain()
		s.Conn.Close()
	}
}

var _ ports.LedgerAppender = (*LedgerClient)(nil)
