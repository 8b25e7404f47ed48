package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// OPCUAConfig captures the session details and the three monitored nodes.
type OPCUAConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	Nodes            OPCUANodes    `yaml:"nodes"`
}

// OPCUANodes maps each channel to its node id, e.g. "ns=2;s=Machine1.Temperature".
type OPCUANodes struct {
	Temperature string `yaml:"temperature"`
	Vibration   string `yaml:"vibration"`
	Torque      string `yaml:"torque"`
}

func (c *OPCUAConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Aegis Maintenance Producer"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
}

func (c *OPCUAConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("opcua endpoint is required")
	}
	if c.Nodes.Temperature == "" || c.Nodes.Vibration == "" || c.Nodes.Torque == "" {
		return errors.New("opcua nodes temperature, vibration and torque are required")
	}
	return nil
}

const (
	chTemperature = iota
	chVibration
	chTorque
	numChannels
)

// OPCUA subscribes to the three channel nodes and serves the most recent
// value of each on Next. Next blocks until every channel has reported once.
type OPCUA struct {
	cfg OPCUAConfig

	mu      sync.Mutex
	client  *opcua.Client
	sub     *opcua.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	latest  [numChannels]float64
	seen    [numChannels]bool
	stamp   time.Time
	ready   chan struct{}
	readyOK bool
}

func NewOPCUA(cfg OPCUAConfig) (*OPCUA, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OPCUA{cfg: cfg, ready: make(chan struct{})}, nil
}

// Start connects, subscribes and begins consuming notifications.
func (o *OPCUA) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("opcua source already started")
	}
	o.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	client, err := opcua.NewClient(o.cfg.Endpoint, o.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, numChannels*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: o.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	nodes := [numChannels]string{o.cfg.Nodes.Temperature, o.cfg.Nodes.Vibration, o.cfg.Nodes.Torque}
	for ch, raw := range nodes {
		nodeID, err := ua.ParseNodeID(raw)
		if err != nil {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", raw, err)
		}
		// client handles are channel index + 1 so zero never matches
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, uint32(ch+1))
		if o.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(o.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", raw, err)
		}
		if len(res.Results) == 0 {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: empty result", raw)
		}
		if res.Results[0].StatusCode != ua.StatusOK {
			cleanup(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: %s", raw, res.Results[0].StatusCode)
		}
	}

	o.mu.Lock()
	o.client = client
	o.sub = sub
	o.cancel = cancel
	o.started = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.consume(runCtx, notifyCh)
	return nil
}

// Next returns the latest value of every channel, stamped with the newest
// server timestamp seen.
func (o *OPCUA) Next(ctx context.Context) (domain.SensorReading, error) {
	select {
	case <-ctx.Done():
		return domain.SensorReading{}, ctx.Err()
	case <-o.ready:
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.SensorReading{
		Timestamp:   o.stamp,
		Temperature: o.latest[chTemperature],
		Vibration:   o.latest[chVibration],
		Torque:      o.latest[chTorque],
	}, nil
}

func (o *OPCUA) Close() error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	cancel, sub, client := o.cancel, o.sub, o.client
	o.started = false
	o.cancel, o.sub, o.client = nil, nil, nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	o.wg.Wait()
	return err
}

func (o *OPCUA) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil || notif.Error != nil {
				continue
			}
			data, ok := notif.Value.(*ua.DataChangeNotification)
			if !ok {
				continue
			}
			for _, item := range data.MonitoredItems {
				if item == nil || item.Value == nil {
					continue
				}
				v, ok := variantToFloat(item.Value.Value)
				if !ok {
					continue
				}
				ts := item.Value.ServerTimestamp
				if ts.IsZero() {
					ts = item.Value.SourceTimestamp
				}
				o.observe(int(item.ClientHandle)-1, v, ts)
			}
		}
	}
}

// observe stores one channel update.
func (o *OPCUA) observe(ch int, v float64, ts time.Time) {
	if ch < 0 || ch >= numChannels {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest[ch] = v
	o.seen[ch] = true
	if ts.After(o.stamp) {
		o.stamp = ts
	}
	if !o.readyOK && o.seen[chTemperature] && o.seen[chVibration] && o.seen[chTorque] {
		o.readyOK = true
		close(o.ready)
	}
}

func (o *OPCUA) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(o.cfg.SecurityMode)),
		opcua.SecurityPolicy(o.cfg.SecurityPolicy),
		opcua.ApplicationName(o.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if o.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(o.cfg.Username, o.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func cleanup(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

var _ ports.Source = (*OPCUA)(nil)
