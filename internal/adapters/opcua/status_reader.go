package opcua

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
// An empty Endpoint disables live status.
type Config struct {
	Endpoint        string        `yaml:"endpoint" env:"AEGIS_OPCUA_ENDPOINT, overwrite"`
	Username        string        `yaml:"username" env:"AEGIS_OPCUA_USERNAME, overwrite"`
	Password        string        `yaml:"password" env:"AEGIS_OPCUA_PASSWORD, overwrite"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	MaxAge          time.Duration `yaml:"max_age"`
	Nodes           []NodeConfig  `yaml:"nodes"`
}

// NodeConfig maps a state tag to a piece of equipment. States translates
// numeric tag values into state names.
type NodeConfig struct {
	NodeID      string            `yaml:"node_id"`
	EquipmentID string            `yaml:"equipment_id"`
	States      map[string]string `yaml:"states"`
}

func (c *Config) Enabled() bool { return c.Endpoint != "" }

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "AegisInsight"
	}
	if c.MaxAge < 0 {
		c.MaxAge = 0
	}
	for i := range c.Nodes {
		if c.Nodes[i].EquipmentID == "" {
			c.Nodes[i].EquipmentID = c.Nodes[i].NodeID
		}
	}
}

func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for _, n := range c.Nodes {
		if _, err := ua.ParseNodeID(n.NodeID); err != nil {
			return fmt.Errorf("node %q: %w", n.NodeID, err)
		}
	}
	return nil
}

// StatusReader reads the configured state tags on demand over one lazily
// opened session.
type StatusReader struct {
	cfg   Config
	nodes []*ua.ReadValueID

	mu     sync.Mutex
	client *opcua.Client
}

func NewStatusReader(cfg Config) (*StatusReader, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled() {
		return nil, errors.New("opcua endpoint is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes := make([]*ua.ReadValueID, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		id, err := ua.ParseNodeID(n.NodeID)
		if err != nil {
			return nil, fmt.Errorf("parse node id %q: %w", n.NodeID, err)
		}
		nodes = append(nodes, &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue})
	}
	return &StatusReader{cfg: cfg, nodes: nodes}, nil
}

func (r *StatusReader) ReadStatus(ctx context.Context) ([]domain.EquipmentStatus, error) {
	client, err := r.session(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Read(ctx, &ua.ReadRequest{
		MaxAge:             float64(r.cfg.MaxAge / time.Millisecond),
		NodesToRead:        r.nodes,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	})
	if err != nil {
		r.reset(ctx)
		return nil, fmt.Errorf("opcua read: %w", err)
	}
	if len(resp.Results) != len(r.cfg.Nodes) {
		return nil, fmt.Errorf("opcua read: %d results for %d nodes", len(resp.Results), len(r.cfg.Nodes))
	}

	out := make([]domain.EquipmentStatus, 0, len(resp.Results))
	for i, dv := range resp.Results {
		node := r.cfg.Nodes[i]
		st := domain.EquipmentStatus{EquipmentID: node.EquipmentID, NodeID: node.NodeID, ObservedAt: observedAt(dv)}
		if dv == nil || dv.Status != ua.StatusOK {
			st.State = "UNKNOWN"
			out = append(out, st)
			continue
		}
		st.State, st.Value = stateOf(dv.Value, node.States)
		out = append(out, st)
	}
	return out, nil
}

// Close ends the session, if one is open.
func (r *StatusReader) Close(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()
	if client == nil {
		return nil
	}
	if err := client.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *StatusReader) session(ctx context.Context) (*opcua.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}

	client, err := opcua.NewClient(r.cfg.Endpoint, r.buildClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	r.client = client
	return client, nil
}

func (r *StatusReader) reset(ctx context.Context) {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()
	if client != nil {
		_ = client.Close(ctx)
	}
}

func (r *StatusReader) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(r.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(r.cfg.SecurityPolicy)),
		opcua.ApplicationName(r.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if r.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(r.cfg.Username, r.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func observedAt(dv *ua.DataValue) time.Time {
	if dv == nil {
		return time.Now()
	}
	if !dv.SourceTimestamp.IsZero() {
		return dv.SourceTimestamp
	}
	if !dv.ServerTimestamp.IsZero() {
		return dv.ServerTimestamp
	}
	return time.Now()
}

// stateOf turns a tag value into a state name. Strings pass through, booleans
// mean RUNNING/STOPPED, and numbers are looked up in states.
func stateOf(v *ua.Variant, states map[string]string) (string, float64) {
	if v == nil {
		return "UNKNOWN", 0
	}
	switch val := v.Value().(type) {
	case string:
		return strings.ToUpper(val), 0
	case bool:
		if val {
			return "RUNNING", 1
		}
		return "STOPPED", 0
	}
	f, ok := variantToFloat(v)
	if !ok {
		return "UNKNOWN", 0
	}
	if name, ok := states[strconv.FormatFloat(f, 'f', -1, 64)]; ok {
		return name, f
	}
	return "UNKNOWN", f
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
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
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

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.StatusReader = (*StatusReader)(nil)
