package config

import (
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DB.Host != "127.0.0.1" || cfg.DB.Port != 3306 {
		t.Errorf("DB defaults = %s:%d", cfg.DB.Host, cfg.DB.Port)
	}
	if cfg.DB.User != "root" || cfg.DB.Database != "comms" {
		t.Errorf("DB defaults = %s/%s", cfg.DB.User, cfg.DB.Database)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Sweep.IntervalSeconds != 60 {
		t.Errorf("Sweep.IntervalSeconds = %d, want 60", cfg.Sweep.IntervalSeconds)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
db:
  host: db.internal
  port: 3307
  user: comms
  password: hunter2
  database: comms_prod
http:
  port: 9000
sweep:
  interval_seconds: 30
  digest_schedule: "0 9 * * *"
ops:
  slack_token: xoxb-test
  slack_channel: C0OPS
proposal_types:
  - type: DISPUTE_APPEAL
    required_role: SHIPPER
    response_action_type: TEXT_INPUT
    default_timeout_minutes: 2880
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 3307 {
		t.Errorf("DB = %s:%d", cfg.DB.Host, cfg.DB.Port)
	}
	if cfg.Sweep.DigestSchedule != "0 9 * * *" {
		t.Errorf("DigestSchedule = %q", cfg.Sweep.DigestSchedule)
	}
	if len(cfg.ProposalTypes) != 1 {
		t.Fatalf("ProposalTypes = %d, want 1", len(cfg.ProposalTypes))
	}
	pt := cfg.ProposalTypes[0]
	if pt.Type != "DISPUTE_APPEAL" || pt.RequiredRole != "SHIPPER" || pt.DefaultTimeoutMinutes != 2880 {
		t.Errorf("seed = %+v", pt)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing seed type",
			yaml: "proposal_types:\n  - required_role: SHIPPER\n",
			want: "type is required",
		},
		{
			name: "duplicate seed type",
			yaml: "proposal_types:\n  - type: X\n    response_action_type: TEXT_INPUT\n  - type: X\n    response_action_type: TEXT_INPUT\n",
			want: "duplicate type",
		},
		{
			name: "missing response action",
			yaml: "proposal_types:\n  - type: X\n",
			want: "response_action_type is required",
		},
		{
			name: "negative timeout",
			yaml: "proposal_types:\n  - type: X\n    response_action_type: TEXT_INPUT\n    default_timeout_minutes: -5\n",
			want: "must not be negative",
		},
		{
			name: "slack token without channel",
			yaml: "ops:\n  slack_token: xoxb-test\n",
			want: "slack_channel is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("db: [not a map")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
