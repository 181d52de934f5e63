package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "support-desk" {
		t.Fatalf("app name: %q", cfg.App.Name)
	}
	if cfg.Support.SLAMinutes != 120 {
		t.Fatalf("sla minutes: %d", cfg.Support.SLAMinutes)
	}
	if cfg.Support.SLAWindow() != 2*time.Hour {
		t.Fatalf("sla window: %v", cfg.Support.SLAWindow())
	}
	if cfg.Mailbox.Folder != "INBOX" {
		t.Fatalf("folder: %q", cfg.Mailbox.Folder)
	}
	if cfg.Mailbox.Configured() {
		t.Fatal("mailbox must not report configured without credentials")
	}
}

func TestLoadRejectsNonPositiveSLA(t *testing.T) {
	t.Setenv("SUPPORT_SLA_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero SLA window")
	}
	t.Setenv("SUPPORT_SLA_MINUTES", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative SLA window")
	}
}

func TestLoadEscalationRecipients(t *testing.T) {
	t.Setenv("SUPPORT_ESCALATION_RECIPIENTS", "lead@example.com, oncall@example.com ,,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := cfg.Support.EscalationRecipients
	if len(got) != 2 {
		t.Fatalf("recipients: %v", got)
	}
	if got[0] != "lead@example.com" || got[1] != "oncall@example.com" {
		t.Fatalf("recipients not trimmed: %v", got)
	}
}

func TestMailboxConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  MailboxConfig
		want bool
	}{
		{"complete", MailboxConfig{Host: "h", Username: "u", Password: "p"}, true},
		{"missing host", MailboxConfig{Username: "u", Password: "p"}, false},
		{"missing user", MailboxConfig{Host: "h", Password: "p"}, false},
		{"missing password", MailboxConfig{Host: "h", Username: "u"}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.Configured(); got != tc.want {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
}

func TestMailboxAddr(t *testing.T) {
	m := MailboxConfig{Host: "imap.example.com", Port: 993}
	if m.Addr() != "imap.example.com:993" {
		t.Fatalf("addr: %q", m.Addr())
	}
}

func TestGetEnvAsBoolFallback(t *testing.T) {
	t.Setenv("SOME_FLAG", "not-a-bool")
	if got := getEnvAsBool("SOME_FLAG", true); !got {
		t.Fatal("unparseable value must fall back")
	}
	t.Setenv("SOME_FLAG", "false")
	if got := getEnvAsBool("SOME_FLAG", true); got {
		t.Fatal("explicit false must win over the fallback")
	}
}
