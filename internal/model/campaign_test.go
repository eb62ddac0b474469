package model

import "testing"

func TestCampaignStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from CampaignStatus
		to   CampaignStatus
		want bool
	}{
		{CampaignDraft, CampaignScheduled, true},
		{CampaignDraft, CampaignActive, false},
		{CampaignDraft, CampaignCancelled, true},
		{CampaignScheduled, CampaignActive, true},
		{CampaignScheduled, CampaignDraft, true},
		{CampaignActive, CampaignCompleted, true},
		{CampaignActive, CampaignDraft, false},
		{CampaignCompleted, CampaignActive, false},
		{CampaignCancelled, CampaignDraft, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCampaignStatus_Terminal(t *testing.T) {
	t.Parallel()

	for _, s := range []CampaignStatus{CampaignCompleted, CampaignCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.AcceptsTargets() {
			t.Errorf("%s should not accept targets", s)
		}
	}
	if CampaignActive.AcceptsTargets() {
		t.Error("active campaign should not accept targets")
	}
}

func TestCampaignType_Channels(t *testing.T) {
	t.Parallel()

	if !CampaignBoth.UsesEmail() || !CampaignBoth.UsesSMS() {
		t.Error("both should use email and sms")
	}
	if CampaignEmail.UsesSMS() {
		t.Error("email campaign should not use sms")
	}
	if CampaignType("fax").IsValid() {
		t.Error("unknown type should be invalid")
	}
}

func TestPhishingTemplate_VisibleTo(t *testing.T) {
	t.Parallel()

	owner := "acc-1"
	builtin := &PhishingTemplate{ID: "t1"}
	custom := &PhishingTemplate{ID: "t2", IsCustom: true, CreatedBy: &owner}

	if !builtin.VisibleTo("anyone") {
		t.Error("built-in template should be visible to everyone")
	}
	if !custom.VisibleTo(owner) {
		t.Error("custom template should be visible to its creator")
	}
	if custom.VisibleTo("acc-2") {
		t.Error("custom template should be hidden from other accounts")
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := NormalizeEmail("  Jane@X.com "); got != "jane@x.com" {
		t.Errorf("NormalizeEmail = %q, want jane@x.com", got)
	}
}
