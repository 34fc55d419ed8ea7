package models

import "testing"

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"deposit":    KindDeposit,
		"withdrawal": KindWithdrawal,
		"send":       KindSend,
		"sending":    KindSend,
	}
	for raw, want := range cases {
		got, ok := ParseKind(raw)
		if !ok || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParseKind("transfer"); ok {
		t.Fatal("transfer is not a supported kind")
	}
}

func TestKindDebits(t *testing.T) {
	if KindDeposit.Debits() {
		t.Fatal("deposit must not escrow")
	}
	if !KindWithdrawal.Debits() || !KindSend.Debits() {
		t.Fatal("withdrawal and send escrow funds")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatal("pending is not terminal")
	}
	if !StatusApproved.Terminal() || !StatusRejected.Terminal() {
		t.Fatal("approved and rejected are terminal")
	}
}

func TestDisplayName(t *testing.T) {
	if got := (Profile{FirstName: "Ada", LastName: "Obi"}).DisplayName(); got != "Ada Obi" {
		t.Fatalf("unexpected name: %s", got)
	}
	if got := (Profile{Username: "ada"}).DisplayName(); got != "ada" {
		t.Fatalf("unexpected name: %s", got)
	}
}
