package fairness

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestParseSide(t *testing.T) {
	cases := []struct {
		input   string
		want    Side
		wantErr bool
	}{
		{"heads", SideHeads, false},
		{"tails", SideTails, false},
		{"HEADS", SideHeads, false},
		{"  Tails  ", SideTails, false},
		{"", "", true},
		{"edge", "", true},
		{"head", "", true},
	}

	for _, c := range cases {
		got, err := ParseSide(c.input)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseSide(%q): expected error, got %q", c.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSide(%q): unexpected error: %v", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseSide(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestGenerateSeed(t *testing.T) {
	seed1, err := GenerateSeed()
	if err != nil {
		t.Fatalf("GenerateSeed: %v", err)
	}
	seed2, err := GenerateSeed()
	if err != nil {
		t.Fatalf("GenerateSeed: %v", err)
	}

	if len(seed1) != 64 {
		t.Errorf("seed length = %d, want 64 hex chars", len(seed1))
	}
	if _, err := hex.DecodeString(seed1); err != nil {
		t.Errorf("seed is not hex: %v", err)
	}
	if seed1 == seed2 {
		t.Error("two generated seeds are identical")
	}
}

func TestOutcomeIsDeterministic(t *testing.T) {
	clientSeed := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	serverSeed := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	combined := Combine(clientSeed, serverSeed)
	first, err := OutcomeFromHash(combined)
	if err != nil {
		t.Fatalf("OutcomeFromHash: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := OutcomeFromHash(Combine(clientSeed, serverSeed))
		if err != nil {
			t.Fatalf("OutcomeFromHash: %v", err)
		}
		if again != first {
			t.Fatalf("outcome not deterministic: got %q then %q", first, again)
		}
	}
}

func TestOutcomeParityMapping(t *testing.T) {
	// First byte even -> heads, odd -> tails.
	cases := []struct {
		hash string
		want Side
	}{
		{"00" + strings.Repeat("0", 62), SideHeads},
		{"01" + strings.Repeat("0", 62), SideTails},
		{"fe" + strings.Repeat("0", 62), SideHeads},
		{"ff" + strings.Repeat("0", 62), SideTails},
		{"9c" + strings.Repeat("0", 62), SideHeads},
	}

	for _, c := range cases {
		got, err := OutcomeFromHash(c.hash)
		if err != nil {
			t.Errorf("OutcomeFromHash(%s...): %v", c.hash[:2], err)
			continue
		}
		if got != c.want {
			t.Errorf("OutcomeFromHash(%s...) = %q, want %q", c.hash[:2], got, c.want)
		}
	}
}

func TestOutcomeFromHashRejectsMalformed(t *testing.T) {
	if _, err := OutcomeFromHash(""); err == nil {
		t.Error("expected error for empty hash")
	}
	if _, err := OutcomeFromHash("z"); err == nil {
		t.Error("expected error for short hash")
	}
	if _, err := OutcomeFromHash("zz00"); err == nil {
		t.Error("expected error for non-hex hash")
	}
}

func TestVerifyValidChain(t *testing.T) {
	clientSeed, _ := GenerateSeed()
	serverSeed, _ := GenerateSeed()

	clientHash := HashSeed(clientSeed)
	serverHash := HashSeed(serverSeed)
	combined := Combine(clientSeed, serverSeed)
	outcome, err := OutcomeFromHash(combined)
	if err != nil {
		t.Fatalf("OutcomeFromHash: %v", err)
	}

	result := Verify(clientSeed, clientHash, serverSeed, serverHash, combined, outcome)
	if !result.Valid {
		t.Fatalf("valid chain rejected: %s", result.Mismatch)
	}
	if result.Mismatch != "" {
		t.Errorf("valid result carries a mismatch: %q", result.Mismatch)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	clientSeed, _ := GenerateSeed()
	serverSeed, _ := GenerateSeed()

	clientHash := HashSeed(clientSeed)
	serverHash := HashSeed(serverSeed)
	combined := Combine(clientSeed, serverSeed)
	outcome, _ := OutcomeFromHash(combined)

	otherSeed, _ := GenerateSeed()
	claimedOther := SideHeads
	if outcome == SideHeads {
		claimedOther = SideTails
	}

	cases := []struct {
		name   string
		result VerificationResult
	}{
		{"swapped client seed", Verify(otherSeed, clientHash, serverSeed, serverHash, combined, outcome)},
		{"swapped server seed", Verify(clientSeed, clientHash, otherSeed, serverHash, combined, outcome)},
		{"wrong combined hash", Verify(clientSeed, clientHash, serverSeed, serverHash, HashSeed("x"), outcome)},
		{"wrong claimed outcome", Verify(clientSeed, clientHash, serverSeed, serverHash, combined, claimedOther)},
	}

	for _, c := range cases {
		if c.result.Valid {
			t.Errorf("%s: tampered chain passed verification", c.name)
		}
		if c.result.Mismatch == "" {
			t.Errorf("%s: no mismatch reported", c.name)
		}
	}
}
