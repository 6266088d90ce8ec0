// SPDX-License-Identifier: MPL-2.0

package credparse

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

func TestExtract_LogonPasswords(t *testing.T) {
	t.Parallel()

	res := NewExtractor().Extract(readFixture(t, "logonpasswords.txt"))

	want := Batch{
		{Kind: KindHash, Domain: "EXAMPLE.COM", Username: "WIN-ABC$", Secret: "8846f7eaee8fb117ad06bdd830b7586c", Host: "WIN-ABC", SID: exampleSID},
		{Kind: KindHash, Domain: "EXAMPLE.COM", Username: "alice", Secret: "64f12cddaa88057e06a81b54e73b949b", Host: "WIN-ABC", SID: exampleSID},
		{Kind: KindPlaintext, Domain: "EXAMPLE.COM", Username: "alice", Secret: "Summer2026!", Host: "WIN-ABC", SID: exampleSID},
		{Kind: KindPlaintext, Domain: "FILESRV01", Username: "backup", Secret: "Backup#1", Host: "WIN-ABC"},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	if res.Format != FormatDump {
		t.Errorf("Format = %s, want %s", res.Format, FormatDump)
	}
	if res.Strategy != "logonpasswords" {
		t.Errorf("Strategy = %q, want logonpasswords", res.Strategy)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestExtract_MachineAccountPlaintextDropped(t *testing.T) {
	t.Parallel()

	dump := strings.Join([]string{
		"Hostname: WIN-ABC/EXAMPLE.COM/S-1-5-21-1",
		"",
		"Authentication Id : 0 ; 996 (00000000:000003e4)",
		"\tmsv :\t",
		"\t * Username : MACHINE$",
		"\t * Domain   : EXAMPLE",
		"\t * NTLM     : 31d6cfe0d16ae931b73c59d7e0c089c0",
		"\twdigest :\t",
		"\t * Username : MACHINE$",
		"\t * Domain   : EXAMPLE",
		"\t * Password : long random machine password",
	}, "\n")

	got := Extract(dump)
	want := Batch{{Kind: KindHash, Domain: "EXAMPLE.COM", Username: "MACHINE$", Secret: "31d6cfe0d16ae931b73c59d7e0c089c0", Host: "WIN-ABC", SID: "S-1-5-21-1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_DomainQualification(t *testing.T) {
	t.Parallel()

	section := func(domain string) string {
		return strings.Join([]string{
			"Authentication Id : 0 ; 1",
			"\twdigest :",
			"\t * Username : carol",
			"\t * Domain   : " + domain,
			"\t * Password : pw-" + domain,
		}, "\n")
	}
	dump := "Hostname: WIN-ABC/EXAMPLE.COM/S-1-5-21-9\n\n" + strings.Join([]string{
		section("example"), section("EXAMPLE.COM"), section("EXAM"), section("OTHER"),
	}, "\n")

	got := Extract(dump)
	want := Batch{
		{Kind: KindPlaintext, Domain: "EXAMPLE.COM", Username: "carol", Secret: "pw-example", Host: "WIN-ABC", SID: "S-1-5-21-9"},
		{Kind: KindPlaintext, Domain: "EXAMPLE.COM", Username: "carol", Secret: "pw-EXAMPLE.COM", Host: "WIN-ABC", SID: "S-1-5-21-9"},
		{Kind: KindPlaintext, Domain: "EXAMPLE.COM", Username: "carol", Secret: "pw-EXAM", Host: "WIN-ABC", SID: "S-1-5-21-9"},
		{Kind: KindPlaintext, Domain: "OTHER", Username: "carol", Secret: "pw-OTHER", Host: "WIN-ABC"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_FirstLabelWins(t *testing.T) {
	t.Parallel()

	dump := strings.Join([]string{
		"Hostname: H/D.LOCAL/S-1",
		"Authentication Id : 0 ; 2",
		"\tmsv :",
		"\t * Username : first",
		"\t * Domain   : OTHER",
		"\t * NTLM     : aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"\t * Username : second",
		"\t * NTLM     : bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}, "\n")

	got := Extract(dump)
	want := Batch{{Kind: KindHash, Domain: "OTHER", Username: "first", Secret: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Host: "H"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_KrbtgtFallback(t *testing.T) {
	t.Parallel()

	res := NewExtractor().Extract(readFixture(t, "lsadump_krbtgt.txt"))

	want := Batch{{Kind: KindHash, Domain: "corp.local", Username: "krbtgt", Secret: krbtgtHash, Host: "DC01", SID: corpSID}}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	if res.Strategy != "lsadump-krbtgt" {
		t.Errorf("Strategy = %q, want lsadump-krbtgt", res.Strategy)
	}
}

func TestExtract_KrbtgtBannerOutsideWindow(t *testing.T) {
	t.Parallel()

	text := readFixture(t, "lsadump_krbtgt.txt")
	// Pushing the banner past the searched lines disables the fallback.
	shifted := strings.Replace(text, "mimikatz(powershell) # lsadump::lsa /patch", "\n\n\n\n\nmimikatz(powershell) # lsadump::lsa /patch", 1)

	if got := Extract(shifted); len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestExtract_KrbtgtBannerDifferentDomain(t *testing.T) {
	t.Parallel()

	text := strings.Replace(readFixture(t, "lsadump_krbtgt.txt"), "Domain : CORP / S-1-5-21-2222-3333-4444", "Domain : PARTNER / S-1-5-21-7", 1)

	want := Batch{{Kind: KindHash, Domain: "PARTNER", Username: "krbtgt", Secret: krbtgtHash, Host: "DC01", SID: "S-1-5-21-7"}}
	if diff := cmp.Diff(want, Extract(text)); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_DCSyncFallback(t *testing.T) {
	t.Parallel()

	res := NewExtractor().Extract(readFixture(t, "dcsync.txt"))

	want := Batch{{Kind: KindHash, Domain: "corp.local", Username: "krbtgt", Secret: krbtgtHash, Host: "DC01", SID: corpSID}}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	if res.Strategy != "dcsync" {
		t.Errorf("Strategy = %q, want dcsync", res.Strategy)
	}
}

func TestExtract_DumpWithoutRecords(t *testing.T) {
	t.Parallel()

	res := NewExtractor().Extract("Hostname: WIN-ABC/EXAMPLE.COM/S-1-5-21-1\n\nERROR kuhl_m_sekurlsa_acquireLSA ; Handle on memory (0x00000005)\n")
	if len(res.Records) != 0 {
		t.Errorf("expected no records, got %v", res.Records)
	}
	if res.Format != FormatDump || res.Strategy != "" {
		t.Errorf("Format, Strategy = %s, %q", res.Format, res.Strategy)
	}
}

func TestExtract_Prompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Batch
	}{
		{
			name: "domain user on following line",
			in:   "[+] Prompted credentials:\n...->DOMAIN\\user:pass",
			want: Batch{{Kind: KindPlaintext, Domain: "DOMAIN", Username: "user", Secret: "pass"}},
		},
		{
			name: "single line with spaces",
			in:   "[+] Prompted credentials: -> CORP\\alice : Spring 2026!\n",
			want: Batch{{Kind: KindPlaintext, Domain: "CORP", Username: "alice", Secret: "Spring 2026!"}},
		},
		{
			name: "local user and colon in password",
			in:   "[+] Prompted credentials: -> bob:pa:ss",
			want: Batch{{Kind: KindPlaintext, Username: "bob", Secret: "pa:ss"}},
		},
		{
			name: "missing delimiter",
			in:   "[+] Prompted credentials: user cancelled",
			want: Batch{},
		},
		{
			name: "missing colon",
			in:   "[+] Prompted credentials: -> CORP\\alice",
			want: Batch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := NewExtractor().Extract(tt.in)
			if diff := cmp.Diff(tt.want, res.Records); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
			if res.Format != FormatPrompt {
				t.Errorf("Format = %s, want %s", res.Format, FormatPrompt)
			}
			if len(tt.want) == 0 && len(res.Warnings) == 0 {
				t.Error("expected a warning for malformed prompt output")
			}
		})
	}
}

func TestExtract_CapturedText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Batch
	}{
		{"button returned:OK, text returned:hunter2", Batch{{Kind: KindPlaintext, Secret: "hunter2"}}},
		{"job output\nbutton returned:OK, text returned: s3cret \nmore", Batch{{Kind: KindPlaintext, Secret: "s3cret"}}},
		{"text returned:a text returned:b", Batch{{Kind: KindPlaintext, Secret: "b"}}},
		{"button returned:OK, text returned:", Batch{}},
	}
	for _, tt := range tests {
		res := NewExtractor().Extract(tt.in)
		if diff := cmp.Diff(tt.want, res.Records); diff != "" {
			t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
		if res.Format != FormatCapturedText {
			t.Errorf("Extract(%q) Format = %s", tt.in, res.Format)
		}
	}
}

func TestExtract_Unrecognized(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   \n", "Job started\nHostname: later line", "random tool output"} {
		res := NewExtractor().Extract(in)
		if res.Records == nil || len(res.Records) != 0 {
			t.Errorf("Extract(%q) = %#v, want empty non-nil batch", in, res.Records)
		}
		if res.Format != FormatUnknown {
			t.Errorf("Extract(%q) Format = %s, want %s", in, res.Format, FormatUnknown)
		}
	}
}

func TestExtract_LeadingWhitespaceAndCRLF(t *testing.T) {
	t.Parallel()

	in := "\r\n  [+] Prompted credentials: -> CORP\\alice:pw\r\n"
	want := Batch{{Kind: KindPlaintext, Domain: "CORP", Username: "alice", Secret: "pw"}}
	if diff := cmp.Diff(want, Extract(in)); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_TruncatedInputsNeverFail(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"logonpasswords.txt", "lsadump_krbtgt.txt", "dcsync.txt"} {
		lines := strings.Split(readFixture(t, name), "\n")
		for i := range lines {
			res := NewExtractor().Extract(strings.Join(lines[:i], "\n"))
			for _, w := range res.Warnings {
				if strings.Contains(w, "parser failure") {
					t.Errorf("%s truncated at line %d: %s", name, i, w)
				}
			}
			for _, r := range res.Records {
				if r.Username == "" && res.Format == FormatDump {
					t.Errorf("%s truncated at line %d: record without username %+v", name, i, r)
				}
			}
		}
	}
}

func TestExtractor_LogsDiagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	NewExtractor(WithLogger(logger)).Extract("[+] Prompted credentials: nothing here")
	if !strings.Contains(buf.String(), "delimiter") {
		t.Errorf("expected warning in logs, got %q", buf.String())
	}
}
