// SPDX-License-Identifier: MPL-2.0

package credparse

import (
	"regexp"
	"strings"
)

const (
	// placeholderSecret is what dumps print for an empty credential.
	placeholderSecret = "(null)"
	// machineAccountSuffix ends computer account names.
	machineAccountSuffix = "$"

	principalMarker = "Authentication Id :"
	promptPrefix    = "mimikatz"

	// The lsadump banner is searched on these line indices, counted from the
	// Hostname line. This follows the fixed layout of the dump banner.
	lsaBannerFirstLine = 8
	lsaBannerLastLine  = 12
	lsaBannerPrefix    = "Domain :"
	krbtgtUserLine     = "User : krbtgt"
	// krbtgtHashOffset is the distance from the user line to the NTLM line.
	krbtgtHashOffset = 2

	samAccountBanner = "** SAM ACCOUNT **"
)

// providerPattern finds the provider sub-section headers of one principal.
var providerPattern = regexp.MustCompile(`\b(?:msv|tspkg|wdigest|kerberos|ssp|credman) :`)

type (
	// dump is the parsed shell of a credential dump.
	dump struct {
		text   string
		lines  []string
		header header
	}

	// header carries the host identity from the Hostname banner.
	header struct {
		host   string
		domain string
		sid    string
	}

	// dumpStrategy is one way of reading records out of a dump. Strategies are
	// tried in order and the first one returning records wins.
	dumpStrategy struct {
		name  string
		parse func(d *dump) Batch
	}
)

var dumpStrategies = []dumpStrategy{
	{name: "logonpasswords", parse: parseLogonPasswords},
	{name: "lsadump-krbtgt", parse: parseKrbtgt},
	{name: "dcsync", parse: parseDCSync},
}

func (e *Extractor) extractDump(text string, res *Result) {
	d := newDump(text)
	if d.header.domain == "" && d.header.sid == "" {
		e.warn(res, "credential dump: Hostname banner has no domain or SID")
	}

	for _, s := range dumpStrategies {
		if batch := s.parse(d); len(batch) > 0 {
			res.Strategy = s.name
			res.Records = append(res.Records, batch...)
			return
		}
	}
	e.logger.Debug("credential dump contained no usable records", "host", d.header.host)
}

func newDump(text string) *dump {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	d := &dump{text: text, lines: lines}
	for _, line := range lines[:min(2, len(lines))] {
		if strings.HasPrefix(line, dumpMarker) {
			d.header = parseHeader(strings.TrimPrefix(line, dumpMarker))
			break
		}
	}
	return d
}

// parseHeader reads "<host>/<domain>/<sid>" or the older
// "<host>.<domain> / <sid>" layout.
func parseHeader(value string) header {
	parts := strings.Split(value, "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch {
	case len(parts) >= 3:
		return header{host: parts[0], domain: parts[1], sid: parts[2]}
	case len(parts) == 2:
		host, domain, _ := strings.Cut(parts[0], ".")
		return header{host: host, domain: domain, sid: parts[1]}
	default:
		host, domain, _ := strings.Cut(parts[0], ".")
		return header{host: host, domain: domain}
	}
}

// qualify swaps a short domain name for the banner's fully qualified domain
// and SID when it is a case-insensitive prefix of it.
func (h header) qualify(domain, sid string) (string, string) {
	if h.domain != "" && strings.HasPrefix(strings.ToLower(h.domain), strings.ToLower(domain)) {
		return h.domain, h.sid
	}
	return domain, sid
}

// parseLogonPasswords reads one record per provider section of every
// principal block.
func parseLogonPasswords(d *dump) Batch {
	var batch Batch
	for _, block := range strings.Split(d.text, principalMarker) {
		for _, section := range providerSections(block) {
			if r, ok := d.sectionRecord(section); ok {
				batch = append(batch, r)
			}
		}
	}
	return batch
}

// providerSections splits a principal block at its provider headers. Text
// after a line starting with the interactive prompt is not part of the block.
func providerSections(block string) []string {
	if i := strings.Index(block, "\n"+promptPrefix); i >= 0 {
		block = block[:i]
	}

	locs := providerPattern.FindAllStringIndex(block, -1)
	sections := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(block)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, block[loc[1]:end])
	}
	return sections
}

// sectionRecord builds a record from the first Username, Domain and
// NTLM/Password lines of a provider section.
func (d *dump) sectionRecord(section string) (Record, bool) {
	var username, domain, secret string
	var haveUser, haveDomain, haveSecret bool

	for _, line := range strings.Split(section, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.Contains(label, "Username"):
			if !haveUser {
				username, haveUser = value, true
			}
		case strings.Contains(label, "Domain"):
			if !haveDomain {
				domain, haveDomain = value, true
			}
		case strings.Contains(label, "NTLM"), strings.Contains(label, "Password"):
			if !haveSecret {
				secret, haveSecret = value, true
			}
		}
	}

	if username == "" || secret == "" || secret == placeholderSecret {
		return Record{}, false
	}

	kind := classify(secret)
	if kind == KindPlaintext && strings.HasSuffix(username, machineAccountSuffix) {
		return Record{}, false
	}

	domain, sid := d.header.qualify(domain, "")
	return Record{
		Kind:     kind,
		Domain:   domain,
		Username: username,
		Secret:   secret,
		Host:     d.header.host,
		SID:      sid,
	}, true
}

// parseKrbtgt reads the krbtgt hash from lsadump output whose
// "Domain : <name> / <sid>" banner sits at a fixed line offset.
func parseKrbtgt(d *dump) Batch {
	last := min(lsaBannerLastLine, len(d.lines)-1)
	for i := lsaBannerFirstLine; i <= last; i++ {
		line := d.lines[i]
		if !strings.HasPrefix(line, lsaBannerPrefix) {
			continue
		}

		value := strings.TrimPrefix(line, lsaBannerPrefix)
		name, sid, _ := strings.Cut(value, "/")
		domain, sid := d.header.qualify(strings.TrimSpace(name), strings.TrimSpace(sid))

		hash := d.krbtgtHash()
		if hash == "" {
			return nil
		}
		return Batch{{
			Kind:     KindHash,
			Domain:   domain,
			Username: "krbtgt",
			Secret:   hash,
			Host:     d.header.host,
			SID:      sid,
		}}
	}
	return nil
}

func (d *dump) krbtgtHash() string {
	for i, line := range d.lines {
		if !strings.HasPrefix(line, krbtgtUserLine) {
			continue
		}
		if i+krbtgtHashOffset >= len(d.lines) {
			return ""
		}
		_, hash, _ := strings.Cut(d.lines[i+krbtgtHashOffset], ":")
		return strings.TrimSpace(hash)
	}
	return ""
}

// parseDCSync reads the single account printed by a replication dump.
func parseDCSync(d *dump) Batch {
	found := false
	for _, line := range d.lines {
		if strings.TrimSpace(line) == samAccountBanner {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var domain, dc, user, sid, hash string
	for _, line := range d.lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasSuffix(trimmed, "will be the domain"):
			domain = quoted(trimmed)
		case strings.HasSuffix(trimmed, "will be the DC server"):
			dc, _, _ = strings.Cut(quoted(trimmed), ".")
		case strings.HasPrefix(trimmed, "SAM Username"):
			user = valueAfterColon(trimmed)
		case strings.HasPrefix(trimmed, "Object Security ID"):
			objectSID := valueAfterColon(trimmed)
			if i := strings.LastIndex(objectSID, "-"); i >= 0 {
				sid = objectSID[:i]
			}
		case strings.HasPrefix(trimmed, "Hash NTLM:"):
			hash = valueAfterColon(trimmed)
		}
	}

	if domain == "" || hash == "" {
		return nil
	}
	return Batch{{
		Kind:     KindHash,
		Domain:   domain,
		Username: user,
		Secret:   hash,
		Host:     dc,
		SID:      sid,
	}}
}

// quoted returns the text between the first pair of single quotes.
func quoted(s string) string {
	_, rest, ok := strings.Cut(s, "'")
	if !ok {
		return ""
	}
	inner, _, _ := strings.Cut(rest, "'")
	return inner
}

func valueAfterColon(s string) string {
	_, value, _ := strings.Cut(s, ":")
	return strings.TrimSpace(value)
}
